// Package analyst talks to the external repository-analysis service. The
// service receives a repository URL plus a prompt and answers with either a
// strict JSON report or free-form prose; it can also refuse outright. This
// package owns transport, timeouts, rate limiting, and refusal detection.
package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Request is one analysis query.
type Request struct {
	RepoURL        string // repository URL (required)
	Branch         string // optional branch; service defaults to the default branch
	Prompt         string // the round's instruction
	ResponseFormat string // hint: "json" or "text"
}

// Service is the external analysis collaborator. The orchestrator depends on
// this interface, never on the HTTP client directly.
type Service interface {
	Analyze(ctx context.Context, req Request) (string, error)
}

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Options configures the client.
type Options struct {
	BaseURL string        // analysis service endpoint, e.g. http://deepwiki:8001
	Timeout time.Duration // per-call timeout (default: 120s)

	// RequestsPerMinute caps the call rate to the service (default: 10).
	// Zero disables rate limiting.
	RequestsPerMinute int
}

// NewClient creates an analysis service client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type analyzeRequest struct {
	RepoURL        string        `json:"repo_url"`
	Branch         string        `json:"branch,omitempty"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat string        `json:"response_format,omitempty"`
	Stream         bool          `json:"stream"`
}

type analyzeResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze sends one analysis round to the service and returns the raw
// response text. Transport failures are returned to the caller; the response
// content itself is never judged here beyond envelope unwrapping.
func (c *Client) Analyze(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(analyzeRequest{
		RepoURL:        req.RepoURL,
		Branch:         req.Branch,
		Messages:       []chatMessage{{Role: "user", Content: req.Prompt}},
		ResponseFormat: req.ResponseFormat,
	})
	if err != nil {
		return "", fmt.Errorf("encoding analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling analysis service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("reading analysis response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	// Unwrap the chat envelope when present; some deployments return the
	// report body directly.
	var envelope analyzeResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Choices) > 0 {
		return envelope.Choices[0].Message.Content, nil
	}

	return string(raw), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
