package ai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// Client is a thin wrapper over the Anthropic API with retry, circuit
// breaking, and a concurrency cap. One Client is shared by all extraction
// categories; it holds no per-request state.
type Client struct {
	client  *anthropic.Client
	retry   RetryConfig
	breaker *CircuitBreaker
	sem     *semaphore.Weighted
}

// Config holds client configuration.
type Config struct {
	APIKey string      // Anthropic API key (if empty, reads ANTHROPIC_API_KEY)
	Retry  RetryConfig // Retry configuration (defaults used if zero)
}

// NewClient creates an AI client. Fails if no API key is configured so that
// the parser can probe AI capability at construction time.
func NewClient(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.Timeout == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var sem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return &Client{
		client:  &client,
		retry:   retry,
		breaker: NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout),
		sem:     sem,
	}, nil
}

// Complete sends a single-turn prompt to the given model and returns the
// concatenated text content of the response.
func (c *Client) Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	if model == "" {
		model = PrimaryModel()
	}
	if maxTokens == 0 {
		maxTokens = 4096
	}

	start := time.Now()
	var response *anthropic.Message
	err := c.retryWithBackoff(ctx, "completion", func(attemptCtx context.Context) error {
		resp, apiErr := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	slog.Debug("completion finished",
		"model", model,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
		"duration", time.Since(start))

	return text, nil
}
