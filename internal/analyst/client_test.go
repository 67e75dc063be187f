package analyst

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnalyze_UnwrapsChatEnvelope(t *testing.T) {
	var gotBody analyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"issues\":[]}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	got, err := c.Analyze(context.Background(), Request{
		RepoURL:        "https://github.com/acme/app",
		Branch:         "main",
		Prompt:         "analyze everything",
		ResponseFormat: "json",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if got != `{"issues":[]}` {
		t.Errorf("content = %q", got)
	}
	if gotBody.RepoURL != "https://github.com/acme/app" || gotBody.Branch != "main" {
		t.Errorf("request body = %+v", gotBody)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "analyze everything" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}

func TestAnalyze_PassesThroughBareBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain prose analysis without an envelope"))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	got, err := c.Analyze(context.Background(), Request{RepoURL: "r", Prompt: "p"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got != "plain prose analysis without an envelope" {
		t.Errorf("body = %q", got)
	}
}

func TestAnalyze_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "repository is being indexed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), Request{RepoURL: "r", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestAnalyze_TransportFailure(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), Request{RepoURL: "r", Prompt: "p"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if !strings.Contains(err.Error(), "calling analysis service") {
		t.Errorf("error not wrapped: %v", err)
	}
}

func TestAnalyze_RateLimiterHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok response body that is long enough to matter here"))
	}))
	defer srv.Close()

	// Burst of 1 at a very slow refill: the second call must wait, and a
	// canceled context must abort that wait.
	c := NewClient(Options{BaseURL: srv.URL, RequestsPerMinute: 1})

	if _, err := c.Analyze(context.Background(), Request{RepoURL: "r", Prompt: "p"}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Analyze(ctx, Request{RepoURL: "r", Prompt: "p"}); err == nil {
		t.Fatal("expected rate limiter wait to fail on canceled context")
	}
}
