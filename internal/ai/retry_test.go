package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, time.Minute)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("state = %v after 2 failures, want CLOSED", cb.State())
	}
	if err := cb.Allow(); err != nil {
		t.Fatalf("closed breaker rejected a call: %v", err)
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %v after 3 failures, want OPEN", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker allowed a call: %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.State() != CircuitClosed {
		t.Errorf("state = %v, want CLOSED after success reset the count", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %v, want OPEN", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("expired open breaker should probe: %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %v, want HALF_OPEN", cb.State())
	}

	cb.RecordSuccess()
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("one probe success should not close yet, state = %v", cb.State())
	}
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Errorf("state = %v after %d probe successes, want CLOSED", cb.State(), 2)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Errorf("state = %v, want OPEN after probe failure", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("reopened breaker allowed a call: %v", err)
	}
}

func TestIsRetriableError(t *testing.T) {
	cases := []struct {
		err       error
		retriable bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("rate limit exceeded"), true},
		{errors.New("503 service unavailable"), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("401 unauthorized"), false},
		{errors.New("invalid request: model not found"), false},
	}

	for _, c := range cases {
		if got := isRetriableError(c.err); got != c.retriable {
			t.Errorf("isRetriableError(%v) = %v, want %v", c.err, got, c.retriable)
		}
	}
}

func testRetryClient(retry RetryConfig) *Client {
	return &Client{
		retry:   retry,
		breaker: NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout),
	}
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
		FailureThreshold:  10,
		SuccessThreshold:  2,
		OpenTimeout:       time.Minute,
	}
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	c := testRetryClient(fastRetryConfig())

	attempts := 0
	err := c.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoff_NonRetriableFailsFast(t *testing.T) {
	c := testRetryClient(fastRetryConfig())

	authErr := errors.New("401 unauthorized")
	attempts := 0
	err := c.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		return authErr
	})

	if !errors.Is(err, authErr) {
		t.Fatalf("expected the auth error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for a non-retriable error", attempts)
	}
}

func TestRetryWithBackoff_ExhaustsBudget(t *testing.T) {
	cfg := fastRetryConfig()
	c := testRetryClient(cfg)

	transient := errors.New("rate limit exceeded")
	attempts := 0
	err := c.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		return transient
	})

	if !errors.Is(err, transient) {
		t.Fatalf("expected the transient error in the chain, got %v", err)
	}
	if attempts != cfg.MaxRetries+1 {
		t.Errorf("attempts = %d, want %d", attempts, cfg.MaxRetries+1)
	}
	wantMsg := fmt.Sprintf("failed after %d attempts", cfg.MaxRetries+1)
	if !strings.Contains(err.Error(), wantMsg) {
		t.Errorf("error %v should mention %q", err, wantMsg)
	}
}
