// Package ai wraps the Anthropic client used by the AI-assisted parse tier.
// It owns model selection, retry with backoff, and a circuit breaker so
// callers get a single Complete call with the failure handling built in.
package ai

import "os"

// Two models are configured per deployment: a primary for category
// extraction and a cheaper fallback retried once when the primary fails or
// returns an empty structure.
//
// Environment overrides:
// - DEEPSCAN_MODEL_PRIMARY: override the primary extraction model
// - DEEPSCAN_MODEL_FALLBACK: override the fallback model
const (
	// ModelPrimary is the default model for extraction requests.
	ModelPrimary = "claude-sonnet-4-5-20250929"

	// ModelFallback is the cost-efficient model tried when the primary fails.
	ModelFallback = "claude-3-5-haiku-20241022"
)

// PrimaryModel returns the primary extraction model, honoring the
// DEEPSCAN_MODEL_PRIMARY env var.
func PrimaryModel() string {
	if model := os.Getenv("DEEPSCAN_MODEL_PRIMARY"); model != "" {
		return model
	}
	return ModelPrimary
}

// FallbackModel returns the fallback model, honoring DEEPSCAN_MODEL_FALLBACK.
func FallbackModel() string {
	if model := os.Getenv("DEEPSCAN_MODEL_FALLBACK"); model != "" {
		return model
	}
	return ModelFallback
}
