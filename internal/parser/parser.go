// Package parser turns one raw analysis-service response into a structured
// partial result. Parsing never fails outright: an ordered cascade of tiers
// degrades from strict JSON through AI-assisted extraction down to
// deterministic pattern matching, so the orchestrator always receives at
// least an empty partial.
package parser

import (
	"context"
	"log/slog"

	"deepscan/internal/types"
)

// Per-tier confidence. The ordering is the point: JSON beats AI, primary
// beats fallback, and pattern extraction trails everything.
const (
	confidenceJSON       = 0.95
	confidenceAIPrimary  = 0.85
	fallbackPenalty      = 0.15
	confidenceAIFallback = confidenceAIPrimary - fallbackPenalty
	confidencePattern    = 0.40
)

// RoundContext carries per-round metadata to the tiers, mainly so AI
// extraction prompts can mention what is being analyzed.
type RoundContext struct {
	Repository string
	Branch     string
	Round      int
	Language   string // dominant repository language, if known
	FileCount  int    // approximate repository size, if known
}

// Tier is one parsing strategy in the cascade.
type Tier interface {
	Name() string

	// Applicable reports whether the tier should be attempted for this
	// response. Inapplicable tiers are skipped without counting as failures.
	Applicable(raw string) bool

	// Extract parses the response. An error or an empty partial hands the
	// response to the next tier.
	Extract(ctx context.Context, raw string, rc RoundContext) (*types.PartialResult, error)
}

// TieredParser runs the cascade. The tier list is fixed at construction:
// capability (an AI client being configured) is probed once, not per call.
type TieredParser struct {
	tiers []Tier
	log   *slog.Logger
}

// Completer is the single-call AI dependency of the AI tier. *ai.Client
// satisfies it; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error)
}

// Options configures parser construction.
type Options struct {
	// AI enables the AI-assisted tier when non-nil. When nil the cascade is
	// JSON → pattern only.
	AI Completer

	// PrimaryModel and FallbackModel name the two extraction models. Empty
	// values fall back to the package defaults.
	PrimaryModel  string
	FallbackModel string

	Logger *slog.Logger
}

// New builds the tier list for the capabilities at hand.
func New(opts Options) *TieredParser {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	tiers := []Tier{newJSONTier()}
	if opts.AI != nil {
		tiers = append(tiers, newAITier(opts.AI, opts.PrimaryModel, opts.FallbackModel, log))
	}
	tiers = append(tiers, newPatternTier())

	return &TieredParser{tiers: tiers, log: log}
}

// Parse extracts a partial result from a raw response. Never returns nil.
func (p *TieredParser) Parse(ctx context.Context, raw string, rc RoundContext) *types.PartialResult {
	for _, tier := range p.tiers {
		if !tier.Applicable(raw) {
			continue
		}

		partial, err := tier.Extract(ctx, raw, rc)
		if err != nil {
			p.log.Debug("parse tier failed, falling through",
				"tier", tier.Name(), "round", rc.Round, "error", err)
			continue
		}
		if partial == nil || isEmptyPartial(partial) {
			continue
		}

		p.log.Debug("parse tier succeeded", "tier", tier.Name(), "round", rc.Round)
		return partial
	}

	return emptyPartial()
}

func emptyPartial() *types.PartialResult {
	return &types.PartialResult{Categories: map[string]types.CategoryResult{}}
}

func isEmptyPartial(p *types.PartialResult) bool {
	return len(populatedKeys(p)) == 0
}

// populatedKeys lists the top-level report keys a partial carries data for.
// Category attribution is keyed by these names across all tiers, so
// confidence consumers see one vocabulary regardless of which tier produced
// the data.
func populatedKeys(p *types.PartialResult) []string {
	var keys []string
	if len(p.Issues) > 0 {
		keys = append(keys, "issues")
	}
	if len(p.TestCoverage) > 0 {
		keys = append(keys, "testCoverage")
	}
	if !p.Dependencies.Empty() {
		keys = append(keys, "dependencies")
	}
	if len(p.Architecture) > 0 {
		keys = append(keys, "architecture")
	}
	if len(p.TeamMetrics) > 0 {
		keys = append(keys, "teamMetrics")
	}
	if len(p.Documentation) > 0 {
		keys = append(keys, "documentation")
	}
	if len(p.BreakingChanges) > 0 {
		keys = append(keys, "breakingChanges")
	}
	if len(p.Recommendations) > 0 {
		keys = append(keys, "recommendations")
	}
	return keys
}
