// Package orchestrator runs the adaptive analysis loop: query the external
// analysis service, parse, merge, re-evaluate gaps, and stop once the report
// is complete enough or the round budget is spent.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deepscan/internal/analyst"
	"deepscan/internal/gaps"
	"deepscan/internal/merge"
	"deepscan/internal/parser"
	"deepscan/internal/types"
)

// MaxRounds bounds external analysis calls per run. Rounds are the unit of
// retry; nothing inside a round is retried.
const MaxRounds = 3

// Parser is the response-parsing dependency. *parser.TieredParser satisfies
// it; tests substitute fakes.
type Parser interface {
	Parse(ctx context.Context, raw string, rc parser.RoundContext) *types.PartialResult
}

// RunMetrics is the per-run summary offered to the metrics sink.
type RunMetrics struct {
	RunID        string
	Repository   string
	Branch       string
	Rounds       int
	Duration     time.Duration
	Completeness int
	CacheHit     bool
}

// MetricsSink receives run summaries. Implementations must treat delivery as
// best effort; the orchestrator logs and discards sink errors.
type MetricsSink interface {
	RecordRun(ctx context.Context, m RunMetrics) error
}

// Orchestrator coordinates rounds. It holds no cross-request mutable state,
// so one instance may serve concurrent runs.
type Orchestrator struct {
	service   analyst.Service
	parser    Parser
	evaluator *gaps.Evaluator
	merger    *merge.Merger
	sink      MetricsSink
	log       *slog.Logger
	maxRounds int
}

// Options configures an orchestrator.
type Options struct {
	Service analyst.Service
	Parser  Parser
	Sink    MetricsSink // optional
	Logger  *slog.Logger

	// MaxRounds overrides the round budget; zero means MaxRounds.
	MaxRounds int
}

// New creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("analysis service is required")
	}
	if opts.Parser == nil {
		return nil, fmt.Errorf("parser is required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	maxRounds := opts.MaxRounds
	if maxRounds == 0 {
		maxRounds = MaxRounds
	}

	return &Orchestrator{
		service:   opts.Service,
		parser:    opts.Parser,
		evaluator: gaps.NewEvaluator(),
		merger:    merge.NewMerger(),
		sink:      opts.Sink,
		log:       log,
		maxRounds: maxRounds,
	}, nil
}

// Run performs up to maxRounds analysis rounds against the repository and
// returns the merged report plus the full round history.
//
// Round 0 asks for everything; later rounds ask only for what the gap
// evaluator still reports missing. A refusal or under-length response is an
// empty round, not an error. A transport failure propagates: with no
// structured data to fall back to there is nothing to degrade into.
func (o *Orchestrator) Run(ctx context.Context, repoURL, branch string) (*types.AdaptiveAnalysisResult, error) {
	start := time.Now()
	result := &types.AdaptiveAnalysisResult{
		RunID:      uuid.New().String(),
		Repository: repoURL,
		Branch:     branch,
	}

	accumulated := &types.AccumulatedResult{}
	analysis := o.evaluator.AnalyzeGaps(accumulated)

	for round := 0; round < o.maxRounds; round++ {
		if o.evaluator.IsComplete(analysis) {
			o.log.Info("analysis complete, stopping early",
				"round", round, "completeness", analysis.Completeness)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis canceled before round %d: %w", round, err)
		}

		prompt := o.roundPrompt(analysis, round)
		roundStart := time.Now()

		raw, err := o.service.Analyze(ctx, analyst.Request{
			RepoURL:        repoURL,
			Branch:         branch,
			Prompt:         prompt,
			ResponseFormat: "json",
		})
		if err != nil {
			return nil, fmt.Errorf("analysis round %d: %w", round, err)
		}

		var partial *types.PartialResult
		if analyst.IsDegenerate(raw) {
			o.log.Warn("degenerate response, treating round as empty",
				"round", round, "length", len(raw))
			partial = &types.PartialResult{Categories: map[string]types.CategoryResult{}}
		} else {
			partial = o.parser.Parse(ctx, raw, parser.RoundContext{
				Repository: repoURL,
				Branch:     branch,
				Round:      round,
			})
		}

		o.merger.Merge(accumulated, partial)

		result.Iterations = append(result.Iterations, types.IterationRecord{
			Round:       round,
			RawResponse: raw,
			Partial:     partial,
			Gaps:        analysis,
			Duration:    time.Since(roundStart),
		})

		analysis = o.evaluator.AnalyzeGaps(accumulated)
		o.log.Info("round finished",
			"round", round,
			"completeness", analysis.Completeness,
			"gaps", analysis.TotalGaps,
			"critical_gaps", analysis.CriticalGaps,
			"issues", len(accumulated.Issues))
	}

	result.Result = *accumulated
	result.Completeness = analysis.Completeness
	result.TotalDuration = time.Since(start)

	o.emitMetrics(ctx, result)
	return result, nil
}

// roundPrompt selects the round's instruction: comprehensive on round 0,
// gap-targeted afterwards.
func (o *Orchestrator) roundPrompt(analysis *types.GapAnalysis, round int) string {
	if round == 0 {
		return comprehensivePrompt
	}
	return o.evaluator.GenerateGapFillingPrompt(analysis, round)
}

// emitMetrics delivers the run summary to the sink. Fire and forget: a
// failing sink must never fail the analysis.
func (o *Orchestrator) emitMetrics(ctx context.Context, result *types.AdaptiveAnalysisResult) {
	if o.sink == nil {
		return
	}
	m := RunMetrics{
		RunID:        result.RunID,
		Repository:   result.Repository,
		Branch:       result.Branch,
		Rounds:       len(result.Iterations),
		Duration:     result.TotalDuration,
		Completeness: result.Completeness,
	}
	if err := o.sink.RecordRun(ctx, m); err != nil {
		o.log.Warn("metrics sink failed", "run_id", result.RunID, "error", err)
	}
}
