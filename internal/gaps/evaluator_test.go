package gaps

import (
	"strings"
	"testing"

	"deepscan/internal/types"
)

func fullResult() *types.AccumulatedResult {
	return &types.AccumulatedResult{
		Issues:       []types.Finding{{Title: "SQL Injection", Severity: types.SeverityCritical}},
		TestCoverage: map[string]float64{"overall": 72},
		Dependencies: &types.DependencyReport{
			Vulnerable: []types.Dependency{{Name: "lodash"}},
		},
		Architecture:    map[string]any{"style": "monolith"},
		TeamMetrics:     map[string]any{"contributors": 4},
		Documentation:   map[string]any{"readme": "good"},
		BreakingChanges: []string{"removed /v1/users endpoint"},
	}
}

func TestWeightsSumToHundred(t *testing.T) {
	sum := 0
	for _, f := range trackedFields {
		sum += f.weight
	}
	if sum != 100 {
		t.Fatalf("field weights sum to %d, want 100", sum)
	}
}

func TestAnalyzeGaps_EmptyResult(t *testing.T) {
	e := NewEvaluator()
	analysis := e.AnalyzeGaps(&types.AccumulatedResult{})

	if analysis.Completeness != 0 {
		t.Errorf("completeness = %d, want 0", analysis.Completeness)
	}
	if analysis.TotalGaps != len(trackedFields) {
		t.Errorf("total gaps = %d, want %d", analysis.TotalGaps, len(trackedFields))
	}
	// issues (30) and dependencies (20) are the critical fields.
	if analysis.CriticalGaps != 2 {
		t.Errorf("critical gaps = %d, want 2", analysis.CriticalGaps)
	}
	// Heaviest gap first.
	if analysis.Gaps[0].Field != "issues" {
		t.Errorf("first gap = %q, want issues", analysis.Gaps[0].Field)
	}
	if e.IsComplete(analysis) {
		t.Error("empty result must not be complete")
	}
}

func TestAnalyzeGaps_FullResult(t *testing.T) {
	e := NewEvaluator()
	analysis := e.AnalyzeGaps(fullResult())

	if analysis.Completeness != 100 {
		t.Errorf("completeness = %d, want 100", analysis.Completeness)
	}
	if analysis.TotalGaps != 0 || analysis.CriticalGaps != 0 {
		t.Errorf("expected no gaps, got %+v", analysis.Gaps)
	}
	if !e.IsComplete(analysis) {
		t.Error("full result must be complete")
	}
}

func TestIsComplete_RequiresBothConditions(t *testing.T) {
	e := NewEvaluator()

	// Everything except dependencies: score 80, but one critical gap.
	r := fullResult()
	r.Dependencies = nil
	analysis := e.AnalyzeGaps(r)
	if analysis.Completeness != 80 {
		t.Fatalf("completeness = %d, want 80", analysis.Completeness)
	}
	if analysis.CriticalGaps != 1 {
		t.Fatalf("critical gaps = %d, want 1", analysis.CriticalGaps)
	}
	if e.IsComplete(analysis) {
		t.Error("critical gap must block completion even at the threshold score")
	}

	// Everything except team metrics and documentation: score 85, no
	// critical gaps, so this is complete.
	r = fullResult()
	r.TeamMetrics = nil
	r.Documentation = nil
	analysis = e.AnalyzeGaps(r)
	if analysis.Completeness != 85 {
		t.Fatalf("completeness = %d, want 85", analysis.Completeness)
	}
	if !e.IsComplete(analysis) {
		t.Error("85%% with no critical gaps should be complete")
	}

	// Everything except test coverage and documentation: 75, below threshold.
	r = fullResult()
	r.TestCoverage = nil
	r.Documentation = nil
	analysis = e.AnalyzeGaps(r)
	if e.IsComplete(analysis) {
		t.Errorf("completeness %d should be below the threshold", analysis.Completeness)
	}
}

func TestGenerateGapFillingPrompt(t *testing.T) {
	e := NewEvaluator()

	r := fullResult()
	r.Dependencies = nil
	r.TeamMetrics = nil
	analysis := e.AnalyzeGaps(r)

	prompt := e.GenerateGapFillingPrompt(analysis, 1)
	if prompt == "" {
		t.Fatal("expected a prompt for a result with gaps")
	}
	if !strings.Contains(prompt, `"dependencies" (critical)`) {
		t.Errorf("prompt should name the critical dependencies gap:\n%s", prompt)
	}
	if !strings.Contains(prompt, `"teamMetrics"`) {
		t.Errorf("prompt should name the teamMetrics gap:\n%s", prompt)
	}
	// Present fields must not be re-requested.
	for _, present := range []string{`"issues"`, `"testCoverage"`, `"architecture"`} {
		if strings.Contains(prompt, present) {
			t.Errorf("prompt re-requests already-present field %s:\n%s", present, prompt)
		}
	}
	if !strings.Contains(prompt, "round 1") {
		t.Errorf("prompt should reference the round number:\n%s", prompt)
	}
}

func TestGenerateGapFillingPrompt_NoGaps(t *testing.T) {
	e := NewEvaluator()
	analysis := e.AnalyzeGaps(fullResult())
	if got := e.GenerateGapFillingPrompt(analysis, 2); got != "" {
		t.Errorf("expected empty prompt when nothing is missing, got %q", got)
	}
}
