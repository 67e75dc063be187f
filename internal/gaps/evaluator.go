// Package gaps scores how complete an accumulated analysis result is and
// decides whether another round of querying is worth the cost.
package gaps

import (
	"fmt"
	"strings"

	"deepscan/internal/types"
)

// Field weights. They sum to 100 so completeness reads as a percentage.
// Issues and dependencies carry the security-relevant data, which is why
// they weigh enough to be critical.
const (
	weightIssues          = 30
	weightTestCoverage    = 15
	weightDependencies    = 20
	weightArchitecture    = 10
	weightTeamMetrics     = 5
	weightDocumentation   = 10
	weightBreakingChanges = 10
)

// A gap is critical when its field's weight reaches this threshold.
const criticalWeightThreshold = 20

// CompletenessThreshold is the score at which a result counts as complete,
// provided no critical gaps remain.
const CompletenessThreshold = 80

// Evaluator computes gap analyses. Stateless; safe for concurrent use.
type Evaluator struct{}

// NewEvaluator creates a gap evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

type trackedField struct {
	name    string
	weight  int
	present func(*types.AccumulatedResult) bool
}

var trackedFields = []trackedField{
	{"issues", weightIssues, func(r *types.AccumulatedResult) bool { return len(r.Issues) > 0 }},
	{"testCoverage", weightTestCoverage, func(r *types.AccumulatedResult) bool { return len(r.TestCoverage) > 0 }},
	{"dependencies", weightDependencies, func(r *types.AccumulatedResult) bool { return !r.Dependencies.Empty() }},
	{"architecture", weightArchitecture, func(r *types.AccumulatedResult) bool { return len(r.Architecture) > 0 }},
	{"teamMetrics", weightTeamMetrics, func(r *types.AccumulatedResult) bool { return len(r.TeamMetrics) > 0 }},
	{"documentation", weightDocumentation, func(r *types.AccumulatedResult) bool { return len(r.Documentation) > 0 }},
	{"breakingChanges", weightBreakingChanges, func(r *types.AccumulatedResult) bool { return len(r.BreakingChanges) > 0 }},
}

// AnalyzeGaps scores the result and lists its missing fields, heaviest first.
func (e *Evaluator) AnalyzeGaps(result *types.AccumulatedResult) *types.GapAnalysis {
	analysis := &types.GapAnalysis{}

	score := 0
	for _, field := range trackedFields {
		if field.present(result) {
			score += field.weight
			continue
		}

		gap := types.Gap{
			Field:       field.name,
			Weight:      field.weight,
			Critical:    field.weight >= criticalWeightThreshold,
			Description: describeGap(field.name),
		}
		analysis.Gaps = append(analysis.Gaps, gap)
	}

	// trackedFields is ordered by weight descending within ties of interest;
	// sort explicitly so prompt generation sees heaviest gaps first.
	sortGapsByWeight(analysis.Gaps)

	analysis.Completeness = score
	analysis.TotalGaps = len(analysis.Gaps)
	for _, g := range analysis.Gaps {
		if g.Critical {
			analysis.CriticalGaps++
		}
	}

	return analysis
}

// IsComplete reports whether the result is complete enough to stop.
// Both conditions are required: a high score cannot hide a missing
// critical category.
func (e *Evaluator) IsComplete(analysis *types.GapAnalysis) bool {
	return analysis.Completeness >= CompletenessThreshold && analysis.CriticalGaps == 0
}

// GenerateGapFillingPrompt builds a targeted instruction asking only for the
// still-missing fields, so later rounds are cheaper than a full re-ask.
func (e *Evaluator) GenerateGapFillingPrompt(analysis *types.GapAnalysis, round int) string {
	if analysis.TotalGaps == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "This is follow-up round %d of a repository analysis. ", round)
	b.WriteString("Previous rounds already supplied most of the report; do NOT repeat data already provided. ")
	b.WriteString("Respond with a single JSON object containing ONLY the following missing sections:\n")

	for _, gap := range analysis.Gaps {
		marker := ""
		if gap.Critical {
			marker = " (critical)"
		}
		fmt.Fprintf(&b, "- %q%s: %s\n", gap.Field, marker, gap.Description)
	}

	b.WriteString("\nUse the exact key names shown above. Omit every other key.")
	return b.String()
}

func describeGap(field string) string {
	switch field {
	case "issues":
		return "discovered issues with title, severity (critical/high/medium/low), category, file location, code snippet, and recommendation"
	case "testCoverage":
		return "test coverage percentages keyed by metric name, e.g. {\"overall\": 72}"
	case "dependencies":
		return "dependency health as three lists: vulnerable, outdated, deprecated, each entry naming the package"
	case "architecture":
		return "architecture observations: layering, major components, coupling concerns"
	case "teamMetrics":
		return "team and process metrics: contributor count, review practices, change frequency"
	case "documentation":
		return "documentation assessment: README quality, API docs, onboarding material"
	case "breakingChanges":
		return "breaking changes introduced on this branch relative to the default branch"
	default:
		return "missing section"
	}
}

func sortGapsByWeight(gaps []types.Gap) {
	// Insertion sort; the list is at most seven entries.
	for i := 1; i < len(gaps); i++ {
		for j := i; j > 0 && gaps[j].Weight > gaps[j-1].Weight; j-- {
			gaps[j], gaps[j-1] = gaps[j-1], gaps[j]
		}
	}
}
