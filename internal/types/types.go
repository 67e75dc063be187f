// Package types defines the shared data model for the adaptive analysis
// engine: findings, the accumulated report, gap analysis output, and the
// per-run result handed to downstream consumers.
package types

import (
	"strings"
	"time"
)

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ParseSeverity normalizes a free-form severity string to a known Severity.
// Unknown values default to medium rather than failing the parse.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "blocker":
		return SeverityCritical
	case "high", "major":
		return SeverityHigh
	case "low", "minor", "info":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Location points at the code a finding refers to.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line,omitempty"`
}

// Finding is one discovered issue. Title is the deduplication key after
// case/whitespace normalization; the merger owns that invariant, parsers
// may emit duplicates freely.
type Finding struct {
	Title          string    `json:"title"`
	Severity       Severity  `json:"severity"`
	Category       string    `json:"category,omitempty"`
	Location       *Location `json:"location,omitempty"`
	CodeSnippet    string    `json:"codeSnippet,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// Dependency describes one package in the dependency report.
type Dependency struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Latest   string `json:"latest,omitempty"`
	Advisory string `json:"advisory,omitempty"`
}

// DependencyReport holds the three disjoint dependency lists. Each list is
// keyed by package name; the merger enforces uniqueness within a list.
type DependencyReport struct {
	Vulnerable []Dependency `json:"vulnerable,omitempty"`
	Outdated   []Dependency `json:"outdated,omitempty"`
	Deprecated []Dependency `json:"deprecated,omitempty"`
}

// Empty reports whether the report carries no entries at all.
func (r *DependencyReport) Empty() bool {
	return r == nil || (len(r.Vulnerable) == 0 && len(r.Outdated) == 0 && len(r.Deprecated) == 0)
}

// AccumulatedResult is the running structured report built up across rounds.
// Every field is optional until populated.
type AccumulatedResult struct {
	Issues          []Finding          `json:"issues,omitempty"`
	TestCoverage    map[string]float64 `json:"testCoverage,omitempty"`
	Dependencies    *DependencyReport  `json:"dependencies,omitempty"`
	Architecture    map[string]any     `json:"architecture,omitempty"`
	TeamMetrics     map[string]any     `json:"teamMetrics,omitempty"`
	Documentation   map[string]any     `json:"documentation,omitempty"`
	BreakingChanges []string           `json:"breakingChanges,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// ExtractionMethod records which parser tier produced a category's data.
type ExtractionMethod string

const (
	MethodJSON       ExtractionMethod = "json"
	MethodAIPrimary  ExtractionMethod = "ai-primary"
	MethodAIFallback ExtractionMethod = "ai-fallback"
	MethodPattern    ExtractionMethod = "pattern"
)

// CategoryResult carries per-category extraction provenance: a confidence
// score in [0,1] and the method that produced the data.
type CategoryResult struct {
	Confidence float64          `json:"confidence"`
	Method     ExtractionMethod `json:"method"`
}

// PartialResult is one round's parsed output. The embedded report holds the
// extracted data; Categories records, per populated top-level report key
// (issues, testCoverage, ...), the confidence and method that produced it.
type PartialResult struct {
	AccumulatedResult
	Categories map[string]CategoryResult `json:"-"`
}

// Gap names one missing or weak field of the accumulated result.
type Gap struct {
	Field       string `json:"field"`
	Weight      int    `json:"weight"`
	Critical    bool   `json:"critical"`
	Description string `json:"description"`
}

// GapAnalysis is the gap evaluator's verdict on the current result.
// Recomputed fresh every round, never persisted.
type GapAnalysis struct {
	Completeness int   `json:"completeness"` // 0-100
	TotalGaps    int   `json:"totalGaps"`
	CriticalGaps int   `json:"criticalGaps"`
	Gaps         []Gap `json:"gaps"`
}

// IterationRecord is one round's audit trail. Immutable once appended.
type IterationRecord struct {
	Round       int            `json:"round"`
	RawResponse string         `json:"rawResponse"`
	Partial     *PartialResult `json:"partial"`
	Gaps        *GapAnalysis   `json:"gaps"`
	Duration    time.Duration  `json:"duration"`
}

// AdaptiveAnalysisResult is the artifact handed to the caller: the final
// merged report, the full round history, and run-level metadata.
type AdaptiveAnalysisResult struct {
	RunID         string            `json:"runId"`
	Repository    string            `json:"repository"`
	Branch        string            `json:"branch"`
	Result        AccumulatedResult `json:"result"`
	Iterations    []IterationRecord `json:"iterations"`
	TotalDuration time.Duration     `json:"totalDuration"`
	Completeness  int               `json:"completeness"`
}
