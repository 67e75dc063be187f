// Package merge folds a round's partial result into the accumulated report.
// The merge is deterministic and idempotent: reapplying an already-merged
// partial changes nothing.
package merge

import (
	"strings"

	"golang.org/x/mod/module"

	"deepscan/internal/types"
)

// Merger accumulates partial results. Stateless; safe for concurrent use
// against independent accumulated results.
type Merger struct{}

// NewMerger creates a merger.
func NewMerger() *Merger {
	return &Merger{}
}

// NormalizeTitle produces the deduplication key for a finding title:
// lowercase with collapsed internal whitespace.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Merge applies partial onto accumulated in place.
//
// Rules:
//   - Issues: dedup by normalized title, first-seen order preserved.
//     Existing findings are field-filled only; non-empty fields are never
//     replaced by empty ones, but non-empty replacements win.
//   - Coverage metrics: per-metric maximum, never regressing.
//   - Dependency lists: set-union by package name, first occurrence wins.
//   - Free-form maps: shallow merge, incoming keys win.
//   - Breaking changes and recommendations: append-only, skipping exact
//     strings already present (reapplication must be a no-op).
func (m *Merger) Merge(accumulated *types.AccumulatedResult, partial *types.PartialResult) {
	if partial == nil {
		return
	}

	m.mergeIssues(accumulated, partial.Issues)
	m.mergeCoverage(accumulated, partial.TestCoverage)
	m.mergeDependencies(accumulated, partial.Dependencies)

	accumulated.Architecture = mergeMap(accumulated.Architecture, partial.Architecture)
	accumulated.TeamMetrics = mergeMap(accumulated.TeamMetrics, partial.TeamMetrics)
	accumulated.Documentation = mergeMap(accumulated.Documentation, partial.Documentation)

	accumulated.BreakingChanges = appendMissing(accumulated.BreakingChanges, partial.BreakingChanges)
	accumulated.Recommendations = appendMissing(accumulated.Recommendations, partial.Recommendations)
}

func (m *Merger) mergeIssues(accumulated *types.AccumulatedResult, incoming []types.Finding) {
	if len(incoming) == 0 {
		return
	}

	index := make(map[string]int, len(accumulated.Issues))
	for i, f := range accumulated.Issues {
		index[NormalizeTitle(f.Title)] = i
	}

	for _, inc := range incoming {
		key := NormalizeTitle(inc.Title)
		if key == "" {
			continue
		}

		i, seen := index[key]
		if !seen {
			accumulated.Issues = append(accumulated.Issues, inc)
			index[key] = len(accumulated.Issues) - 1
			continue
		}

		fillFinding(&accumulated.Issues[i], inc)
	}
}

// fillFinding updates an existing finding with fields from a later sighting.
// Empty incoming fields never erase existing data; non-empty incoming fields
// fill gaps and replace prior non-empty values.
func fillFinding(existing *types.Finding, inc types.Finding) {
	if inc.Severity != "" {
		existing.Severity = inc.Severity
	}
	if inc.Category != "" {
		existing.Category = inc.Category
	}
	if inc.Location != nil && inc.Location.File != "" {
		existing.Location = inc.Location
	}
	if inc.CodeSnippet != "" {
		existing.CodeSnippet = inc.CodeSnippet
	}
	if inc.Recommendation != "" {
		existing.Recommendation = inc.Recommendation
	}
}

func (m *Merger) mergeCoverage(accumulated *types.AccumulatedResult, incoming map[string]float64) {
	if len(incoming) == 0 {
		return
	}
	if accumulated.TestCoverage == nil {
		accumulated.TestCoverage = make(map[string]float64, len(incoming))
	}
	for metric, value := range incoming {
		if existing, ok := accumulated.TestCoverage[metric]; !ok || value > existing {
			accumulated.TestCoverage[metric] = value
		}
	}
}

func (m *Merger) mergeDependencies(accumulated *types.AccumulatedResult, incoming *types.DependencyReport) {
	if incoming.Empty() {
		return
	}
	if accumulated.Dependencies == nil {
		accumulated.Dependencies = &types.DependencyReport{}
	}
	deps := accumulated.Dependencies
	deps.Vulnerable = unionByName(deps.Vulnerable, incoming.Vulnerable)
	deps.Outdated = unionByName(deps.Outdated, incoming.Outdated)
	deps.Deprecated = unionByName(deps.Deprecated, incoming.Deprecated)
}

// unionByName appends dependencies not already present by package name.
// First occurrence wins for descriptive fields. Entries whose name is not
// even a plausible module or package path are dropped; parsers extract from
// free text and occasionally emit prose fragments as names.
func unionByName(existing, incoming []types.Dependency) []types.Dependency {
	if len(incoming) == 0 {
		return existing
	}

	seen := make(map[string]bool, len(existing))
	for _, d := range existing {
		seen[strings.ToLower(d.Name)] = true
	}

	for _, d := range incoming {
		name := strings.TrimSpace(d.Name)
		if name == "" || !plausiblePackageName(name) {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		d.Name = name
		existing = append(existing, d)
	}
	return existing
}

// plausiblePackageName accepts anything that looks like a package identifier
// in some ecosystem: a Go module path, an npm-style name (possibly scoped),
// or a bare identifier with common separator characters. Rejects strings
// with whitespace or sentence punctuation.
func plausiblePackageName(name string) bool {
	if strings.ContainsAny(name, " \t\n") || len(name) > 200 {
		return false
	}
	if err := module.CheckPath(name); err == nil {
		return true
	}
	trimmed := strings.TrimPrefix(name, "@")
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == '/', r == ':':
		default:
			return false
		}
	}
	return trimmed != ""
}

func mergeMap(existing, incoming map[string]any) map[string]any {
	if len(incoming) == 0 {
		return existing
	}
	if existing == nil {
		existing = make(map[string]any, len(incoming))
	}
	for k, v := range incoming {
		existing[k] = v
	}
	return existing
}

func appendMissing(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range incoming {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		existing = append(existing, s)
	}
	return existing
}
