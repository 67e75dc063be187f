package parser

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"deepscan/internal/types"
)

// Ordered regular-expression families for recovering structure from free
// text. The pattern tier exists so the orchestrator never sees a hard
// failure just because the upstream response was prose.
var (
	// path/to/file.go:42 - description   (also "file.ts, line 42: ...")
	fileLineRegex     = regexp.MustCompile(`(?m)([\w./~-]+\.[A-Za-z]{1,5})[:,]\s*(?:line\s+)?(\d{1,6})\s*[:\-–]?\s*(.{0,200})`)
	severityWordRegex = regexp.MustCompile(`(?i)\b(critical|high|medium|low)\b`)

	// "test coverage is 72%", "coverage: 72.5%"
	coverageRegex = regexp.MustCompile(`(?i)(?:test\s+|overall\s+|line\s+|branch\s+)?coverage[^%\d]{0,30}(\d{1,3}(?:\.\d+)?)\s*%`)

	// "`lodash` is vulnerable", "vulnerable package: lodash@4.17.20"
	vulnerableDepRegex = regexp.MustCompile("(?i)(?:vulnerable(?:\\s+package)?s?[:\\s]+|known vulnerabilit(?:y|ies) in\\s+)`?([\\w@][\\w@/.-]*)`?")
	outdatedDepRegex   = regexp.MustCompile("(?i)(?:outdated(?:\\s+package)?s?[:\\s]+|`?([\\w@][\\w@/.-]*)`?\\s+is\\s+outdated)`?([\\w@][\\w@/.-]*)?`?")
	deprecatedDepRegex = regexp.MustCompile("(?i)`?([\\w@][\\w@/.-]*)`?\\s+(?:is|has been)\\s+deprecated")

	breakingChangeRegex = regexp.MustCompile(`(?im)^[\s*-]*(?:breaking(?:\s+change)?|BREAKING)[:\s-]+(.{5,200})$`)
)

// Keyword families for coarse category tagging of recovered findings.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"security", []string{"injection", "xss", "csrf", "vulnerab", "secret", "credential", "auth", "crypto", "insecure"}},
	{"performance", []string{"slow", "performance", "n+1", "latency", "memory leak", "inefficien", "bottleneck"}},
	{"code-quality", []string{"complexity", "duplicat", "dead code", "unused", "refactor", "maintainab"}},
}

// patternTier is the final fallback: deterministic extraction with fixed
// confidence below every AI method.
type patternTier struct{}

func newPatternTier() *patternTier { return &patternTier{} }

func (t *patternTier) Name() string { return "pattern" }

func (t *patternTier) Applicable(raw string) bool {
	return len(strings.TrimSpace(raw)) > 0
}

func (t *patternTier) Extract(_ context.Context, raw string, _ RoundContext) (*types.PartialResult, error) {
	partial := emptyPartial()

	extractFindings(raw, partial)
	extractCoverage(raw, partial)
	extractDependencies(raw, partial)
	extractBreakingChanges(raw, partial)

	if isEmptyPartial(partial) {
		return nil, nil
	}
	for _, key := range populatedKeys(partial) {
		partial.Categories[key] = types.CategoryResult{
			Confidence: confidencePattern,
			Method:     types.MethodPattern,
		}
	}
	return partial, nil
}

// extractCategoryPatterns is the per-category pattern fallback used inside
// the AI tier's cascade. Scope is limited to the requested category so one
// category's fallback does not claim another's data.
func extractCategoryPatterns(raw, category string) *types.PartialResult {
	partial := emptyPartial()

	switch category {
	case "security", "performance", "code-quality":
		extractFindings(raw, partial)
		filtered := partial.Issues[:0]
		for _, f := range partial.Issues {
			if f.Category == category {
				filtered = append(filtered, f)
			}
		}
		partial.Issues = filtered
	case "dependencies":
		extractDependencies(raw, partial)
	case "breaking-changes":
		extractBreakingChanges(raw, partial)
	default:
		// Architecture, documentation, and recommendations have no reliable
		// deterministic shape in free text.
		return nil
	}

	if isEmptyPartial(partial) {
		return nil
	}
	return partial
}

// extractFindings recovers (file, line, description) triples and tags each
// with a coarse severity and category from surrounding keywords.
func extractFindings(raw string, partial *types.PartialResult) {
	for _, m := range fileLineRegex.FindAllStringSubmatch(raw, 50) {
		file, lineStr, desc := m[1], m[2], strings.TrimSpace(m[3])
		line, err := strconv.Atoi(lineStr)
		if err != nil || line <= 0 {
			continue
		}

		title := desc
		if title == "" {
			title = "Issue at " + file + ":" + lineStr
		}

		severity := types.SeverityMedium
		if sm := severityWordRegex.FindString(desc); sm != "" {
			severity = types.ParseSeverity(sm)
		}

		partial.Issues = append(partial.Issues, types.Finding{
			Title:    title,
			Severity: severity,
			Category: classifyByKeywords(desc),
			Location: &types.Location{File: file, Line: line},
		})
	}
}

func extractCoverage(raw string, partial *types.PartialResult) {
	m := coverageRegex.FindStringSubmatch(raw)
	if m == nil {
		return
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value < 0 || value > 100 {
		return
	}
	partial.TestCoverage = map[string]float64{"overall": value}
}

func extractDependencies(raw string, partial *types.PartialResult) {
	report := &types.DependencyReport{}

	for _, m := range vulnerableDepRegex.FindAllStringSubmatch(raw, 20) {
		if name := depName(m[1]); name != "" {
			report.Vulnerable = append(report.Vulnerable, types.Dependency{Name: name})
		}
	}
	for _, m := range outdatedDepRegex.FindAllStringSubmatch(raw, 20) {
		name := depName(m[1])
		if name == "" {
			name = depName(m[2])
		}
		if name != "" {
			report.Outdated = append(report.Outdated, types.Dependency{Name: name})
		}
	}
	for _, m := range deprecatedDepRegex.FindAllStringSubmatch(raw, 20) {
		if name := depName(m[1]); name != "" {
			report.Deprecated = append(report.Deprecated, types.Dependency{Name: name})
		}
	}

	if !report.Empty() {
		partial.Dependencies = report
	}
}

func extractBreakingChanges(raw string, partial *types.PartialResult) {
	for _, m := range breakingChangeRegex.FindAllStringSubmatch(raw, 20) {
		change := strings.TrimSpace(m[1])
		if change != "" {
			partial.BreakingChanges = append(partial.BreakingChanges, change)
		}
	}
}

// depName strips version suffixes like "lodash@4.17.20" down to the package
// name and rejects obvious non-names.
func depName(candidate string) string {
	name := strings.TrimSpace(candidate)
	if name == "" {
		return ""
	}
	// Keep npm scopes (@scope/pkg) but drop trailing @version.
	if at := strings.LastIndex(name, "@"); at > 0 {
		name = name[:at]
	}
	if len(name) < 2 || strings.EqualFold(name, "package") || strings.EqualFold(name, "packages") {
		return ""
	}
	return name
}

func classifyByKeywords(text string) string {
	lower := strings.ToLower(text)
	for _, family := range categoryKeywords {
		for _, word := range family.words {
			if strings.Contains(lower, word) {
				return family.category
			}
		}
	}
	return "code-quality"
}
