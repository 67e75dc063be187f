package parser

import (
	"context"
	"encoding/json"
	"strings"

	"deepscan/internal/types"
)

// expectedTopLevelKeys gate the JSON tier: a JSON document carrying none of
// the report's keys is some other JSON and should fall through to AI
// extraction rather than being swallowed as an empty report.
var expectedTopLevelKeys = []string{
	"issues", "testCoverage", "dependencies", "architecture",
	"teamMetrics", "documentation", "breakingChanges", "recommendations",
}

// jsonTier handles the happy path: the service answered with the report as
// a strict JSON document. Cheapest and most reliable tier.
type jsonTier struct{}

func newJSONTier() *jsonTier { return &jsonTier{} }

func (t *jsonTier) Name() string { return "json" }

func (t *jsonTier) Applicable(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), "{")
}

func (t *jsonTier) Extract(_ context.Context, raw string, _ RoundContext) (*types.PartialResult, error) {
	trimmed := strings.TrimSpace(raw)

	// Probe the key set first so foreign JSON falls through.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &keys); err != nil {
		return nil, err
	}
	if !hasExpectedKey(keys) {
		return nil, nil
	}

	partial := emptyPartial()
	if err := json.Unmarshal([]byte(trimmed), partial); err != nil {
		return nil, err
	}
	normalizeFindings(partial.Issues)

	for _, key := range populatedKeys(partial) {
		partial.Categories[key] = types.CategoryResult{
			Confidence: confidenceJSON,
			Method:     types.MethodJSON,
		}
	}

	return partial, nil
}

func hasExpectedKey(keys map[string]json.RawMessage) bool {
	for key := range keys {
		if isExpectedKey(key) {
			return true
		}
	}
	return false
}

func isExpectedKey(key string) bool {
	for _, k := range expectedTopLevelKeys {
		if k == key {
			return true
		}
	}
	return false
}

// normalizeFindings maps free-form severity strings onto the known enum.
func normalizeFindings(findings []types.Finding) {
	for i := range findings {
		findings[i].Severity = types.ParseSeverity(string(findings[i].Severity))
	}
}
