package parser

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Pre-compiled patterns for JSON recovery. Model output wraps JSON in code
// fences, leaves trailing commas, and occasionally emits comments; each
// cleanup stage targets one of those habits.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)`{3}(?:json|javascript|js)?\\s*\n?([\\s\\S]*?)\n?`{3}")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	lineCommentRegex   = regexp.MustCompile(`(?m)^\s*//.*$`)
	blockCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// decodeLenient unmarshals model output into dst, degrading through cleanup
// stages: direct parse, fence removal, comma/comment cleanup, then object
// extraction from surrounding prose. Returns false when every stage fails.
func decodeLenient(text string, dst any) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if json.Unmarshal([]byte(trimmed), dst) == nil {
		return true
	}

	unfenced := strings.TrimSpace(codeFenceRegex.ReplaceAllString(trimmed, "$1"))
	if unfenced != trimmed && json.Unmarshal([]byte(unfenced), dst) == nil {
		return true
	}

	cleaned := trailingCommaRegex.ReplaceAllString(unfenced, "$1")
	cleaned = lineCommentRegex.ReplaceAllString(cleaned, "")
	cleaned = blockCommentRegex.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if json.Unmarshal([]byte(cleaned), dst) == nil {
		return true
	}

	if extracted := objectRegex.FindString(cleaned); extracted != "" {
		if json.Unmarshal([]byte(extracted), dst) == nil {
			return true
		}
	}

	return false
}
