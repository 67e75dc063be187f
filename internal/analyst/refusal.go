package analyst

import "strings"

// MinResponseLength is the minimum useful response size. Anything shorter is
// treated as "no data" for the round, not as an error.
const MinResponseLength = 50

var refusalPhrases = []string{
	"i cannot",
	"i can't",
	"i am unable",
	"i'm unable",
	"i'm sorry",
	"as an ai",
	"unable to access",
	"unable to analyze",
	"repository not found",
	"access denied",
}

// IsDegenerate reports whether a response should be treated as yielding no
// data: too short, empty, or leading with refusal phrasing.
func IsDegenerate(response string) bool {
	trimmed := strings.TrimSpace(response)
	if len(trimmed) < MinResponseLength {
		return true
	}

	// Refusals lead with the refusal; only inspect the head so a legitimate
	// report quoting one of these phrases deep in a finding is not dropped.
	head := strings.ToLower(trimmed)
	if len(head) > 200 {
		head = head[:200]
	}
	for _, phrase := range refusalPhrases {
		if strings.Contains(head, phrase) {
			return true
		}
	}
	return false
}
