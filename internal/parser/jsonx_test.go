package parser

import "testing"

func TestDecodeLenient(t *testing.T) {
	cases := []struct {
		name string
		in   string
		ok   bool
	}{
		{"strict", `{"issues":[]}`, true},
		{"fenced", "```json\n{\"issues\":[]}\n```", true},
		{"fenced no language", "```\n{\"testCoverage\":{\"overall\":72}}\n```", true},
		{"trailing comma", `{"recommendations":["add tests",],}`, true},
		{"line comments", "{\n// report\n\"breakingChanges\":[]\n}", true},
		{"prose wrapped", `Here is the extraction: {"issues":[]} Hope that helps!`, true},
		{"empty", "", false},
		{"prose only", "I could not find any structured data.", false},
		{"broken json", `{"issues": [unclosed`, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var dst map[string]any
			if got := decodeLenient(c.in, &dst); got != c.ok {
				t.Errorf("decodeLenient(%q) = %v, want %v", c.in, got, c.ok)
			}
		})
	}
}

func TestDecodeLenient_FencedValues(t *testing.T) {
	var dst map[string]any
	raw := "The analysis produced:\n```json\n{\"testCoverage\": {\"overall\": 72.5}}\n```\n"
	if !decodeLenient(raw, &dst) {
		t.Fatal("expected fenced JSON to decode")
	}
	coverage, ok := dst["testCoverage"].(map[string]any)
	if !ok || coverage["overall"] != 72.5 {
		t.Errorf("decoded value mismatch: %+v", dst)
	}
}
