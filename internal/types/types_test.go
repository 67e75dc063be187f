package types

import "testing"

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want Severity
	}{
		{"critical", SeverityCritical},
		{"CRITICAL", SeverityCritical},
		{" High ", SeverityHigh},
		{"medium", SeverityMedium},
		{"low", SeverityLow},
		{"", SeverityMedium},
		{"catastrophic", SeverityMedium},
		{"warn", SeverityMedium},
	}
	for _, c := range cases {
		if got := ParseSeverity(c.in); got != c.want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDependencyReport_Empty(t *testing.T) {
	var nilReport *DependencyReport
	if !nilReport.Empty() {
		t.Error("nil report should be empty")
	}
	if !(&DependencyReport{}).Empty() {
		t.Error("zero report should be empty")
	}
	if (&DependencyReport{Outdated: []Dependency{{Name: "react"}}}).Empty() {
		t.Error("report with entries should not be empty")
	}
}
