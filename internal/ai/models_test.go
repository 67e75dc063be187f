package ai

import "testing"

func TestModelSelection_EnvOverrides(t *testing.T) {
	if PrimaryModel() != ModelPrimary {
		t.Errorf("PrimaryModel() = %q without override, want %q", PrimaryModel(), ModelPrimary)
	}
	if FallbackModel() != ModelFallback {
		t.Errorf("FallbackModel() = %q without override, want %q", FallbackModel(), ModelFallback)
	}

	t.Setenv("DEEPSCAN_MODEL_PRIMARY", "custom-primary")
	t.Setenv("DEEPSCAN_MODEL_FALLBACK", "custom-fallback")

	if PrimaryModel() != "custom-primary" {
		t.Errorf("PrimaryModel() = %q, want env override", PrimaryModel())
	}
	if FallbackModel() != "custom-fallback" {
		t.Errorf("FallbackModel() = %q, want env override", FallbackModel())
	}
}
