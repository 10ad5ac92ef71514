package rag

import (
	"testing"

	"lumina-rag/internal/models"
)

func TestParseImagePlan_ThreeWellFormedLines(t *testing.T) {
	raw := "mitochondria diagram | shows organelle structure\ncell membrane closeup | illustrates the lipid bilayer\nATP synthesis chart | explains energy production"

	plan := ParseImagePlan(raw)
	if len(plan) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(plan))
	}
	if plan[0].SearchText != "mitochondria diagram" {
		t.Errorf("unexpected search text: %q", plan[0].SearchText)
	}
	if plan[0].RelevanceLabel != "shows organelle structure" {
		t.Errorf("unexpected label: %q", plan[0].RelevanceLabel)
	}
}

func TestParseImagePlan_DropsMalformedLines(t *testing.T) {
	raw := "good query | good label\nthis line has no separator\nanother | fine"

	plan := ParseImagePlan(raw)
	if len(plan) != 2 {
		t.Fatalf("expected malformed line dropped, got %d entries", len(plan))
	}
}

func TestParseImagePlan_NeverExceedsMax(t *testing.T) {
	raw := "a | 1\nb | 2\nc | 3\nd | 4\ne | 5"

	plan := ParseImagePlan(raw)
	if len(plan) > models.MaxImageQueries {
		t.Errorf("plan exceeds maximum: %d", len(plan))
	}
	if len(plan) != 3 {
		t.Errorf("expected only the first 3 lines considered, got %d", len(plan))
	}
}

func TestParseImagePlan_ExtraSeparatorsStayInLabel(t *testing.T) {
	plan := ParseImagePlan("query text | label | with pipe")
	if len(plan) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(plan))
	}
	if plan[0].RelevanceLabel != "label | with pipe" {
		t.Errorf("expected remainder kept as label, got %q", plan[0].RelevanceLabel)
	}
}

func TestParseImagePlan_EmptyAndWhitespace(t *testing.T) {
	if plan := ParseImagePlan(""); len(plan) != 0 {
		t.Errorf("expected empty plan for empty output, got %d", len(plan))
	}
	if plan := ParseImagePlan("   | label only"); len(plan) != 0 {
		t.Errorf("expected entry with empty search text dropped, got %d", len(plan))
	}
}
