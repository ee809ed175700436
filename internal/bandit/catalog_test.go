package bandit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if got := len(c.Arms()); got != 6 {
		t.Fatalf("default catalog has %d arms, want 6", got)
	}
	for _, d := range Dimensions() {
		n := 0
		for _, a := range c.Arms() {
			if a.Dimension == d {
				n++
			}
		}
		if n != 2 {
			t.Fatalf("dimension %q has %d arms, want 2", d, n)
		}
	}
	for _, a := range c.Arms() {
		if a.Focus == "" || a.Description == "" {
			t.Fatalf("arm %q missing focus or description", a.ID)
		}
		got, ok := c.Get(a.ID)
		if !ok || got.ID != a.ID {
			t.Fatalf("Get(%q) did not round-trip", a.ID)
		}
	}
}

func TestNewCatalogValidation(t *testing.T) {
	valid := func(id string, d Dimension) Arm {
		return Arm{ID: id, Dimension: d, Focus: "f", Description: "d"}
	}
	base := []Arm{
		valid("p1", DimensionProductivity),
		valid("q1", DimensionQuality),
		valid("t1", DimensionTeamwork),
	}

	cases := []struct {
		name string
		arms []Arm
	}{
		{name: "empty", arms: nil},
		{name: "missing_id", arms: append(append([]Arm{}, base...), Arm{Dimension: DimensionQuality})},
		{name: "duplicate_id", arms: append(append([]Arm{}, base...), valid("p1", DimensionProductivity))},
		{name: "unknown_dimension", arms: append(append([]Arm{}, base...), valid("x1", "velocity"))},
		{name: "uncovered_dimension", arms: base[:2]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCatalog(tc.arms); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}

	if _, err := NewCatalog(base); err != nil {
		t.Fatalf("minimal valid catalog rejected: %v", err)
	}
}

func TestLoadCatalog(t *testing.T) {
	doc := `arms:
  - id: morning_plan
    dimension: productivity
    focus: "Plan the morning"
    description: "Write a plan before opening anything else."
  - id: quality_pass
    dimension: quality
    focus: "One quality pass"
    description: "Review your own work before handoff."
  - id: help_someone
    dimension: teamwork
    focus: "Help someone"
    description: "Spend time unblocking a teammate."
`
	path := filepath.Join(t.TempDir(), "arms.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if got := len(c.Arms()); got != 3 {
		t.Fatalf("loaded %d arms, want 3", got)
	}
	arm, ok := c.FirstForDimension(DimensionQuality)
	if !ok || arm.ID != "quality_pass" {
		t.Fatalf("FirstForDimension(quality) = %+v, want quality_pass", arm)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
