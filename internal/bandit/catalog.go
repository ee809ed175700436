package bandit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dimension is one of the three competency axes every score and every
// coaching arm maps onto.
type Dimension string

const (
	DimensionProductivity Dimension = "productivity"
	DimensionQuality      Dimension = "quality"
	DimensionTeamwork     Dimension = "teamwork"
)

func (d Dimension) Valid() bool {
	switch d {
	case DimensionProductivity, DimensionQuality, DimensionTeamwork:
		return true
	}
	return false
}

// Dimensions lists the axes in their canonical order.
func Dimensions() []Dimension {
	return []Dimension{DimensionProductivity, DimensionQuality, DimensionTeamwork}
}

// Mode is the caller-declared usage mode. Each mode favors one or two
// arms through the brain's boost table.
type Mode string

const (
	ModeDeepWork      Mode = "deep_work"
	ModeCollaboration Mode = "collaboration"
	ModeLearning      Mode = "learning"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeDeepWork, ModeCollaboration, ModeLearning:
		return true
	}
	return false
}

// Arm is one coaching focus. Arms are defined once at startup and never
// mutated.
type Arm struct {
	ID          string    `yaml:"id"`
	Dimension   Dimension `yaml:"dimension"`
	Focus       string    `yaml:"focus"`
	Description string    `yaml:"description"`
}

// Catalog is the immutable registry of arms. Iteration order is the
// declaration order, which is also the tie-break order during selection.
type Catalog struct {
	arms []Arm
	byID map[string]Arm
}

func NewCatalog(arms []Arm) (*Catalog, error) {
	if len(arms) == 0 {
		return nil, fmt.Errorf("catalog requires at least one arm")
	}
	byID := make(map[string]Arm, len(arms))
	for _, a := range arms {
		if a.ID == "" {
			return nil, fmt.Errorf("catalog arm missing id")
		}
		if !a.Dimension.Valid() {
			return nil, fmt.Errorf("catalog arm %q has unknown dimension %q", a.ID, a.Dimension)
		}
		if _, dup := byID[a.ID]; dup {
			return nil, fmt.Errorf("catalog arm %q declared twice", a.ID)
		}
		byID[a.ID] = a
	}
	for _, d := range Dimensions() {
		found := false
		for _, a := range arms {
			if a.Dimension == d {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("catalog has no arm for dimension %q", d)
		}
	}
	out := make([]Arm, len(arms))
	copy(out, arms)
	return &Catalog{arms: out, byID: byID}, nil
}

// DefaultCatalog is the built-in arm set: two coaching focuses per
// dimension.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Arm{
		{
			ID:          "daily_top_three",
			Dimension:   DimensionProductivity,
			Focus:       "Plan a top-3 list every morning",
			Description: "Start each workday by writing down the three outcomes that matter most and finish them before anything else.",
		},
		{
			ID:          "deep_work_blocks",
			Dimension:   DimensionProductivity,
			Focus:       "Protect two deep-work blocks",
			Description: "Reserve two uninterrupted 90-minute blocks per day for the hardest task, notifications off.",
		},
		{
			ID:          "defect_checklist",
			Dimension:   DimensionQuality,
			Focus:       "Run a pre-handoff checklist",
			Description: "Before handing work off, walk through a short personal checklist of the defects you most often let slip.",
		},
		{
			ID:          "review_before_submit",
			Dimension:   DimensionQuality,
			Focus:       "Self-review before submitting",
			Description: "Re-read every deliverable once, end to end, as if you were the reviewer, before submitting it.",
		},
		{
			ID:          "unblock_a_teammate",
			Dimension:   DimensionTeamwork,
			Focus:       "Unblock one teammate daily",
			Description: "Once a day, find a teammate who is stuck and spend fifteen minutes helping them move forward.",
		},
		{
			ID:          "share_one_learning",
			Dimension:   DimensionTeamwork,
			Focus:       "Share one learning per week",
			Description: "Write up one thing you learned this week and post it where the team will actually read it.",
		},
	})
	if err != nil {
		// The built-in set is validated by tests; reaching this means the
		// binary itself is broken.
		panic(err)
	}
	return c
}

// LoadCatalog reads an arm set from a YAML file, replacing the built-in
// default wholesale.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arm catalog: %w", err)
	}
	var doc struct {
		Arms []Arm `yaml:"arms"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse arm catalog: %w", err)
	}
	return NewCatalog(doc.Arms)
}

// Arms returns the arms in catalog order. The returned slice is shared;
// callers must not mutate it.
func (c *Catalog) Arms() []Arm { return c.arms }

func (c *Catalog) Get(id string) (Arm, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// FirstForDimension returns the first catalog arm whose dimension
// matches. Used as the deterministic fallback when no explicit
// mode/context is available.
func (c *Catalog) FirstForDimension(d Dimension) (Arm, bool) {
	for _, a := range c.arms {
		if a.Dimension == d {
			return a, true
		}
	}
	return Arm{}, false
}
