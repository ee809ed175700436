package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Season is the org-wide evaluation cycle. Exactly one season may be
// active (non-expired) at any instant; that invariant is enforced by
// the SeasonLock row, not by this record.
type Season struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TargetDimension string    `gorm:"not null;column:target_dimension" json:"target_dimension"`

	// Narrative fields are produced by the text-generation collaborator
	// and are opaque to the bandit.
	Objective     string `gorm:"not null;column:objective" json:"objective"`
	KeyResult     string `gorm:"not null;column:key_result" json:"key_result"`
	Strategy      string `gorm:"not null;column:strategy" json:"strategy"`
	NarrativeText string `gorm:"column:narrative_text" json:"narrative_text"`

	// Aggregate org metrics the narrative was generated from.
	Metrics datatypes.JSON `gorm:"column:metrics;type:jsonb" json:"metrics,omitempty"`

	StartAt   time.Time `gorm:"not null;index" json:"start_at"`
	EndAt     time.Time `gorm:"not null;index" json:"end_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Season) TableName() string { return "season" }
