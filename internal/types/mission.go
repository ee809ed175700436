package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Mission is the rendered coaching focus assigned to one user for one
// phase of one season. Created once per (user, season, phase); repeated
// suggestions inside the same window return this row verbatim.
type Mission struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_mission_user_created,priority:1" json:"user_id"`

	SeasonID   uuid.UUID `gorm:"type:uuid;not null;index" json:"season_id"`
	PhaseIndex int       `gorm:"not null" json:"phase_index"`

	// ArmID may be empty on rows written before arm tracking existed;
	// readers fall back to the first arm of TargetDimension.
	ArmID           string `gorm:"column:arm_id;index" json:"arm_id"`
	TargetDimension string `gorm:"not null;column:target_dimension" json:"target_dimension"`

	Action string `gorm:"not null;column:action" json:"action"`
	Hint   string `gorm:"column:hint" json:"hint"`

	// User-edit history. An edit is not a reward signal; it is kept so
	// future generation prompts can avoid rejected missions.
	OriginalAction *string    `gorm:"column:original_action" json:"original_action,omitempty"`
	OriginalHint   *string    `gorm:"column:original_hint" json:"original_hint,omitempty"`
	ChangeReason   *string    `gorm:"column:change_reason" json:"change_reason,omitempty"`
	EditedAt       *time.Time `gorm:"column:edited_at" json:"edited_at,omitempty"`

	// Selection diagnostics from the bandit (sample, ucb bonus, context
	// boost, final score per the winning arm).
	Diagnostics datatypes.JSON `gorm:"column:diagnostics;type:jsonb" json:"diagnostics,omitempty"`

	MissionEndAt time.Time `gorm:"not null;column:mission_end_at" json:"mission_end_at"`

	CreatedAt time.Time `gorm:"not null;index:idx_mission_user_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Mission) TableName() string { return "mission" }
