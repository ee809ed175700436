package types

import (
	"time"

	"github.com/google/uuid"
)

// UserScore is one finalized evaluation-window result for one user,
// written by the scoring pipeline. AppliedAt records when the score was
// fed back into the bandit as a delayed outcome.
type UserScore struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	PeriodStart time.Time `gorm:"not null;index" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null;index" json:"period_end"`

	Productivity float64 `gorm:"not null;column:productivity" json:"productivity"`
	Quality      float64 `gorm:"not null;column:quality" json:"quality"`
	Teamwork     float64 `gorm:"not null;column:teamwork" json:"teamwork"`

	FinalizedAt *time.Time `gorm:"column:finalized_at;index" json:"finalized_at,omitempty"`
	AppliedAt   *time.Time `gorm:"column:applied_at;index" json:"applied_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserScore) TableName() string { return "user_score" }

// Scores flattens the row into per-dimension scores.
func (u UserScore) Scores() DimensionScores {
	return DimensionScores{
		Productivity: u.Productivity,
		Quality:      u.Quality,
		Teamwork:     u.Teamwork,
	}
}
