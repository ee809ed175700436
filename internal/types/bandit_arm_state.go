package types

import (
	"time"

	"github.com/google/uuid"
)

// BanditArmState is the persisted Beta posterior for one (user, arm)
// pair. Alpha/Beta only grow; Trials increments once per update. Writes
// go through the bandit-state repo as a full-state upsert.
type BanditArmState struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_bandit_user_arm,unique,priority:1" json:"user_id"`
	ArmID  string    `gorm:"not null;column:arm_id;index:idx_bandit_user_arm,unique,priority:2" json:"arm_id"`

	Alpha  float64 `gorm:"not null;column:alpha" json:"alpha"`
	Beta   float64 `gorm:"not null;column:beta" json:"beta"`
	Trials int     `gorm:"not null;column:trials" json:"trials"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (BanditArmState) TableName() string { return "bandit_arm_state" }
