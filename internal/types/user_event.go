package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserEvent is the append-only activity log. Season creation summarizes
// recent events into the narrative prompt.
type UserEvent struct {
	ID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind    string         `gorm:"not null;column:kind;index" json:"kind"`
	Summary string         `gorm:"column:summary" json:"summary"`
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (UserEvent) TableName() string { return "user_event" }
