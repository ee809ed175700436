package types

import (
	"time"

	"github.com/google/uuid"
)

// ActiveSeasonSlot is the single slot value every live lock row claims.
// The unique index on slot is what makes concurrent season creation a
// race exactly one writer can win.
const ActiveSeasonSlot = "active"

// SeasonLock marks the currently active season. Insert it with
// Slot=ActiveSeasonSlot; a uniqueness violation means another request
// won the race. Retiring a lock rewrites the slot so the unique value
// frees up while the row stays behind for audit.
type SeasonLock struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slot      string    `gorm:"uniqueIndex;not null;column:slot" json:"slot"`
	SeasonID  uuid.UUID `gorm:"type:uuid;not null;column:season_id" json:"season_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (SeasonLock) TableName() string { return "season_lock" }
