package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/momentumhq/momentum-backend/internal/logger"
	pkgerrors "github.com/momentumhq/momentum-backend/internal/pkg/errors"
	"github.com/momentumhq/momentum-backend/internal/types"
)

// SeasonLockRepo manages the single active-season lock row. AcquireActive
// relies on the unique index on slot: exactly one concurrent insert can
// succeed, losers get ErrConflict.
type SeasonLockRepo interface {
	GetActive(ctx context.Context, tx *gorm.DB) (*types.SeasonLock, error)
	AcquireActive(ctx context.Context, tx *gorm.DB, seasonID uuid.UUID, expiresAt time.Time) (*types.SeasonLock, error)
	Retire(ctx context.Context, tx *gorm.DB, lockID uuid.UUID) error
}

type seasonLockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSeasonLockRepo(db *gorm.DB, baseLog *logger.Logger) SeasonLockRepo {
	repoLog := baseLog.With("repo", "SeasonLockRepo")
	return &seasonLockRepo{db: db, log: repoLog}
}

func (r *seasonLockRepo) GetActive(ctx context.Context, tx *gorm.DB) (*types.SeasonLock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var lock types.SeasonLock
	if err := transaction.WithContext(ctx).
		Where("slot = ?", types.ActiveSeasonSlot).
		First(&lock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &lock, nil
}

func (r *seasonLockRepo) AcquireActive(ctx context.Context, tx *gorm.DB, seasonID uuid.UUID, expiresAt time.Time) (*types.SeasonLock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now().UTC()
	lock := &types.SeasonLock{
		ID:        uuid.New(),
		Slot:      types.ActiveSeasonSlot,
		SeasonID:  seasonID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := transaction.WithContext(ctx).Create(lock).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.ErrConflict
		}
		return nil, err
	}
	return lock, nil
}

func (r *seasonLockRepo) Retire(ctx context.Context, tx *gorm.DB, lockID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	// Rewriting the slot frees the unique value while keeping the row
	// for audit.
	return transaction.WithContext(ctx).
		Model(&types.SeasonLock{}).
		Where("id = ? AND slot = ?", lockID, types.ActiveSeasonSlot).
		Updates(map[string]any{
			"slot":       "retired:" + lockID.String(),
			"updated_at": time.Now().UTC(),
		}).Error
}
