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

type MissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, mission *types.Mission) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Mission, error)
	// GetLatestInWindow returns the most recent mission whose creation
	// timestamp falls in [windowStart, windowEnd).
	GetLatestInWindow(ctx context.Context, tx *gorm.DB, userID uuid.UUID, windowStart, windowEnd time.Time) (*types.Mission, error)
	// GetLatestBefore returns the most recent mission created strictly
	// before cutoff.
	GetLatestBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cutoff time.Time) (*types.Mission, error)
	// ListRecentEditReasons returns change reasons from the user's most
	// recently edited missions, newest first.
	ListRecentEditReasons(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]string, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
}

type missionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMissionRepo(db *gorm.DB, baseLog *logger.Logger) MissionRepo {
	repoLog := baseLog.With("repo", "MissionRepo")
	return &missionRepo{db: db, log: repoLog}
}

func (r *missionRepo) Create(ctx context.Context, tx *gorm.DB, mission *types.Mission) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(mission).Error
}

func (r *missionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Mission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var mission types.Mission
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &mission, nil
}

func (r *missionRepo) GetLatestInWindow(ctx context.Context, tx *gorm.DB, userID uuid.UUID, windowStart, windowEnd time.Time) (*types.Mission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var mission types.Mission
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, windowStart, windowEnd).
		Order("created_at DESC").
		First(&mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &mission, nil
}

func (r *missionRepo) GetLatestBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cutoff time.Time) (*types.Mission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var mission types.Mission
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND created_at < ?", userID, cutoff).
		Order("created_at DESC").
		First(&mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &mission, nil
}

func (r *missionRepo) ListRecentEditReasons(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 3
	}

	var missions []*types.Mission
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND change_reason IS NOT NULL", userID).
		Order("edited_at DESC").
		Limit(limit).
		Find(&missions).Error; err != nil {
		return nil, err
	}

	reasons := make([]string, 0, len(missions))
	for _, m := range missions {
		if m.ChangeReason != nil && *m.ChangeReason != "" {
			reasons = append(reasons, *m.ChangeReason)
		}
	}
	return reasons, nil
}

func (r *missionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Mission{}).
		Where("id = ?", id).
		Updates(fields).Error
}
