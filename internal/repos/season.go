package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/momentumhq/momentum-backend/internal/logger"
	pkgerrors "github.com/momentumhq/momentum-backend/internal/pkg/errors"
	"github.com/momentumhq/momentum-backend/internal/types"
)

type SeasonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, season *types.Season) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Season, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type seasonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSeasonRepo(db *gorm.DB, baseLog *logger.Logger) SeasonRepo {
	repoLog := baseLog.With("repo", "SeasonRepo")
	return &seasonRepo{db: db, log: repoLog}
}

func (r *seasonRepo) Create(ctx context.Context, tx *gorm.DB, season *types.Season) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(season).Error
}

func (r *seasonRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Season, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var season types.Season
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&season).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &season, nil
}

func (r *seasonRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Season{}).Error
}
