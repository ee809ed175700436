package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/momentumhq/momentum-backend/internal/logger"
	"github.com/momentumhq/momentum-backend/internal/types"
)

type UserScoreRepo interface {
	Create(ctx context.Context, tx *gorm.DB, score *types.UserScore) error
	// AverageFinalized aggregates finalized scores across all users in
	// the period. Returns the averages and the number of rows counted.
	AverageFinalized(ctx context.Context, tx *gorm.DB, periodStart, periodEnd time.Time) (types.DimensionScores, int64, error)
	// LatestFinalizedForUser returns the newest finalized score for one
	// user within the period, or nil when there is none.
	LatestFinalizedForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, periodStart, periodEnd time.Time) (*types.UserScore, error)
	// ListFinalizedUnapplied returns finalized scores not yet folded
	// into the bandit, oldest first.
	ListFinalizedUnapplied(ctx context.Context, tx *gorm.DB, limit int) ([]*types.UserScore, error)
	MarkApplied(ctx context.Context, tx *gorm.DB, id uuid.UUID, appliedAt time.Time) error
}

type userScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserScoreRepo(db *gorm.DB, baseLog *logger.Logger) UserScoreRepo {
	repoLog := baseLog.With("repo", "UserScoreRepo")
	return &userScoreRepo{db: db, log: repoLog}
}

func (r *userScoreRepo) Create(ctx context.Context, tx *gorm.DB, score *types.UserScore) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(score).Error
}

func (r *userScoreRepo) AverageFinalized(ctx context.Context, tx *gorm.DB, periodStart, periodEnd time.Time) (types.DimensionScores, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row struct {
		Productivity *float64
		Quality      *float64
		Teamwork     *float64
		Count        int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.UserScore{}).
		Select("AVG(productivity) AS productivity, AVG(quality) AS quality, AVG(teamwork) AS teamwork, COUNT(*) AS count").
		Where("finalized_at IS NOT NULL AND period_start >= ? AND period_end <= ?", periodStart, periodEnd).
		Scan(&row).Error; err != nil {
		return types.DimensionScores{}, 0, err
	}

	var out types.DimensionScores
	if row.Productivity != nil {
		out.Productivity = *row.Productivity
	}
	if row.Quality != nil {
		out.Quality = *row.Quality
	}
	if row.Teamwork != nil {
		out.Teamwork = *row.Teamwork
	}
	return out, row.Count, nil
}

func (r *userScoreRepo) LatestFinalizedForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, periodStart, periodEnd time.Time) (*types.UserScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var scores []*types.UserScore
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND finalized_at IS NOT NULL AND period_start >= ? AND period_end <= ?", userID, periodStart, periodEnd).
		Order("period_end DESC").
		Limit(1).
		Find(&scores).Error; err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}
	return scores[0], nil
}

func (r *userScoreRepo) ListFinalizedUnapplied(ctx context.Context, tx *gorm.DB, limit int) ([]*types.UserScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}

	var scores []*types.UserScore
	if err := transaction.WithContext(ctx).
		Where("finalized_at IS NOT NULL AND applied_at IS NULL").
		Order("period_end ASC").
		Limit(limit).
		Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

func (r *userScoreRepo) MarkApplied(ctx context.Context, tx *gorm.DB, id uuid.UUID, appliedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.UserScore{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"applied_at": appliedAt,
			"updated_at": appliedAt,
		}).Error
}
