package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/momentumhq/momentum-backend/internal/logger"
	pkgerrors "github.com/momentumhq/momentum-backend/internal/pkg/errors"
	"github.com/momentumhq/momentum-backend/internal/repos"
	"github.com/momentumhq/momentum-backend/internal/types"
)

// ScoringService reads finalized evaluation results. Season creation
// uses the org aggregate; the delayed-feedback path uses per-user
// scores.
type ScoringService interface {
	GetAggregateOrgStats(ctx context.Context, periodStart, periodEnd time.Time) (types.DimensionScores, error)
	GetFinalizedUserScore(ctx context.Context, userID uuid.UUID, periodStart, periodEnd time.Time) (types.DimensionScores, error)
}

type scoringService struct {
	db        *gorm.DB
	log       *logger.Logger
	scoreRepo repos.UserScoreRepo
}

func NewScoringService(db *gorm.DB, log *logger.Logger, scoreRepo repos.UserScoreRepo) ScoringService {
	return &scoringService{
		db:        db,
		log:       log.With("service", "ScoringService"),
		scoreRepo: scoreRepo,
	}
}

func (s *scoringService) GetAggregateOrgStats(ctx context.Context, periodStart, periodEnd time.Time) (types.DimensionScores, error) {
	stats, count, err := s.scoreRepo.AverageFinalized(ctx, nil, periodStart, periodEnd)
	if err != nil {
		return types.DimensionScores{}, err
	}
	if count == 0 {
		return types.DimensionScores{}, pkgerrors.ErrNotFound
	}
	return stats, nil
}

func (s *scoringService) GetFinalizedUserScore(ctx context.Context, userID uuid.UUID, periodStart, periodEnd time.Time) (types.DimensionScores, error) {
	score, err := s.scoreRepo.LatestFinalizedForUser(ctx, nil, userID, periodStart, periodEnd)
	if err != nil {
		return types.DimensionScores{}, err
	}
	if score == nil {
		return types.DimensionScores{}, pkgerrors.ErrNotFound
	}
	return score.Scores(), nil
}
