package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/momentumhq/momentum-backend/internal/logger"
	"github.com/momentumhq/momentum-backend/internal/repos"
)

// ScoreEvalService drains finalized evaluation scores into the bandit.
// The scoring pipeline writes UserScore rows; this worker is the
// long-feedback-latency bridge that turns them into delayed outcomes.
type ScoreEvalService interface {
	StartWorker(ctx context.Context)
}

type scoreEvalService struct {
	db         *gorm.DB
	log        *logger.Logger
	scoreRepo  repos.UserScoreRepo
	missionSvc MissionService

	interval  time.Duration
	batchSize int
}

func NewScoreEvalService(db *gorm.DB, log *logger.Logger, scoreRepo repos.UserScoreRepo, missionSvc MissionService) ScoreEvalService {
	return &scoreEvalService{
		db:         db,
		log:        log.With("service", "ScoreEvalService"),
		scoreRepo:  scoreRepo,
		missionSvc: missionSvc,
		interval:   time.Minute,
		batchSize:  50,
	}
}

func (s *scoreEvalService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.runOnce(ctx); err != nil {
					s.log.Warn("Score evaluation pass failed", "error", err)
				}
			}
		}
	}()
}

// runOnce applies one batch of finalized, unapplied scores. A score
// with no preceding mission is still marked applied: ApplyDelayedOutcome
// treats that as a no-op and retrying it would never change anything.
func (s *scoreEvalService) runOnce(ctx context.Context) error {
	scores, err := s.scoreRepo.ListFinalizedUnapplied(ctx, nil, s.batchSize)
	if err != nil {
		return err
	}

	for _, score := range scores {
		if err := s.missionSvc.ApplyDelayedOutcome(ctx, score.UserID, score.PeriodEnd, score.Scores()); err != nil {
			s.log.Warn("Delayed outcome failed, will retry",
				"user_id", score.UserID,
				"score_id", score.ID,
				"error", err,
			)
			continue
		}
		if err := s.scoreRepo.MarkApplied(ctx, nil, score.ID, time.Now().UTC()); err != nil {
			s.log.Warn("Could not mark score applied", "score_id", score.ID, "error", err)
		}
	}
	return nil
}
