package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/momentumhq/momentum-backend/internal/bandit"
	redisclient "github.com/momentumhq/momentum-backend/internal/clients/redis"
	"github.com/momentumhq/momentum-backend/internal/logger"
	pkgerrors "github.com/momentumhq/momentum-backend/internal/pkg/errors"
	"github.com/momentumhq/momentum-backend/internal/repos"
	"github.com/momentumhq/momentum-backend/internal/types"
)

const (
	// SeasonLength is the full org-wide evaluation cycle.
	SeasonLength = 42 * 24 * time.Hour
	// PhaseLength subdivides a season into fixed windows; every user's
	// mission expires on a phase boundary.
	PhaseLength = 14 * 24 * time.Hour

	maxSeasonCreateAttempts = 3
	collaboratorTimeout     = 10 * time.Second
)

// Phase is a deterministic, stateless subdivision of a season. It is
// never persisted; it is recomputed from the season timestamps on every
// request.
type Phase struct {
	Index   int       `json:"index"`
	Count   int       `json:"count"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// ComputePhaseWindow derives the phase containing now. Pure arithmetic,
// no I/O. The index clamps to [0, count-1] and the final phase's end
// clamps to the season end, so a season whose length is not an exact
// multiple of the phase length still closes cleanly.
func ComputePhaseWindow(season *types.Season, now time.Time) Phase {
	total := season.EndAt.Sub(season.StartAt)
	count := int((total + PhaseLength - 1) / PhaseLength)
	if count < 1 {
		count = 1
	}

	idx := int(now.Sub(season.StartAt) / PhaseLength)
	if idx < 0 {
		idx = 0
	}
	if idx > count-1 {
		idx = count - 1
	}

	start := season.StartAt.Add(time.Duration(idx) * PhaseLength)
	end := start.Add(PhaseLength)
	if end.After(season.EndAt) {
		end = season.EndAt
	}

	return Phase{Index: idx, Count: count, StartAt: start, EndAt: end}
}

// SeasonService owns the org-wide season singleton. At most one season
// is active at any instant; concurrent creation races are resolved by
// the unique constraint on the season lock, not by an in-process mutex,
// so the guarantee holds across stateless workers.
type SeasonService interface {
	GetOrCreateCurrentSeason(ctx context.Context, triggerID uuid.UUID) (*types.Season, error)
}

type seasonService struct {
	db         *gorm.DB
	log        *logger.Logger
	seasonRepo repos.SeasonRepo
	lockRepo   repos.SeasonLockRepo
	eventRepo  repos.UserEventRepo
	scoring    ScoringService
	textgen    TextGenService
	cache      redisclient.SeasonCache
}

func NewSeasonService(
	db *gorm.DB,
	log *logger.Logger,
	seasonRepo repos.SeasonRepo,
	lockRepo repos.SeasonLockRepo,
	eventRepo repos.UserEventRepo,
	scoring ScoringService,
	textgen TextGenService,
	cache redisclient.SeasonCache,
) SeasonService {
	return &seasonService{
		db:         db,
		log:        log.With("service", "SeasonService"),
		seasonRepo: seasonRepo,
		lockRepo:   lockRepo,
		eventRepo:  eventRepo,
		scoring:    scoring,
		textgen:    textgen,
		cache:      cache,
	}
}

func (s *seasonService) GetOrCreateCurrentSeason(ctx context.Context, triggerID uuid.UUID) (*types.Season, error) {
	now := time.Now().UTC()

	if s.cache != nil {
		season, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("Season cache read failed, falling back to database", "error", err)
		} else if season != nil && season.EndAt.After(now) {
			return season, nil
		}
	}

	for attempt := 0; attempt < maxSeasonCreateAttempts; attempt++ {
		lock, err := s.lockRepo.GetActive(ctx, nil)
		if err != nil && !errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, err
		}

		if lock != nil {
			if lock.ExpiresAt.After(now) {
				season, err := s.seasonRepo.GetByID(ctx, nil, lock.SeasonID)
				if err != nil {
					if errors.Is(err, pkgerrors.ErrNotFound) {
						// Lock points at a season that no longer exists.
						// Retire it and create a fresh one.
						s.log.Warn("Active lock references a missing season", "season_id", lock.SeasonID)
						if rerr := s.lockRepo.Retire(ctx, nil, lock.ID); rerr != nil {
							return nil, rerr
						}
						continue
					}
					return nil, err
				}
				s.cacheSet(ctx, season)
				return season, nil
			}

			if err := s.lockRepo.Retire(ctx, nil, lock.ID); err != nil {
				return nil, err
			}
		}

		season := s.buildSeason(ctx, triggerID, now)
		if err := s.seasonRepo.Create(ctx, nil, season); err != nil {
			return nil, err
		}

		if _, err := s.lockRepo.AcquireActive(ctx, nil, season.ID, season.EndAt); err != nil {
			if errors.Is(err, pkgerrors.ErrConflict) {
				// Another request won the race. Discard our season and
				// re-read; the next iteration sees the winner's lock.
				s.log.Info("Lost season creation race, retrying", "attempt", attempt+1, "discarded_season", season.ID)
				if derr := s.seasonRepo.Delete(ctx, nil, season.ID); derr != nil {
					s.log.Warn("Failed to discard losing season", "season_id", season.ID, "error", derr)
				}
				continue
			}
			return nil, err
		}

		s.log.Info("New season started",
			"season_id", season.ID,
			"target_dimension", season.TargetDimension,
			"start_at", season.StartAt,
			"end_at", season.EndAt,
			"trigger_id", triggerID,
		)
		s.cacheSet(ctx, season)
		return season, nil
	}

	return nil, fmt.Errorf("season lock contention not resolved after %d attempts: %w", maxSeasonCreateAttempts, pkgerrors.ErrConflict)
}

// buildSeason assembles a new season definition. It never fails: the
// narrative generator and the metrics source are best-effort, and a
// fixed default takes over whenever they are unavailable, so season
// creation can never hard-fail the request path.
func (s *seasonService) buildSeason(ctx context.Context, triggerID uuid.UUID, now time.Time) *types.Season {
	cctx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	var (
		stats    types.DimensionScores
		statsOK  bool
		activity []string
	)

	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error {
		got, err := s.scoring.GetAggregateOrgStats(gctx, now.Add(-SeasonLength), now)
		if err != nil {
			return fmt.Errorf("aggregate org stats: %w", err)
		}
		stats = got
		statsOK = true
		return nil
	})
	g.Go(func() error {
		events, err := s.eventRepo.ListRecent(gctx, nil, now.Add(-PhaseLength), 20)
		if err != nil {
			return fmt.Errorf("recent activity: %w", err)
		}
		for _, ev := range events {
			if ev.Summary != "" {
				activity = append(activity, ev.Kind+": "+ev.Summary)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("Season metrics gathering incomplete", "trigger_id", triggerID, "error", err)
	}

	narrative, err := s.textgen.RenderSeasonNarrative(cctx, stats, activity)
	if err != nil {
		s.log.Warn("Season narrative generation failed, using default", "trigger_id", triggerID, "error", err)
		narrative = s.defaultNarrative(stats, statsOK)
	}

	season := &types.Season{
		ID:              uuid.New(),
		TargetDimension: string(narrative.TargetDimension),
		Objective:       narrative.Objective,
		KeyResult:       narrative.KeyResult,
		Strategy:        narrative.Strategy,
		NarrativeText:   narrative.NarrativeText,
		StartAt:         now,
		EndAt:           now.Add(SeasonLength),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if statsOK {
		if raw, merr := json.Marshal(stats); merr == nil {
			season.Metrics = raw
		}
	}
	return season
}

// defaultNarrative is the mandatory fallback season definition.
func (s *seasonService) defaultNarrative(stats types.DimensionScores, statsOK bool) *SeasonNarrative {
	target := bandit.DimensionProductivity
	if statsOK {
		target = stats.Weakest()
	}
	return &SeasonNarrative{
		Objective:       "Raise the team's everyday delivery",
		KeyResult:       "Lift the team's average score on the focus dimension by five points over six weeks",
		Strategy:        "Each person works a personal two-week mission aligned with the focus dimension. Missions rotate on phase boundaries so progress compounds.",
		TargetDimension: target,
		NarrativeText:   "A steady season: pick the weakest dimension, give everyone a concrete personal mission, and review at each phase boundary.",
	}
}

func (s *seasonService) cacheSet(ctx context.Context, season *types.Season) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, season); err != nil {
		s.log.Warn("Season cache write failed", "season_id", season.ID, "error", err)
	}
}
