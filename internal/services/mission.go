package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/momentumhq/momentum-backend/internal/bandit"
	"github.com/momentumhq/momentum-backend/internal/logger"
	pkgerrors "github.com/momentumhq/momentum-backend/internal/pkg/errors"
	"github.com/momentumhq/momentum-backend/internal/repos"
	"github.com/momentumhq/momentum-backend/internal/types"
)

// MissionService is the top-level coordinator: it resolves the current
// season and phase, hands out phase-scoped missions, and feeds explicit
// ratings and delayed score outcomes back into the bandit.
type MissionService interface {
	// GetSuggestion returns the user's mission for the current phase,
	// generating one only when the phase has none yet. Repeated calls
	// inside one phase return the stored mission verbatim and spend no
	// extra bandit or generation calls.
	GetSuggestion(ctx context.Context, userID uuid.UUID, mode bandit.Mode, recentHistory []string) (*types.Mission, error)

	// ApplyExplicitFeedback folds a 1..5 rating into the rated
	// mission's arm. This is the short-latency learning path.
	ApplyExplicitFeedback(ctx context.Context, userID, missionID uuid.UUID, rating int) error

	// ApplyDelayedOutcome folds a finalized evaluation score into the
	// mission that was in force leading into the evaluation window, not
	// the mission in force now.
	ApplyDelayedOutcome(ctx context.Context, userID uuid.UUID, evaluationWindowEnd time.Time, finalized types.DimensionScores) error

	// EditMission records a user's rewrite of the rendered text. An
	// edit is not a reward signal; the original copy and the stated
	// reason are preserved for future generation prompts.
	EditMission(ctx context.Context, userID, missionID uuid.UUID, action, hint, changeReason string) (*types.Mission, error)
}

type missionService struct {
	db          *gorm.DB
	log         *logger.Logger
	seasonSvc   SeasonService
	textgen     TextGenService
	brain       *bandit.Brain
	catalog     *bandit.Catalog
	banditRepo  repos.BanditStateRepo
	missionRepo repos.MissionRepo
}

func NewMissionService(
	db *gorm.DB,
	log *logger.Logger,
	seasonSvc SeasonService,
	textgen TextGenService,
	brain *bandit.Brain,
	catalog *bandit.Catalog,
	banditRepo repos.BanditStateRepo,
	missionRepo repos.MissionRepo,
) MissionService {
	return &missionService{
		db:          db,
		log:         log.With("service", "MissionService"),
		seasonSvc:   seasonSvc,
		textgen:     textgen,
		brain:       brain,
		catalog:     catalog,
		banditRepo:  banditRepo,
		missionRepo: missionRepo,
	}
}

func (s *missionService) GetSuggestion(ctx context.Context, userID uuid.UUID, mode bandit.Mode, recentHistory []string) (*types.Mission, error) {
	if mode != "" && !mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q: %w", mode, pkgerrors.ErrInvalidArgument)
	}

	season, err := s.seasonSvc.GetOrCreateCurrentSeason(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	phase := ComputePhaseWindow(season, now)

	existing, err := s.missionRepo.GetLatestInWindow(ctx, nil, userID, phase.StartAt, phase.EndAt)
	if err != nil && !errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, err
	}
	// Reuse only while the season still matches; a rotated season
	// invalidates the cached mission even inside the same phase window.
	if existing != nil && existing.SeasonID == season.ID {
		return existing, nil
	}

	state, err := s.banditRepo.Get(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	sel := s.brain.SelectArm(mode, state, bandit.Dimension(season.TargetDimension))
	arm, ok := s.catalog.Get(sel.ArmID)
	if !ok {
		return nil, fmt.Errorf("selected arm %q missing from catalog", sel.ArmID)
	}

	avoidReasons, rerr := s.missionRepo.ListRecentEditReasons(ctx, nil, userID, 3)
	if rerr != nil {
		s.log.Warn("Could not load edit reasons for prompt", "user_id", userID, "error", rerr)
	}

	action, hint := s.renderMission(ctx, arm, season, recentHistory, avoidReasons)

	mission := &types.Mission{
		ID:              uuid.New(),
		UserID:          userID,
		SeasonID:        season.ID,
		PhaseIndex:      phase.Index,
		ArmID:           arm.ID,
		TargetDimension: season.TargetDimension,
		Action:          action,
		Hint:            hint,
		MissionEndAt:    phase.EndAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if raw, merr := json.Marshal(sel); merr == nil {
		mission.Diagnostics = raw
	}

	if err := s.missionRepo.Create(ctx, nil, mission); err != nil {
		return nil, err
	}

	s.log.Info("Mission generated",
		"user_id", userID,
		"season_id", season.ID,
		"phase_index", phase.Index,
		"arm_id", arm.ID,
		"final_score", sel.FinalScore,
	)
	return mission, nil
}

// renderMission asks the generator for mission copy and falls back to
// the arm's own focus/description when generation fails, so a slow or
// broken model never leaves the user without a mission.
func (s *missionService) renderMission(ctx context.Context, arm bandit.Arm, season *types.Season, recentHistory, avoidReasons []string) (string, string) {
	cctx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	text, err := s.textgen.RenderMissionText(cctx, arm, MissionContext{
		SeasonObjective: season.Objective,
		TargetDimension: bandit.Dimension(season.TargetDimension),
		RecentHistory:   recentHistory,
		AvoidReasons:    avoidReasons,
	})
	if err != nil {
		s.log.Warn("Mission text generation failed, using arm defaults", "arm_id", arm.ID, "error", err)
		return arm.Focus, arm.Description
	}
	return text.Action, text.Hint
}

func (s *missionService) ApplyExplicitFeedback(ctx context.Context, userID, missionID uuid.UUID, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d: %w", rating, pkgerrors.ErrInvalidArgument)
	}

	mission, err := s.missionRepo.GetByID(ctx, nil, missionID)
	if err != nil {
		return err
	}
	if mission.UserID != userID {
		return pkgerrors.ErrNotFound
	}

	reward := float64(rating-1) / 4.0
	return s.applyReward(ctx, userID, s.resolveArm(mission), reward*100)
}

func (s *missionService) ApplyDelayedOutcome(ctx context.Context, userID uuid.UUID, evaluationWindowEnd time.Time, finalized types.DimensionScores) error {
	mission, err := s.missionRepo.GetLatestBefore(ctx, nil, userID, evaluationWindowEnd)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			// No mission was in force before the window; nothing to learn.
			s.log.Debug("No mission precedes evaluation window", "user_id", userID, "window_end", evaluationWindowEnd)
			return nil
		}
		return err
	}

	dimension := bandit.Dimension(mission.TargetDimension)
	rawScore := finalized.For(dimension)
	return s.applyReward(ctx, userID, s.resolveArm(mission), rawScore)
}

// resolveArm returns the mission's recorded arm, falling back to the
// first arm of the mission's dimension for rows that predate arm
// tracking.
func (s *missionService) resolveArm(mission *types.Mission) string {
	if mission.ArmID != "" {
		if _, ok := s.catalog.Get(mission.ArmID); ok {
			return mission.ArmID
		}
	}
	return s.brain.ArmForDimension(bandit.Dimension(mission.TargetDimension))
}

func (s *missionService) applyReward(ctx context.Context, userID uuid.UUID, armID string, rawScore float64) error {
	state, err := s.banditRepo.Get(ctx, nil, userID)
	if err != nil {
		return err
	}
	next := s.brain.UpdateState(state, armID, rawScore)
	return s.banditRepo.Save(ctx, nil, userID, next)
}

func (s *missionService) EditMission(ctx context.Context, userID, missionID uuid.UUID, action, hint, changeReason string) (*types.Mission, error) {
	if action == "" && hint == "" {
		return nil, fmt.Errorf("edit requires action or hint: %w", pkgerrors.ErrInvalidArgument)
	}
	if changeReason == "" {
		return nil, fmt.Errorf("edit requires a change reason: %w", pkgerrors.ErrInvalidArgument)
	}

	mission, err := s.missionRepo.GetByID(ctx, nil, missionID)
	if err != nil {
		return nil, err
	}
	if mission.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"change_reason": changeReason,
		"edited_at":     now,
		"updated_at":    now,
	}
	// The first edit snapshots the rendered copy; later edits keep it.
	if mission.EditedAt == nil {
		fields["original_action"] = mission.Action
		fields["original_hint"] = mission.Hint
	}
	if action != "" {
		fields["action"] = action
	}
	if hint != "" {
		fields["hint"] = hint
	}

	if err := s.missionRepo.UpdateFields(ctx, nil, mission.ID, fields); err != nil {
		return nil, err
	}
	return s.missionRepo.GetByID(ctx, nil, mission.ID)
}
