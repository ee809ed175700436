package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/momentumhq/momentum-backend/internal/bandit"
	pkgerrors "github.com/momentumhq/momentum-backend/internal/pkg/errors"
	"github.com/momentumhq/momentum-backend/internal/types"
)

func TestComputePhaseWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	standard := &types.Season{StartAt: base, EndAt: base.Add(SeasonLength)}
	short := &types.Season{StartAt: base, EndAt: base.Add(30 * day)}

	cases := []struct {
		name      string
		season    *types.Season
		now       time.Time
		wantIdx   int
		wantCount int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "first_phase",
			season:    standard,
			now:       base.Add(time.Hour),
			wantIdx:   0,
			wantCount: 3,
			wantStart: base,
			wantEnd:   base.Add(14 * day),
		},
		{
			name:      "second_phase",
			season:    standard,
			now:       base.Add(15 * day),
			wantIdx:   1,
			wantCount: 3,
			wantStart: base.Add(14 * day),
			wantEnd:   base.Add(28 * day),
		},
		{
			name:      "final_phase",
			season:    standard,
			now:       base.Add(41 * day),
			wantIdx:   2,
			wantCount: 3,
			wantStart: base.Add(28 * day),
			wantEnd:   base.Add(42 * day),
		},
		{
			name:      "at_season_end_clamps_to_last_phase",
			season:    standard,
			now:       base.Add(42 * day),
			wantIdx:   2,
			wantCount: 3,
			wantStart: base.Add(28 * day),
			wantEnd:   base.Add(42 * day),
		},
		{
			name:      "before_season_start_clamps_to_first_phase",
			season:    standard,
			now:       base.Add(-3 * time.Hour),
			wantIdx:   0,
			wantCount: 3,
			wantStart: base,
			wantEnd:   base.Add(14 * day),
		},
		{
			// 40 days in with 2 to go: the window ends at the season
			// end, not 14 days past the phase start.
			name:      "late_season_window_ends_with_season",
			season:    &types.Season{StartAt: base.Add(-40 * day), EndAt: base.Add(2 * day)},
			now:       base,
			wantIdx:   2,
			wantCount: 3,
			wantStart: base.Add(-12 * day),
			wantEnd:   base.Add(2 * day),
		},
		{
			name:      "ragged_final_phase_clamps_to_season_end",
			season:    short,
			now:       base.Add(29 * day),
			wantIdx:   2,
			wantCount: 3,
			wantStart: base.Add(28 * day),
			wantEnd:   base.Add(30 * day),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputePhaseWindow(tc.season, tc.now)
			if got.Index != tc.wantIdx || got.Count != tc.wantCount {
				t.Fatalf("index/count = %d/%d, want %d/%d", got.Index, got.Count, tc.wantIdx, tc.wantCount)
			}
			if !got.StartAt.Equal(tc.wantStart) || !got.EndAt.Equal(tc.wantEnd) {
				t.Fatalf("window = [%v, %v), want [%v, %v)", got.StartAt, got.EndAt, tc.wantStart, tc.wantEnd)
			}
			// Pure function: recomputation must agree exactly.
			if again := ComputePhaseWindow(tc.season, tc.now); again != got {
				t.Fatalf("recomputation diverged: %+v vs %+v", again, got)
			}
		})
	}
}

func TestGetOrCreateCurrentSeasonCreatesOnceAndReuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.seasons.GetOrCreateCurrentSeason(ctx, uuid.New())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.TargetDimension != string(bandit.DimensionQuality) {
		t.Fatalf("target dimension %q, want generated quality", first.TargetDimension)
	}
	if !first.EndAt.Equal(first.StartAt.Add(SeasonLength)) {
		t.Fatalf("season span %v, want %v", first.EndAt.Sub(first.StartAt), SeasonLength)
	}

	second, err := env.seasons.GetOrCreateCurrentSeason(ctx, uuid.New())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second call created a new season %s, want reuse of %s", second.ID, first.ID)
	}
	if got := env.textgen.seasonCallCount(); got != 1 {
		t.Fatalf("narrative generated %d times, want 1", got)
	}

	lock, err := env.lockRepo.GetActive(ctx, nil)
	if err != nil {
		t.Fatalf("active lock: %v", err)
	}
	if lock.SeasonID != first.ID {
		t.Fatalf("lock points at %s, want %s", lock.SeasonID, first.ID)
	}
}

func TestGetOrCreateCurrentSeasonRotatesExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now().UTC()
	old := env.installSeason(t, string(bandit.DimensionTeamwork), now.Add(-2*SeasonLength), now.Add(-time.Hour))

	current, err := env.seasons.GetOrCreateCurrentSeason(ctx, uuid.New())
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if current.ID == old.ID {
		t.Fatal("expired season was returned instead of rotated")
	}
	if !current.EndAt.After(now) {
		t.Fatalf("rotated season already expired: ends %v", current.EndAt)
	}

	lock, err := env.lockRepo.GetActive(ctx, nil)
	if err != nil {
		t.Fatalf("active lock after rotation: %v", err)
	}
	if lock.SeasonID != current.ID {
		t.Fatalf("lock points at %s, want %s", lock.SeasonID, current.ID)
	}

	// Rotation retires the old lock but keeps the season row for history.
	if _, err := env.seasonRepo.GetByID(ctx, nil, old.ID); err != nil {
		t.Fatalf("old season row gone after rotation: %v", err)
	}
}

func TestGetOrCreateCurrentSeasonDefaultNarrative(t *testing.T) {
	t.Run("stats_pick_weakest_dimension", func(t *testing.T) {
		env := newTestEnv(t)
		env.textgen.failSeason = true
		env.scoring.stats = types.DimensionScores{Productivity: 70, Quality: 61, Teamwork: 40}

		season, err := env.seasons.GetOrCreateCurrentSeason(context.Background(), uuid.New())
		if err != nil {
			t.Fatalf("create with failed generator: %v", err)
		}
		if season.TargetDimension != string(bandit.DimensionTeamwork) {
			t.Fatalf("target %q, want weakest dimension teamwork", season.TargetDimension)
		}
		if season.Objective == "" || season.KeyResult == "" || season.Strategy == "" {
			t.Fatal("default narrative left fields empty")
		}
	})

	t.Run("no_stats_defaults_to_productivity", func(t *testing.T) {
		env := newTestEnv(t)
		env.textgen.failSeason = true
		env.scoring.statsErr = pkgerrors.ErrNotFound

		season, err := env.seasons.GetOrCreateCurrentSeason(context.Background(), uuid.New())
		if err != nil {
			t.Fatalf("create with no stats: %v", err)
		}
		if season.TargetDimension != string(bandit.DimensionProductivity) {
			t.Fatalf("target %q, want productivity", season.TargetDimension)
		}
	})
}

func TestSeasonCreationRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg   sync.WaitGroup
		gate = make(chan struct{})
		ids  [workers]uuid.UUID
		errs [workers]error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-gate
			season, err := env.seasons.GetOrCreateCurrentSeason(ctx, uuid.New())
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = season.ID
		}(i)
	}
	close(gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got season %s, worker 0 got %s", i, ids[i], ids[0])
		}
	}

	var seasonCount int64
	if err := env.db.Model(&types.Season{}).Count(&seasonCount).Error; err != nil {
		t.Fatalf("count seasons: %v", err)
	}
	if seasonCount != 1 {
		t.Fatalf("%d season rows survived the race, want 1", seasonCount)
	}

	var lockCount int64
	if err := env.db.Model(&types.SeasonLock{}).
		Where("slot = ?", types.ActiveSeasonSlot).
		Count(&lockCount).Error; err != nil {
		t.Fatalf("count locks: %v", err)
	}
	if lockCount != 1 {
		t.Fatalf("%d active locks survived the race, want 1", lockCount)
	}
}
