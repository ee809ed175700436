package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/momentumhq/momentum-backend/internal/bandit"
	"github.com/momentumhq/momentum-backend/internal/logger"
	"github.com/momentumhq/momentum-backend/internal/repos"
	"github.com/momentumhq/momentum-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// newTestDB opens a named shared-memory SQLite database. A single
// connection keeps the in-memory database alive for the whole test and
// serializes concurrent access, so the unique-constraint race still
// plays out logically without SQLITE_BUSY noise.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(
		&types.Season{},
		&types.SeasonLock{},
		&types.Mission{},
		&types.BanditArmState{},
		&types.UserScore{},
		&types.UserEvent{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

type fakeTextGen struct {
	mu           sync.Mutex
	seasonCalls  int
	missionCalls int
	failSeason   bool
	failMission  bool
	targetDim    bandit.Dimension
}

func (f *fakeTextGen) RenderSeasonNarrative(ctx context.Context, metrics types.DimensionScores, recentActivity []string) (*SeasonNarrative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seasonCalls++
	if f.failSeason {
		return nil, fmt.Errorf("narrative generator unavailable")
	}
	dim := f.targetDim
	if dim == "" {
		dim = bandit.DimensionQuality
	}
	return &SeasonNarrative{
		Objective:       "Tighten delivery quality",
		KeyResult:       "Raise the quality average by five points",
		Strategy:        "Two-week personal missions focused on self-review.",
		TargetDimension: dim,
		NarrativeText:   "Generated season narrative.",
	}, nil
}

func (f *fakeTextGen) RenderMissionText(ctx context.Context, arm bandit.Arm, missionCtx MissionContext) (*MissionText, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missionCalls++
	if f.failMission {
		return nil, fmt.Errorf("mission generator unavailable")
	}
	return &MissionText{
		Action: "Generated action for " + arm.ID,
		Hint:   "Generated hint for " + arm.ID,
	}, nil
}

func (f *fakeTextGen) missionCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.missionCalls
}

func (f *fakeTextGen) seasonCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seasonCalls
}

type fakeScoring struct {
	stats    types.DimensionScores
	statsErr error
	user     types.DimensionScores
	userErr  error
}

func (f *fakeScoring) GetAggregateOrgStats(ctx context.Context, periodStart, periodEnd time.Time) (types.DimensionScores, error) {
	if f.statsErr != nil {
		return types.DimensionScores{}, f.statsErr
	}
	return f.stats, nil
}

func (f *fakeScoring) GetFinalizedUserScore(ctx context.Context, userID uuid.UUID, periodStart, periodEnd time.Time) (types.DimensionScores, error) {
	if f.userErr != nil {
		return types.DimensionScores{}, f.userErr
	}
	return f.user, nil
}

// testEnv wires the full service stack against a fresh database with
// fake collaborators.
type testEnv struct {
	db      *gorm.DB
	textgen *fakeTextGen
	scoring *fakeScoring

	seasonRepo  repos.SeasonRepo
	lockRepo    repos.SeasonLockRepo
	eventRepo   repos.UserEventRepo
	banditRepo  repos.BanditStateRepo
	missionRepo repos.MissionRepo
	scoreRepo   repos.UserScoreRepo

	catalog *bandit.Catalog
	brain   *bandit.Brain

	seasons  SeasonService
	missions MissionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := testLogger()

	env := &testEnv{
		db:      db,
		textgen: &fakeTextGen{},
		scoring: &fakeScoring{stats: types.DimensionScores{Productivity: 70, Quality: 55, Teamwork: 62}},

		seasonRepo:  repos.NewSeasonRepo(db, log),
		lockRepo:    repos.NewSeasonLockRepo(db, log),
		eventRepo:   repos.NewUserEventRepo(db, log),
		banditRepo:  repos.NewBanditStateRepo(db, log),
		missionRepo: repos.NewMissionRepo(db, log),
		scoreRepo:   repos.NewUserScoreRepo(db, log),
	}
	env.catalog = bandit.DefaultCatalog()
	env.brain = bandit.NewBrain(env.catalog, bandit.NewSampler(rand.NewSource(11)), log)
	env.seasons = NewSeasonService(db, log, env.seasonRepo, env.lockRepo, env.eventRepo, env.scoring, env.textgen, nil)
	env.missions = NewMissionService(db, log, env.seasons, env.textgen, env.brain, env.catalog, env.banditRepo, env.missionRepo)
	return env
}

// installSeason puts a season and its active lock in place directly,
// bypassing the creation path.
func (e *testEnv) installSeason(t *testing.T, targetDimension string, startAt, endAt time.Time) *types.Season {
	t.Helper()

	now := time.Now().UTC()
	season := &types.Season{
		ID:              uuid.New(),
		TargetDimension: targetDimension,
		Objective:       "Installed objective",
		KeyResult:       "Installed key result",
		Strategy:        "Installed strategy",
		StartAt:         startAt,
		EndAt:           endAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	ctx := context.Background()
	if err := e.seasonRepo.Create(ctx, nil, season); err != nil {
		t.Fatalf("install season: %v", err)
	}
	if _, err := e.lockRepo.AcquireActive(ctx, nil, season.ID, season.EndAt); err != nil {
		t.Fatalf("install season lock: %v", err)
	}
	return season
}

// insertMission writes a mission row directly with an explicit creation
// timestamp.
func (e *testEnv) insertMission(t *testing.T, userID uuid.UUID, armID, dimension string, createdAt time.Time) *types.Mission {
	t.Helper()

	mission := &types.Mission{
		ID:              uuid.New(),
		UserID:          userID,
		SeasonID:        uuid.New(),
		PhaseIndex:      0,
		ArmID:           armID,
		TargetDimension: dimension,
		Action:          "Recorded action",
		Hint:            "Recorded hint",
		MissionEndAt:    createdAt.Add(PhaseLength),
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	if err := e.missionRepo.Create(context.Background(), nil, mission); err != nil {
		t.Fatalf("insert mission: %v", err)
	}
	return mission
}
