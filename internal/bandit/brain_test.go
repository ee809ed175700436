package bandit

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/momentumhq/momentum-backend/internal/logger"
	"go.uber.org/zap"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// fixedSampler removes the stochastic component so the score decomposes
// into the deterministic parts under test.
type fixedSampler struct {
	v float64
}

func (f fixedSampler) Beta(alpha, beta float64) float64 { return f.v }

func newFixedBrain(t *testing.T, v float64) *Brain {
	t.Helper()
	return &Brain{
		catalog: DefaultCatalog(),
		sampler: fixedSampler{v: v},
		log:     testLogger(),
		ucbC:    ucbExploration,
	}
}

func TestSelectArmEmptyState(t *testing.T) {
	b := NewBrain(DefaultCatalog(), NewSampler(rand.NewSource(3)), testLogger())

	sel := b.SelectArm(ModeDeepWork, nil, DimensionProductivity)
	if sel.ArmID == "" {
		t.Fatal("selection on empty state returned no arm")
	}
	if _, ok := b.catalog.Get(sel.ArmID); !ok {
		t.Fatalf("selected arm %q is not in the catalog", sel.ArmID)
	}
	if math.IsNaN(sel.FinalScore) || math.IsInf(sel.FinalScore, 0) {
		t.Fatalf("final score %v is not finite", sel.FinalScore)
	}
	if want := sel.Sample + sel.UCBBonus + sel.ContextBoost; math.Abs(sel.FinalScore-want) > 1e-12 {
		t.Fatalf("final score %v does not decompose into components summing to %v", sel.FinalScore, want)
	}
}

func TestSelectArmTieBreaksTowardCatalogOrder(t *testing.T) {
	b := newFixedBrain(t, 0.5)

	// No mode, no valid target dimension: every arm scores identically,
	// so the first catalog arm must win.
	sel := b.SelectArm("", nil, "")
	if sel.ArmID != "daily_top_three" {
		t.Fatalf("tie broke to %q, want first catalog arm daily_top_three", sel.ArmID)
	}
}

func TestSelectArmModeBoost(t *testing.T) {
	cases := []struct {
		mode      Mode
		wantArm   string
		wantBoost float64
	}{
		{mode: ModeDeepWork, wantArm: "daily_top_three", wantBoost: 0.3},
		{mode: ModeCollaboration, wantArm: "unblock_a_teammate", wantBoost: 0.3},
		{mode: ModeLearning, wantArm: "share_one_learning", wantBoost: 0.3},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			b := newFixedBrain(t, 0.5)
			sel := b.SelectArm(tc.mode, nil, "")
			if sel.ArmID != tc.wantArm {
				t.Fatalf("mode %q selected %q, want %q", tc.mode, sel.ArmID, tc.wantArm)
			}
			if sel.ContextBoost != tc.wantBoost {
				t.Fatalf("mode %q context boost %v, want %v", tc.mode, sel.ContextBoost, tc.wantBoost)
			}
		})
	}
}

func TestSelectArmDimensionBoost(t *testing.T) {
	b := newFixedBrain(t, 0.5)

	sel := b.SelectArm("", nil, DimensionQuality)
	if sel.ArmID != "defect_checklist" {
		t.Fatalf("quality target selected %q, want defect_checklist", sel.ArmID)
	}
	if sel.ContextBoost != dimensionMatchBoost {
		t.Fatalf("context boost %v, want %v", sel.ContextBoost, dimensionMatchBoost)
	}
}

func TestSelectArmModeAndDimensionBoostsStack(t *testing.T) {
	b := newFixedBrain(t, 0.5)

	// learning mode boosts share_one_learning by 0.3; a teamwork target
	// adds the dimension match on top.
	sel := b.SelectArm(ModeLearning, nil, DimensionTeamwork)
	if sel.ArmID != "share_one_learning" {
		t.Fatalf("selected %q, want share_one_learning", sel.ArmID)
	}
	if want := 0.3 + dimensionMatchBoost; math.Abs(sel.ContextBoost-want) > 1e-12 {
		t.Fatalf("context boost %v, want %v", sel.ContextBoost, want)
	}
}

func TestSelectArmFavorsUntriedArm(t *testing.T) {
	b := newFixedBrain(t, 0.5)

	// Every arm except share_one_learning has evidence; the untried arm
	// carries the largest UCB bonus and must win with all else equal.
	state := UserState{}
	for _, arm := range b.catalog.Arms() {
		if arm.ID == "share_one_learning" {
			continue
		}
		state[arm.ID] = ArmState{Alpha: 4, Beta: 4, Trials: 4}
	}

	sel := b.SelectArm("", state, "")
	if sel.ArmID != "share_one_learning" {
		t.Fatalf("selected %q, want untried arm share_one_learning", sel.ArmID)
	}
	if sel.UCBBonus <= 0 {
		t.Fatalf("untried arm UCB bonus %v, want positive", sel.UCBBonus)
	}
}

func TestUpdateStateFirstReward(t *testing.T) {
	b := newFixedBrain(t, 0.5)

	next := b.UpdateState(nil, "daily_top_three", 80)
	st, ok := next["daily_top_three"]
	if !ok {
		t.Fatal("updated state missing the rewarded arm")
	}
	if st.Trials != 1 {
		t.Fatalf("trials %d, want 1", st.Trials)
	}
	if st.Alpha <= PriorAlpha || st.Beta >= PriorBeta+1 {
		t.Fatalf("posterior (%v, %v) did not move toward success for a high score", st.Alpha, st.Beta)
	}
	if sum := st.Alpha + st.Beta; math.Abs(sum-(PriorAlpha+PriorBeta+1)) > 1e-9 {
		t.Fatalf("alpha+beta = %v, want exactly %v", sum, PriorAlpha+PriorBeta+1)
	}
	if st.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not set")
	}
}

func TestUpdateStateExactEndpoints(t *testing.T) {
	b := newFixedBrain(t, 0.5)

	perfect := b.UpdateState(nil, "daily_top_three", 100)
	if st := perfect["daily_top_three"]; st.Alpha != PriorAlpha+1 || st.Beta != PriorBeta {
		t.Fatalf("raw=100 gave (%v, %v), want alpha +1 exactly and beta unchanged", st.Alpha, st.Beta)
	}

	zero := b.UpdateState(nil, "daily_top_three", 0)
	if st := zero["daily_top_three"]; st.Alpha != PriorAlpha || st.Beta != PriorBeta+1 {
		t.Fatalf("raw=0 gave (%v, %v), want beta +1 exactly and alpha unchanged", st.Alpha, st.Beta)
	}
}

func TestUpdateStateDoesNotMutateInput(t *testing.T) {
	b := newFixedBrain(t, 0.5)

	orig := UserState{"daily_top_three": {Alpha: 3, Beta: 2, Trials: 1}}
	_ = b.UpdateState(orig, "daily_top_three", 90)
	if st := orig["daily_top_three"]; st.Alpha != 3 || st.Beta != 2 || st.Trials != 1 {
		t.Fatalf("input state mutated: %+v", st)
	}
}

func TestUpdateStateUnknownArmSkipped(t *testing.T) {
	b := newFixedBrain(t, 0.5)

	orig := UserState{"daily_top_three": {Alpha: 3, Beta: 2, Trials: 1}}
	next := b.UpdateState(orig, "no_such_arm", 50)
	if len(next) != 1 {
		t.Fatalf("unknown arm created state entries: %v", next)
	}
	if st := next["daily_top_three"]; st != orig["daily_top_three"] {
		t.Fatalf("unknown arm modified existing state: %+v", st)
	}
}

func TestArmForDimension(t *testing.T) {
	b := newFixedBrain(t, 0.5)

	cases := []struct {
		dim  Dimension
		want string
	}{
		{DimensionProductivity, "daily_top_three"},
		{DimensionQuality, "defect_checklist"},
		{DimensionTeamwork, "unblock_a_teammate"},
	}
	for _, tc := range cases {
		if got := b.ArmForDimension(tc.dim); got != tc.want {
			t.Fatalf("ArmForDimension(%q) = %q, want %q", tc.dim, got, tc.want)
		}
	}

	// An invalid dimension still resolves to a real arm.
	if got := b.ArmForDimension("bogus"); got != "daily_top_three" {
		t.Fatalf("ArmForDimension fallback = %q, want daily_top_three", got)
	}
}

func TestSigmoidReward(t *testing.T) {
	if got := sigmoidReward(0); got != 0 {
		t.Fatalf("sigmoidReward(0) = %v, want exactly 0", got)
	}
	if got := sigmoidReward(100); got != 1 {
		t.Fatalf("sigmoidReward(100) = %v, want exactly 1", got)
	}
	if got := sigmoidReward(-20); got != 0 {
		t.Fatalf("sigmoidReward(-20) = %v, want clamp to 0", got)
	}
	if got := sigmoidReward(150); got != 1 {
		t.Fatalf("sigmoidReward(150) = %v, want clamp to 1", got)
	}

	prev := -1.0
	for raw := 0.0; raw <= 100; raw += 5 {
		v := sigmoidReward(raw)
		if v < 0 || v > 1 {
			t.Fatalf("sigmoidReward(%v) = %v, out of [0,1]", raw, v)
		}
		if v <= prev {
			t.Fatalf("sigmoidReward not strictly increasing at raw=%v: %v <= %v", raw, v, prev)
		}
		prev = v
	}

	mid := sigmoidReward(rewardMidpoint)
	if mid < 0.4 || mid > 0.6 {
		t.Fatalf("sigmoidReward at midpoint = %v, want near 0.5", mid)
	}
}

func TestClonedStateIsIndependent(t *testing.T) {
	now := time.Now().UTC()
	orig := UserState{"a": {Alpha: 5, Beta: 3, Trials: 2, UpdatedAt: now}}
	cp := orig.Clone()
	cp["a"] = ArmState{Alpha: 99}
	if orig["a"].Alpha != 5 {
		t.Fatal("mutating clone changed the original")
	}
}
