package bandit

import (
	"math"
	"time"

	"github.com/momentumhq/momentum-backend/internal/logger"
)

// Exploration and shaping constants. The sigmoid midpoint/steepness are
// tunable and calibrated empirically against the scoring pipeline, not
// derived from a fixed law.
const (
	ucbExploration = 0.5

	dimensionMatchBoost = 0.2

	rewardMidpoint  = 55.0
	rewardSteepness = 0.08
)

// modeBoosts is the fixed mode -> arm additive boost table. Each mode
// favors one or two arms; everything else gets zero.
var modeBoosts = map[Mode]map[string]float64{
	ModeDeepWork: {
		"daily_top_three":  0.3,
		"deep_work_blocks": 0.25,
	},
	ModeCollaboration: {
		"unblock_a_teammate": 0.3,
		"share_one_learning": 0.2,
	},
	ModeLearning: {
		"share_one_learning":   0.3,
		"review_before_submit": 0.2,
	},
}

// Selection records which arm won and every intermediate score that led
// to the decision. The components are the only way to audit why an arm
// was chosen, so they are persisted alongside the mission.
type Selection struct {
	ArmID        string    `json:"arm_id"`
	Dimension    Dimension `json:"dimension"`
	Sample       float64   `json:"sample"`
	UCBBonus     float64   `json:"ucb_bonus"`
	ContextBoost float64   `json:"context_boost"`
	FinalScore   float64   `json:"final_score"`
}

type betaSampler interface {
	Beta(alpha, beta float64) float64
}

// Brain selects arms via UCB-adjusted Thompson sampling and folds
// rewards back into per-arm Beta posteriors.
type Brain struct {
	catalog *Catalog
	sampler betaSampler
	log     *logger.Logger
	ucbC    float64
}

func NewBrain(catalog *Catalog, sampler *Sampler, log *logger.Logger) *Brain {
	return &Brain{
		catalog: catalog,
		sampler: sampler,
		log:     log.With("component", "BanditBrain"),
		ucbC:    ucbExploration,
	}
}

// SelectArm scores every catalog arm and returns the winner. Ties break
// toward catalog order. Works on an empty state: missing arms fall back
// to the prior.
func (b *Brain) SelectArm(mode Mode, state UserState, target Dimension) Selection {
	totalTrials := state.TotalTrials()

	var best Selection
	haveBest := false
	for _, arm := range b.catalog.Arms() {
		st := state.ArmOrPrior(arm.ID)

		sample := b.sampler.Beta(st.Alpha, st.Beta)
		ucb := b.ucbC * math.Sqrt(math.Log(float64(totalTrials)+1)/float64(st.Trials+1))
		boost := modeBoosts[mode][arm.ID]
		if arm.Dimension == target {
			boost += dimensionMatchBoost
		}

		sel := Selection{
			ArmID:        arm.ID,
			Dimension:    arm.Dimension,
			Sample:       sample,
			UCBBonus:     ucb,
			ContextBoost: boost,
			FinalScore:   sample + ucb + boost,
		}
		if !haveBest || sel.FinalScore > best.FinalScore {
			best = sel
			haveBest = true
		}
	}
	return best
}

// ArmForDimension is the deterministic fallback mapping used when no
// mode/context is available (legacy records, season-only alignment):
// the first catalog arm whose dimension matches.
func (b *Brain) ArmForDimension(d Dimension) string {
	if arm, ok := b.catalog.FirstForDimension(d); ok {
		return arm.ID
	}
	return b.catalog.Arms()[0].ID
}

// UpdateState folds a raw 0..100 score into the arm's posterior and
// returns a new state; the input is never mutated. An unknown arm id is
// a data error: it is logged and skipped so a bad record can never
// block the scoring pipeline that calls this as a side effect.
func (b *Brain) UpdateState(state UserState, armID string, rawScore float64) UserState {
	next := state.Clone()

	if _, ok := b.catalog.Get(armID); !ok {
		b.log.Warn("Reward for unknown arm skipped", "arm_id", armID, "raw_score", rawScore)
		return next
	}

	reward := sigmoidReward(rawScore)
	st := next.ArmOrPrior(armID)
	st.Alpha += reward
	st.Beta += 1 - reward
	st.Trials++
	st.UpdatedAt = time.Now().UTC()
	next[armID] = st
	return next
}

// sigmoidReward maps a raw 0..100 score onto [0,1] through a sigmoid
// centered near the typical dimension midpoint, rescaled so the
// endpoints land exactly on 0 and 1. Mid-range scores stay informative
// while the curve flattens toward the extremes, so learning does not
// saturate once a user already scores high.
func sigmoidReward(raw float64) float64 {
	if raw < 0 {
		raw = 0
	}
	if raw > 100 {
		raw = 100
	}
	lo := logistic(0 - rewardMidpoint)
	hi := logistic(100 - rewardMidpoint)
	return (logistic(raw-rewardMidpoint) - lo) / (hi - lo)
}

func logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-rewardSteepness*x))
}
