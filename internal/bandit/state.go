package bandit

import "time"

// Weak symmetric prior applied to every arm the user has no evidence
// for yet.
const (
	PriorAlpha = 2.0
	PriorBeta  = 2.0
)

// ArmState holds the Beta posterior for one (user, arm) pair. Alpha and
// Beta only ever grow; Trials increments by exactly one per update.
type ArmState struct {
	Alpha     float64
	Beta      float64
	Trials    int
	UpdatedAt time.Time
}

// PriorArmState is the starting point for an arm with no recorded
// evidence.
func PriorArmState() ArmState {
	return ArmState{Alpha: PriorAlpha, Beta: PriorBeta}
}

// UserState maps arm id to posterior state for a single user. A nil map
// is a valid empty state; lookups fall back to the prior.
type UserState map[string]ArmState

func (s UserState) ArmOrPrior(armID string) ArmState {
	if st, ok := s[armID]; ok {
		return st
	}
	return PriorArmState()
}

// TotalTrials sums recorded trials across all arms.
func (s UserState) TotalTrials() int {
	total := 0
	for _, st := range s {
		total += st.Trials
	}
	return total
}

// Clone returns an independent copy, so updates never mutate the
// caller's map.
func (s UserState) Clone() UserState {
	out := make(UserState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
