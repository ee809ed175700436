package bandit

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// Sampler draws Gamma- and Beta-distributed variates from an injected
// uniform source. Safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSampler(src rand.Source) *Sampler {
	return &Sampler{rnd: rand.New(src)}
}

// Gamma samples from Gamma(shape, 1) using the Marsaglia-Tsang squeeze
// method for shape >= 1 and the boosting identity
// Gamma(k) = Gamma(k+1) * U^(1/k) for 0 < shape < 1.
// shape must be positive and finite; violating that is a programming
// error, not a recoverable condition.
func (s *Sampler) Gamma(shape float64) float64 {
	if math.IsNaN(shape) || shape <= 0 {
		panic(fmt.Sprintf("bandit: gamma shape must be positive, got %v", shape))
	}
	if shape < 1 {
		s.mu.Lock()
		u := s.rnd.Float64()
		s.mu.Unlock()
		return s.Gamma(shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / (3.0 * math.Sqrt(d))
	for {
		s.mu.Lock()
		x := s.rnd.NormFloat64()
		u := s.rnd.Float64()
		s.mu.Unlock()

		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}

// Beta samples from Beta(alpha, beta) via the two-gamma construction.
func (s *Sampler) Beta(alpha, beta float64) float64 {
	x := s.Gamma(alpha)
	y := s.Gamma(beta)
	if x == 0 && y == 0 {
		// Cannot happen while the prior floor holds, but keep the draw
		// well defined.
		return 0.5
	}
	return x / (x + y)
}
