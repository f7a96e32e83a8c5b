package estimate

import (
	"fmt"
	"math/rand"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// Simulator draws one synthetic pattern from a null or fitted model.
type Simulator func(rng *rand.Rand) (*pattern.Pattern[string], error)

// Lineup is a blind comparison set: the observed pattern hidden at a random
// position among independent simulations. If the real pattern is visually
// identifiable among the decoys, the null model is a poor description.
type Lineup struct {
	Patterns  []*pattern.Pattern[string]
	RealIndex int
}

// NewLineup builds a lineup of sims simulated patterns plus the real one,
// inserted at a uniformly random slot.
func NewLineup(rng *rand.Rand, real *pattern.Pattern[string], sims int, simulate Simulator) (*Lineup, error) {
	if sims < 1 {
		return nil, fmt.Errorf("lineup: need at least 1 simulation, got %d", sims)
	}
	l := &Lineup{
		Patterns:  make([]*pattern.Pattern[string], sims+1),
		RealIndex: rng.Intn(sims + 1),
	}
	l.Patterns[l.RealIndex] = real
	for i := range l.Patterns {
		if i == l.RealIndex {
			continue
		}
		sim, err := simulate(rng)
		if err != nil {
			return nil, fmt.Errorf("lineup simulation: %w", err)
		}
		l.Patterns[i] = sim
	}
	return l, nil
}

// CSRLineup is the classic homogeneity exercise: decoys are complete spatial
// randomness at the observed pattern's average intensity over its window.
func CSRLineup(rng *rand.Rand, real *pattern.Pattern[string], sims int) (*Lineup, error) {
	intensity := real.Intensity()
	win := real.Window()
	return NewLineup(rng, real, sims, func(r *rand.Rand) (*pattern.Pattern[string], error) {
		return SimulateCSR(r, intensity, win)
	})
}

// Densities computes a surface per lineup slot, real pattern included, so
// the panels can be compared on equal terms.
func (l *Lineup) Densities(opt DensityOptions) ([]*Surface, error) {
	out := make([]*Surface, len(l.Patterns))
	for i, p := range l.Patterns {
		s, err := Density(p, opt)
		if err != nil {
			return nil, fmt.Errorf("lineup panel %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}
