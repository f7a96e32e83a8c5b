package estimate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// EnvelopeOptions controls envelope simulation for the K-function.
type EnvelopeOptions struct {
	K KOptions
	// Sims is the number of null-model simulations. Zero defaults to 39,
	// giving a pointwise 5% test with min/max bands.
	Sims int
	// Global keeps the band width constant across all distances by using the
	// distribution of each simulation's maximum deviation from the
	// theoretical curve, instead of pointwise extremes.
	Global bool
	// Inhom switches the summary statistic to the inhomogeneous K-function.
	Inhom bool
	// Intensity is the null-model intensity surface. Nil means complete
	// spatial randomness at the pattern's average intensity. Supplying a
	// fitted model's predicted surface re-envelopes against that fit.
	Intensity *Surface
}

// EnvelopeResult is an observed curve with simulation bands.
type EnvelopeResult struct {
	R, Obs, Theo []float64
	Lo, Hi       []float64
	Sims         int
	Global       bool
}

// Exits lists the distances at which the observed curve leaves the band:
// above it (clustering beyond the null) or below it (dispersion).
func (e *EnvelopeResult) Exits() (above, below []float64) {
	for i, r := range e.R {
		switch {
		case math.IsNaN(e.Obs[i]):
		case e.Obs[i] > e.Hi[i]:
			above = append(above, r)
		case e.Obs[i] < e.Lo[i]:
			below = append(below, r)
		}
	}
	return above, below
}

// Envelope computes the observed (inhomogeneous) K-function and a simulation
// envelope under the null model. Simulation order and placement are entirely
// determined by rng, so a fixed seed reproduces the envelope exactly.
func Envelope[M comparable](p *pattern.Pattern[M], rng *rand.Rand, opt EnvelopeOptions) (*EnvelopeResult, error) {
	if opt.Sims <= 0 {
		opt.Sims = 39
	}
	win := p.Window()
	opt.K = opt.K.withDefaults(win)

	obs, err := envelopeStatistic(p, opt)
	if err != nil {
		return nil, err
	}

	curves := make([][]float64, 0, opt.Sims)
	for s := 0; s < opt.Sims; s++ {
		sim, err := simulateNull(rng, p.Intensity(), win, opt.Intensity)
		if err != nil {
			return nil, fmt.Errorf("envelope simulation %d: %w", s+1, err)
		}
		if sim.N() < 2 {
			// A degenerate draw carries no curve; resample once, then fail.
			if sim, err = simulateNull(rng, p.Intensity(), win, opt.Intensity); err != nil || sim.N() < 2 {
				return nil, fmt.Errorf("envelope simulation %d: degenerate null draw (%d points)", s+1, sim.N())
			}
		}
		res, err := envelopeStatistic(sim, opt)
		if err != nil {
			return nil, fmt.Errorf("envelope simulation %d: %w", s+1, err)
		}
		curves = append(curves, res.Obs)
	}

	out := &EnvelopeResult{
		R: obs.R, Obs: obs.Obs, Theo: obs.Theo,
		Lo:   make([]float64, len(obs.R)),
		Hi:   make([]float64, len(obs.R)),
		Sims: opt.Sims, Global: opt.Global,
	}
	if opt.Global {
		globalBands(out, curves)
	} else {
		pointwiseBands(out, curves)
	}
	return out, nil
}

func envelopeStatistic[M comparable](p *pattern.Pattern[M], opt EnvelopeOptions) (*KResult, error) {
	if opt.Inhom {
		k := opt.K
		if opt.Intensity != nil {
			// Evaluate the supplied null intensity at the data points.
			lam := make([]float64, p.N())
			for i, pt := range p.Points() {
				lam[i] = opt.Intensity.At(pt.X, pt.Y)
			}
			k.Lambda = lam
		}
		return KInhom(p, k)
	}
	return KEst(p, opt.K)
}

func simulateNull(rng *rand.Rand, intensity float64, win pattern.Window, surface *Surface) (*pattern.Pattern[string], error) {
	if surface != nil {
		return SimulateInhom(rng, surface, win)
	}
	return SimulateCSR(rng, intensity, win)
}

// pointwiseBands sets lo/hi to the per-distance extremes across simulations.
func pointwiseBands(out *EnvelopeResult, curves [][]float64) {
	for i := range out.R {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, c := range curves {
			if math.IsNaN(c[i]) {
				continue
			}
			lo = math.Min(lo, c[i])
			hi = math.Max(hi, c[i])
		}
		out.Lo[i], out.Hi[i] = lo, hi
	}
}

// globalBands sets a constant-width band theo +/- d*, where d* is the upper
// 5% quantile of each simulation's maximum absolute deviation from the
// theoretical curve. Constant width avoids the boundary-distance distortion
// of pointwise bands.
func globalBands(out *EnvelopeResult, curves [][]float64) {
	devs := make([]float64, 0, len(curves))
	for _, c := range curves {
		d := 0.0
		for i := range c {
			if math.IsNaN(c[i]) {
				continue
			}
			d = math.Max(d, math.Abs(c[i]-out.Theo[i]))
		}
		devs = append(devs, d)
	}
	sort.Float64s(devs)
	// Rank k = ceil(0.95 * (m+1)) among m simulated deviations.
	k := int(math.Ceil(0.95*float64(len(devs)+1))) - 1
	if k >= len(devs) {
		k = len(devs) - 1
	}
	if k < 0 {
		k = 0
	}
	dstar := devs[k]
	for i := range out.R {
		out.Lo[i] = out.Theo[i] - dstar
		out.Hi[i] = out.Theo[i] + dstar
	}
}
