package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fernfield/pointpat-cli/internal/estimate"
	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// Residuals returns the smoothed raw residual surface: the kernel intensity
// estimate of the data minus the fitted intensity, on a shared grid. Regions
// that stay strongly positive are systematically under-predicted, strongly
// negative ones over-predicted.
func (m *PoissonFit) Residuals(p *pattern.Pattern[string], opt estimate.DensityOptions) (*estimate.Surface, error) {
	dens, err := estimate.Density(p, opt)
	if err != nil {
		return nil, fmt.Errorf("residuals: %w", err)
	}
	pred, err := m.Predict(dens.NX, dens.NY)
	if err != nil {
		return nil, fmt.Errorf("residuals: %w", err)
	}
	res, err := dens.Sub(pred)
	if err != nil {
		return nil, fmt.Errorf("residuals: %w", err)
	}
	return res, nil
}

// Simulate draws a synthetic pattern from the fitted Poisson model by
// thinning a dominating homogeneous process at the predicted peak intensity.
func (m *PoissonFit) Simulate(rng *rand.Rand) (*pattern.Pattern[string], error) {
	pred, err := m.Predict(64, 64)
	if err != nil {
		return nil, fmt.Errorf("simulate poisson fit: %w", err)
	}
	if pred.Max() <= 0 || math.IsNaN(pred.Max()) {
		return nil, fmt.Errorf("simulate poisson fit: fitted intensity is not positive")
	}
	return estimate.SimulateInhom(rng, pred, m.win)
}

// Lineup hides the observed pattern among simulations from the fitted model,
// the same blind-comparison exercise used against complete spatial
// randomness during exploration.
func (m *PoissonFit) Lineup(rng *rand.Rand, real *pattern.Pattern[string], sims int) (*estimate.Lineup, error) {
	return estimate.NewLineup(rng, real, sims, m.Simulate)
}

// Lineup hides the observed pattern among simulations of the cluster model.
func (t *ThomasFit) Lineup(rng *rand.Rand, real *pattern.Pattern[string], sims int) (*estimate.Lineup, error) {
	return estimate.NewLineup(rng, real, sims, t.Simulate)
}

// ValidationEnvelope recomputes the inhomogeneous K envelope with the fitted
// intensity as the null model. A well-fitting model keeps the observed curve
// inside the band.
func (m *PoissonFit) ValidationEnvelope(p *pattern.Pattern[string], rng *rand.Rand, sims int, global bool) (*estimate.EnvelopeResult, error) {
	pred, err := m.Predict(64, 64)
	if err != nil {
		return nil, fmt.Errorf("validation envelope: %w", err)
	}
	return estimate.Envelope(p, rng, estimate.EnvelopeOptions{
		Sims:      sims,
		Global:    global,
		Inhom:     true,
		Intensity: pred,
	})
}
