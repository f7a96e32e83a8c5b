package estimate

import (
	"fmt"
	"math"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// Smooth interpolates a value observed at each point of a pattern onto a
// surface by Nadaraya-Watson kernel regression: at every grid cell the
// result is the kernel-weighted average of the point values. Cells outside
// the window are NaN. Used to turn a per-point covariate column into a
// covariate surface for model fitting.
func Smooth[M comparable](p *pattern.Pattern[M], values []float64, opt DensityOptions) (*Surface, error) {
	if p.N() == 0 {
		return nil, fmt.Errorf("smooth: empty pattern")
	}
	if len(values) != p.N() {
		return nil, fmt.Errorf("smooth: %d values for %d points", len(values), p.N())
	}
	opt = opt.withDefaults()
	h := opt.Bandwidth
	if h <= 0 {
		h = RuleOfThumbBandwidth(p)
	}
	if h <= 0 {
		return nil, fmt.Errorf("smooth: bandwidth must be positive, got %g", h)
	}

	win := p.Window()
	s, err := NewSurface(win.Bounds(), opt.NX, opt.NY)
	if err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}
	pts := p.Points()
	for iy := 0; iy < s.NY; iy++ {
		for ix := 0; ix < s.NX; ix++ {
			x, y := s.Center(ix, iy)
			if !win.Contains(x, y) {
				s.Set(ix, iy, math.NaN())
				continue
			}
			num, den := 0.0, 0.0
			for i, pt := range pts {
				w := gauss2(x-pt.X, y-pt.Y, h)
				num += w * values[i]
				den += w
			}
			if den == 0 {
				s.Set(ix, iy, math.NaN())
				continue
			}
			s.Set(ix, iy, num/den)
		}
	}
	return s, nil
}
