package estimate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// DensityOptions controls kernel intensity estimation.
type DensityOptions struct {
	// Bandwidth is the Gaussian kernel standard deviation in coordinate
	// units. Zero selects a rule-of-thumb bandwidth from the data.
	Bandwidth float64
	// Grid resolution. Zero values default to 128.
	NX, NY int
}

func (o DensityOptions) withDefaults() DensityOptions {
	if o.NX <= 0 {
		o.NX = 128
	}
	if o.NY <= 0 {
		o.NY = 128
	}
	return o
}

// Density estimates the intensity surface of a pattern by Gaussian kernel
// smoothing with boundary-mass edge correction. The result is deterministic
// given bandwidth and grid; its integral over the window approximates the
// point count.
func Density[M comparable](p *pattern.Pattern[M], opt DensityOptions) (*Surface, error) {
	opt = opt.withDefaults()
	if p.N() == 0 {
		return nil, fmt.Errorf("density: empty pattern")
	}
	h := opt.Bandwidth
	if h <= 0 {
		h = RuleOfThumbBandwidth(p)
	}
	if h <= 0 {
		return nil, fmt.Errorf("density: bandwidth must be positive, got %g", h)
	}

	win := p.Window()
	s, err := NewSurface(win.Bounds(), opt.NX, opt.NY)
	if err != nil {
		return nil, fmt.Errorf("density: %w", err)
	}
	pts := p.Points()
	b := s.Rect
	for iy := 0; iy < s.NY; iy++ {
		for ix := 0; ix < s.NX; ix++ {
			x, y := s.Center(ix, iy)
			if !win.Contains(x, y) {
				s.Set(ix, iy, math.NaN())
				continue
			}
			sum := 0.0
			for _, pt := range pts {
				sum += gauss2(x-pt.X, y-pt.Y, h)
			}
			// Renormalise by the kernel mass retained inside the bounding
			// rectangle so intensity is not deflated near the boundary.
			if m := rectMass(x, y, h, b); m > 1e-12 {
				sum /= m
			}
			s.Set(ix, iy, sum)
		}
	}
	return s, nil
}

// DensityAtPoints returns the leave-one-out kernel intensity estimate at each
// data point, as used to reweight the inhomogeneous K-function.
func DensityAtPoints[M comparable](p *pattern.Pattern[M], bandwidth float64) ([]float64, error) {
	if p.N() < 2 {
		return nil, fmt.Errorf("density at points: need at least 2 points, have %d", p.N())
	}
	h := bandwidth
	if h <= 0 {
		h = RuleOfThumbBandwidth(p)
	}
	pts := p.Points()
	b := p.Window().Bounds()
	out := make([]float64, len(pts))
	for i, pi := range pts {
		sum := 0.0
		for j, pj := range pts {
			if j == i {
				continue
			}
			sum += gauss2(pi.X-pj.X, pi.Y-pj.Y, h)
		}
		if m := rectMass(pi.X, pi.Y, h, b); m > 1e-12 {
			sum /= m
		}
		out[i] = sum
	}
	return out, nil
}

// DensityByGroup computes one surface per group of a split pattern, keyed by
// the group label.
func DensityByGroup[M comparable](groups map[M]*pattern.Pattern[M], opt DensityOptions) (map[M]*Surface, error) {
	out := make(map[M]*Surface, len(groups))
	for label, g := range groups {
		s, err := Density(g, opt)
		if err != nil {
			return nil, fmt.Errorf("group %v: %w", label, err)
		}
		out[label] = s
	}
	return out, nil
}

// RuleOfThumbBandwidth returns a Silverman-style bandwidth: the per-axis
// rule-of-thumb values averaged across x and y.
func RuleOfThumbBandwidth[M comparable](p *pattern.Pattern[M]) float64 {
	n := p.N()
	if n < 2 {
		b := p.Window().Bounds()
		return math.Min(b.XMax-b.XMin, b.YMax-b.YMin) / 8
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, pt := range p.Points() {
		xs[i] = pt.X
		ys[i] = pt.Y
	}
	return (silverman(xs) + silverman(ys)) / 2
}

func silverman(v []float64) float64 {
	sd := stat.StdDev(v, nil)
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)
	iqr := stat.Quantile(0.75, stat.Empirical, sorted, nil) - stat.Quantile(0.25, stat.Empirical, sorted, nil)
	spread := sd
	if iqr > 0 && iqr/1.34 < spread {
		spread = iqr / 1.34
	}
	if spread <= 0 {
		spread = sd
	}
	return 0.9 * spread * math.Pow(float64(len(v)), -0.2)
}

// gauss2 is the isotropic bivariate Gaussian kernel with sd h.
func gauss2(dx, dy, h float64) float64 {
	return math.Exp(-(dx*dx+dy*dy)/(2*h*h)) / (2 * math.Pi * h * h)
}

// rectMass is the mass of a Gaussian kernel centred at (x, y) that falls
// inside rectangle b; separable, so a product of one-dimensional masses.
func rectMass(x, y, h float64, b pattern.Rect) float64 {
	mx := normMass(b.XMin-x, b.XMax-x, h)
	my := normMass(b.YMin-y, b.YMax-y, h)
	return mx * my
}

func normMass(lo, hi, h float64) float64 {
	return 0.5 * (math.Erf(hi/(h*math.Sqrt2)) - math.Erf(lo/(h*math.Sqrt2)))
}
