package estimate

import (
	"fmt"
	"math"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// KOptions controls K- and G-function estimation.
type KOptions struct {
	// RMax is the largest evaluation distance. Zero picks a quarter of the
	// shorter window side, the usual safe range for border correction.
	RMax float64
	// NR is the number of evaluation distances. Zero defaults to 64.
	NR int
	// Lambda supplies per-point intensities for the inhomogeneous variant:
	// nil means estimate leave-one-out kernel intensities from the data.
	Lambda []float64
	// Bandwidth for the internal intensity estimate when Lambda is nil.
	Bandwidth float64
}

func (o KOptions) withDefaults(win pattern.Window) KOptions {
	b := win.Bounds()
	if o.RMax <= 0 {
		o.RMax = math.Min(b.XMax-b.XMin, b.YMax-b.YMin) / 4
	}
	if o.NR <= 0 {
		o.NR = 64
	}
	return o
}

// KResult is an estimated summary-function curve with its theoretical
// complete-spatial-randomness counterpart.
type KResult struct {
	R    []float64
	Obs  []float64
	Theo []float64
}

// KEst computes the border-corrected empirical K-function. At each distance
// r only points further than r from the window boundary contribute, which
// removes the bias from unobserved neighbors outside the window.
func KEst[M comparable](p *pattern.Pattern[M], opt KOptions) (*KResult, error) {
	if p.N() < 2 {
		return nil, fmt.Errorf("k function: need at least 2 points, have %d", p.N())
	}
	win := p.Window()
	opt = opt.withDefaults(win)
	lambda := p.Intensity()
	if lambda <= 0 {
		return nil, fmt.Errorf("k function: zero intensity")
	}

	pts := p.Points()
	border := borderDistances(p)
	dist := pairwiseDistances(pts)

	res := newKResult(opt)
	for k, r := range res.R {
		res.Theo[k] = math.Pi * r * r
		sum, eligible := 0.0, 0
		for i := range pts {
			if border[i] < r {
				continue
			}
			eligible++
			for j := range pts {
				if j != i && dist[i][j] <= r {
					sum++
				}
			}
		}
		if eligible == 0 {
			res.Obs[k] = math.NaN()
			continue
		}
		res.Obs[k] = sum / (lambda * float64(eligible))
	}
	return res, nil
}

// KInhom computes the inhomogeneous K-function, reweighting each ordered
// pair (i, j) by 1/(lambda_i * lambda_j). With intensities estimated from the
// data it measures residual clustering beyond the intensity trend; with
// fitted-model intensities it validates a fit.
func KInhom[M comparable](p *pattern.Pattern[M], opt KOptions) (*KResult, error) {
	if p.N() < 2 {
		return nil, fmt.Errorf("inhomogeneous k function: need at least 2 points, have %d", p.N())
	}
	win := p.Window()
	opt = opt.withDefaults(win)

	lambda := opt.Lambda
	if lambda == nil {
		var err error
		lambda, err = DensityAtPoints(p, opt.Bandwidth)
		if err != nil {
			return nil, fmt.Errorf("inhomogeneous k function: %w", err)
		}
	}
	if len(lambda) != p.N() {
		return nil, fmt.Errorf("inhomogeneous k function: %d intensities for %d points", len(lambda), p.N())
	}
	for i, l := range lambda {
		if l <= 0 || math.IsNaN(l) {
			return nil, fmt.Errorf("inhomogeneous k function: non-positive intensity %g at point %d", l, i)
		}
	}

	pts := p.Points()
	border := borderDistances(p)
	dist := pairwiseDistances(pts)

	res := newKResult(opt)
	for k, r := range res.R {
		res.Theo[k] = math.Pi * r * r
		num, den := 0.0, 0.0
		for i := range pts {
			if border[i] < r {
				continue
			}
			den += 1 / lambda[i]
			for j := range pts {
				if j != i && dist[i][j] <= r {
					num += 1 / (lambda[i] * lambda[j])
				}
			}
		}
		if den == 0 {
			res.Obs[k] = math.NaN()
			continue
		}
		res.Obs[k] = num / den
	}
	return res, nil
}

// GEst computes the border-corrected empirical nearest-neighbor distance
// distribution function, with its Poisson reference 1 - exp(-lambda*pi*r^2).
func GEst[M comparable](p *pattern.Pattern[M], opt KOptions) (*KResult, error) {
	if p.N() < 2 {
		return nil, fmt.Errorf("g function: need at least 2 points, have %d", p.N())
	}
	win := p.Window()
	opt = opt.withDefaults(win)
	lambda := p.Intensity()

	border := borderDistances(p)
	nn := nearestNeighborDistances(p)

	res := newKResult(opt)
	for k, r := range res.R {
		res.Theo[k] = 1 - math.Exp(-lambda*math.Pi*r*r)
		hit, eligible := 0, 0
		for i := range nn {
			if border[i] < r {
				continue
			}
			eligible++
			if nn[i] <= r {
				hit++
			}
		}
		if eligible == 0 {
			res.Obs[k] = math.NaN()
			continue
		}
		res.Obs[k] = float64(hit) / float64(eligible)
	}
	return res, nil
}

func newKResult(opt KOptions) *KResult {
	res := &KResult{
		R:    make([]float64, opt.NR),
		Obs:  make([]float64, opt.NR),
		Theo: make([]float64, opt.NR),
	}
	for k := range res.R {
		res.R[k] = opt.RMax * float64(k+1) / float64(opt.NR)
	}
	return res
}

func borderDistances[M comparable](p *pattern.Pattern[M]) []float64 {
	win := p.Window()
	out := make([]float64, p.N())
	for i, pt := range p.Points() {
		out[i] = win.BorderDistance(pt.X, pt.Y)
	}
	return out
}

func pairwiseDistances(pts []pattern.Point) [][]float64 {
	n := len(pts)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := math.Hypot(pts[i].X-pts[j].X, pts[i].Y-pts[j].Y)
			d[i][j] = v
			d[j][i] = v
		}
	}
	return d
}
