package estimate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// QuadratOptions controls the quadrat counting grid.
type QuadratOptions struct {
	// NX, NY give the grid of cells over the window bounds. Zero values
	// default to 5x5 (25 cells).
	NX, NY int
}

// QuadratResult holds per-cell counts and the chi-square homogeneity test.
type QuadratResult struct {
	NX, NY    int
	Counts    []int     // row-major, as in Surface
	Expected  []float64 // expected count per cell under uniform intensity
	Statistic float64
	DF        int
	PValue    float64
	Warnings  []string
}

// Rejected reports whether the test rejects homogeneity at the 5% level.
func (r *QuadratResult) Rejected() bool { return r.PValue <= 0.05 }

// QuadratTest partitions the window into a grid of cells, counts points per
// cell, and tests the counts against a uniform-intensity expectation with a
// chi-square goodness-of-fit test. Cells wholly outside the window are
// excluded; partially covered cells have their expectation scaled by the
// covered area fraction.
func QuadratTest[M comparable](p *pattern.Pattern[M], opt QuadratOptions) (*QuadratResult, error) {
	if opt.NX <= 0 {
		opt.NX = 5
	}
	if opt.NY <= 0 {
		opt.NY = 5
	}
	n := p.N()
	if n == 0 {
		return nil, fmt.Errorf("quadrat test: empty pattern")
	}

	win := p.Window()
	b := win.Bounds()
	cw := (b.XMax - b.XMin) / float64(opt.NX)
	ch := (b.YMax - b.YMin) / float64(opt.NY)

	counts := make([]int, opt.NX*opt.NY)
	for _, pt := range p.Points() {
		ix := clamp(int((pt.X-b.XMin)/cw), 0, opt.NX-1)
		iy := clamp(int((pt.Y-b.YMin)/ch), 0, opt.NY-1)
		counts[iy*opt.NX+ix]++
	}

	// Area fraction of each cell covered by the window, by subsampling.
	// Exact (fraction 1) when the window is its own bounding rectangle.
	fractions := make([]float64, opt.NX*opt.NY)
	totalFrac := 0.0
	_, isRect := win.(pattern.Rect)
	for iy := 0; iy < opt.NY; iy++ {
		for ix := 0; ix < opt.NX; ix++ {
			f := 1.0
			if !isRect {
				f = cellCoverage(win, b.XMin+float64(ix)*cw, b.YMin+float64(iy)*ch, cw, ch)
			}
			fractions[iy*opt.NX+ix] = f
			totalFrac += f
		}
	}
	if totalFrac <= 0 {
		return nil, fmt.Errorf("quadrat test: window covers no grid cell")
	}

	res := &QuadratResult{NX: opt.NX, NY: opt.NY, Counts: counts}
	res.Expected = make([]float64, len(counts))
	cells := 0
	for i, f := range fractions {
		if f <= 0 {
			if counts[i] > 0 {
				return nil, fmt.Errorf("quadrat test: %d points counted in a cell outside the window", counts[i])
			}
			res.Expected[i] = 0
			continue
		}
		res.Expected[i] = float64(n) * f / totalFrac
		cells++
		if res.Expected[i] < 5 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("cell (%d,%d) expects only %.2f points; chi-square approximation is weak", i%opt.NX, i/opt.NX, res.Expected[i]))
		}
	}
	if cells < 2 {
		return nil, fmt.Errorf("quadrat test: need at least 2 cells inside the window, have %d", cells)
	}

	chi2 := 0.0
	for i := range counts {
		if res.Expected[i] <= 0 {
			continue
		}
		d := float64(counts[i]) - res.Expected[i]
		chi2 += d * d / res.Expected[i]
	}
	res.Statistic = chi2
	res.DF = cells - 1
	dist := distuv.ChiSquared{K: float64(res.DF)}
	res.PValue = dist.Survival(chi2)
	if math.IsNaN(res.PValue) {
		return nil, fmt.Errorf("quadrat test: p-value undefined for statistic %g with %d df", chi2, res.DF)
	}
	return res, nil
}

// cellCoverage estimates the fraction of the cell at (x0, y0) with extent
// (cw, ch) that lies inside win, using a 4x4 midpoint grid.
func cellCoverage(win pattern.Window, x0, y0, cw, ch float64) float64 {
	const k = 4
	inside := 0
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			x := x0 + (float64(i)+0.5)*cw/k
			y := y0 + (float64(j)+0.5)*ch/k
			if win.Contains(x, y) {
				inside++
			}
		}
	}
	return float64(inside) / (k * k)
}
