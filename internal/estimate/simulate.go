package estimate

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// SimulateCSR draws a realisation of a homogeneous Poisson process with the
// given intensity over the window: a Poisson point count followed by uniform
// placement, rejecting locations outside non-rectangular windows.
func SimulateCSR(rng *rand.Rand, intensity float64, win pattern.Window) (*pattern.Pattern[string], error) {
	if intensity < 0 {
		return nil, fmt.Errorf("simulate csr: negative intensity %g", intensity)
	}
	n := PoissonDraw(rng, intensity*win.Area())
	b := win.Bounds()
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for len(xs) < n {
		x := b.XMin + rng.Float64()*(b.XMax-b.XMin)
		y := b.YMin + rng.Float64()*(b.YMax-b.YMin)
		if !win.Contains(x, y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return pattern.New[string](xs, ys, win)
}

// SimulateInhom draws a realisation of an inhomogeneous Poisson process with
// the given intensity surface, by thinning a dominating homogeneous process
// at the surface maximum.
func SimulateInhom(rng *rand.Rand, lambda *Surface, win pattern.Window) (*pattern.Pattern[string], error) {
	lmax := lambda.Max()
	if lmax <= 0 || math.IsInf(lmax, -1) {
		return nil, fmt.Errorf("simulate inhomogeneous: intensity surface has no positive values")
	}
	n := PoissonDraw(rng, lmax*win.Area())
	b := win.Bounds()
	var xs, ys []float64
	for i := 0; i < n; i++ {
		x := b.XMin + rng.Float64()*(b.XMax-b.XMin)
		y := b.YMin + rng.Float64()*(b.YMax-b.YMin)
		if !win.Contains(x, y) {
			continue
		}
		l := lambda.At(x, y)
		if math.IsNaN(l) {
			continue
		}
		if rng.Float64()*lmax < l {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return pattern.New[string](xs, ys, win)
}

// PoissonDraw samples a Poisson count with the given mean. Large means are
// split using the additivity of independent Poisson counts so the inversion
// product never underflows.
func PoissonDraw(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	const chunk = 30
	n := 0
	for mean > chunk {
		n += poissonKnuth(rng, chunk)
		mean -= chunk
	}
	return n + poissonKnuth(rng, mean)
}

func poissonKnuth(rng *rand.Rand, mean float64) int {
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
