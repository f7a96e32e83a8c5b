package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fernfield/pointpat-cli/internal/estimate"
	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// ThomasFit is a Poisson intensity fit augmented with a Thomas cluster
// process: parents at intensity Kappa, offspring displaced from their parent
// by an isotropic Gaussian with standard deviation Sigma. Mu is the implied
// mean offspring count per parent at the pattern's average intensity.
type ThomasFit struct {
	Poisson      *PoissonFit
	Kappa, Sigma float64
	Mu           float64
	Contrast     float64
}

// FitThomas fits the linear predictor as FitPoisson does, then estimates the
// cluster parameters by minimum contrast: the (inhomogeneous, when the trend
// is non-trivial) empirical K-function is matched against the theoretical
// Thomas K-function over a grid of (kappa, sigma).
func FitThomas[M comparable](p *pattern.Pattern[M], f Formula, covs map[string]*estimate.Surface, opt FitOptions) (*ThomasFit, error) {
	pois, err := FitPoisson(p, f, covs, opt)
	if err != nil {
		return nil, err
	}

	kopt := estimate.KOptions{}
	var kres *estimate.KResult
	if f.Degree == 0 && len(f.Covariates) == 0 {
		kres, err = estimate.KEst(p, kopt)
	} else {
		lam := make([]float64, p.N())
		for i, pt := range p.Points() {
			lam[i] = pois.Intensity(pt.X, pt.Y)
		}
		kopt.Lambda = lam
		kres, err = estimate.KInhom(p, kopt)
	}
	if err != nil {
		return nil, fmt.Errorf("fit thomas: %w", err)
	}

	kappa, sigma, contrast, err := fitThomasContrast(kres, p.Intensity())
	if err != nil {
		return nil, fmt.Errorf("fit thomas: %w", err)
	}
	return &ThomasFit{
		Poisson:  pois,
		Kappa:    kappa,
		Sigma:    sigma,
		Mu:       p.Intensity() / kappa,
		Contrast: contrast,
	}, nil
}

// ThomasK is the theoretical K-function of a Thomas process.
func ThomasK(r, kappa, sigma float64) float64 {
	return math.Pi*r*r + (1-math.Exp(-r*r/(4*sigma*sigma)))/kappa
}

// fitThomasContrast minimises the standard minimum-contrast criterion
// integral of (Kobs^q - Ktheo^q)^2 with q = 1/4, by a coarse log-scale grid
// search refined once around the best cell. Deterministic given the curve.
func fitThomasContrast(k *estimate.KResult, intensity float64) (kappa, sigma, contrast float64, err error) {
	if len(k.R) == 0 {
		return 0, 0, 0, fmt.Errorf("empty k curve")
	}
	rmax := k.R[len(k.R)-1]

	kapLo, kapHi := intensity/200, intensity*10
	if kapLo <= 0 {
		return 0, 0, 0, fmt.Errorf("non-positive intensity %g", intensity)
	}
	sigLo, sigHi := rmax/200, rmax

	best := math.Inf(1)
	var bk, bs float64
	search := func(kLo, kHi, sLo, sHi float64, steps int) {
		for i := 0; i < steps; i++ {
			ka := kLo * math.Pow(kHi/kLo, float64(i)/float64(steps-1))
			for j := 0; j < steps; j++ {
				si := sLo * math.Pow(sHi/sLo, float64(j)/float64(steps-1))
				c := thomasContrast(k, ka, si)
				if c < best {
					best, bk, bs = c, ka, si
				}
			}
		}
	}
	search(kapLo, kapHi, sigLo, sigHi, 40)
	// Refine one step around the coarse optimum.
	search(bk/1.5, bk*1.5, bs/1.5, bs*1.5, 20)

	if math.IsInf(best, 1) {
		return 0, 0, 0, fmt.Errorf("minimum contrast found no admissible parameters")
	}
	return bk, bs, best, nil
}

func thomasContrast(k *estimate.KResult, kappa, sigma float64) float64 {
	const q = 0.25
	sum := 0.0
	n := 0
	for i, r := range k.R {
		obs := k.Obs[i]
		if math.IsNaN(obs) || obs < 0 {
			continue
		}
		d := math.Pow(obs, q) - math.Pow(ThomasK(r, kappa, sigma), q)
		sum += d * d
		n++
	}
	if n == 0 {
		return math.Inf(1)
	}
	return sum / float64(n)
}

// Simulate draws a synthetic pattern from the fitted cluster model: parents
// from a homogeneous Poisson process (on a window expanded by 4 sigma so
// boundary clusters contribute), offspring displaced by a Gaussian, then
// thinned to the fitted spatial trend.
func (t *ThomasFit) Simulate(rng *rand.Rand) (*pattern.Pattern[string], error) {
	win := t.Poisson.win
	b := win.Bounds()
	pad := 4 * t.Sigma
	ext := pattern.NewRect(b.XMin-pad, b.XMax+pad, b.YMin-pad, b.YMax+pad)

	// Trend thinning probability relative to the peak fitted intensity.
	pred, err := t.Poisson.Predict(64, 64)
	if err != nil {
		return nil, fmt.Errorf("simulate thomas: %w", err)
	}
	lmax := pred.Max()
	if lmax <= 0 {
		return nil, fmt.Errorf("simulate thomas: fitted intensity is not positive")
	}

	// Offspring are generated at the peak rate and thinned to the fitted
	// trend, so the realised intensity tracks lambda(u) everywhere.
	muMax := lmax / t.Kappa
	nParents := estimate.PoissonDraw(rng, t.Kappa*ext.Area())
	var xs, ys []float64
	for i := 0; i < nParents; i++ {
		px := ext.XMin + rng.Float64()*(ext.XMax-ext.XMin)
		py := ext.YMin + rng.Float64()*(ext.YMax-ext.YMin)
		nOff := estimate.PoissonDraw(rng, muMax)
		for o := 0; o < nOff; o++ {
			x := px + rng.NormFloat64()*t.Sigma
			y := py + rng.NormFloat64()*t.Sigma
			if !win.Contains(x, y) {
				continue
			}
			l := t.Poisson.Intensity(x, y)
			if math.IsNaN(l) {
				continue
			}
			if rng.Float64()*lmax < l {
				xs = append(xs, x)
				ys = append(ys, y)
			}
		}
	}
	return pattern.New[string](xs, ys, win)
}
