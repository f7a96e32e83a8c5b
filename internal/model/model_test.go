package model

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/fernfield/pointpat-cli/internal/estimate"
	"github.com/fernfield/pointpat-cli/internal/pattern"
)

func gridPattern(t *testing.T, n int, size float64) *pattern.Pattern[string] {
	t.Helper()
	var xs, ys []float64
	step := size / float64(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			xs = append(xs, (float64(i)+0.5)*step)
			ys = append(ys, (float64(j)+0.5)*step)
		}
	}
	p, err := pattern.New[string](xs, ys, pattern.NewRect(0, size, 0, size))
	if err != nil {
		t.Fatalf("grid pattern: %v", err)
	}
	return p
}

func TestParseFormula(t *testing.T) {
	cases := []struct {
		spec    string
		want    Formula
		wantErr bool
	}{
		{spec: "1", want: Formula{}},
		{spec: "", want: Formula{}},
		{spec: "poly2", want: Formula{Degree: 2}},
		{spec: "poly1+cov:elev", want: Formula{Degree: 1, Covariates: []string{"elev"}}},
		{spec: "cov:a+cov:b", want: Formula{Covariates: []string{"a", "b"}}},
		{spec: "poly0", wantErr: true},
		{spec: "poly2+poly3", wantErr: true},
		{spec: "cov:", wantErr: true},
		{spec: "quadratic", wantErr: true},
	}
	for _, c := range cases {
		got, err := ParseFormula(c.spec)
		if c.wantErr {
			var inv *InvalidFormulaError
			if !errors.As(err, &inv) {
				t.Errorf("ParseFormula(%q): expected InvalidFormulaError, got %v", c.spec, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormula(%q): %v", c.spec, err)
			continue
		}
		if got.Degree != c.want.Degree || len(got.Covariates) != len(c.want.Covariates) {
			t.Errorf("ParseFormula(%q) = %+v, want %+v", c.spec, got, c.want)
		}
	}
}

func TestFormulaTermNames(t *testing.T) {
	f := Formula{Degree: 2, Covariates: []string{"elev"}}
	names := f.TermNames()
	want := []string{"(intercept)", "x", "y", "x^2", "x*y", "y^2", "elev"}
	if len(names) != len(want) {
		t.Fatalf("term names: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("term %d: got %q want %q", i, names[i], want[i])
		}
	}
	if f.NTerms() != len(want) {
		t.Fatalf("NTerms() = %d, want %d", f.NTerms(), len(want))
	}
}

func TestFitPoissonInterceptOnly(t *testing.T) {
	// 100 points over a 10x10 window: the intercept-only maximum likelihood
	// estimate is log(n/area) = log(1) = 0.
	p := gridPattern(t, 10, 10)
	fit, err := FitPoisson(p, Formula{}, nil, FitOptions{})
	if err != nil {
		t.Fatalf("FitPoisson: %v", err)
	}
	if len(fit.Coef) != 1 {
		t.Fatalf("coefficients: %v", fit.Coef)
	}
	if math.Abs(fit.Coef[0]) > 1e-6 {
		t.Fatalf("intercept %g, want 0", fit.Coef[0])
	}
	if fit.SE[0] <= 0 || math.IsNaN(fit.SE[0]) {
		t.Fatalf("standard error %g", fit.SE[0])
	}
	if l := fit.Intensity(5, 5); math.Abs(l-1) > 1e-6 {
		t.Fatalf("fitted intensity %g, want 1", l)
	}
}

func TestFitPoissonUnknownCovariate(t *testing.T) {
	p := gridPattern(t, 5, 10)
	_, err := FitPoisson(p, Formula{Covariates: []string{"elev"}}, nil, FitOptions{})
	var uc *UnknownCovariateError
	if !errors.As(err, &uc) {
		t.Fatalf("expected UnknownCovariateError, got %v", err)
	}
	if uc.Name != "elev" {
		t.Fatalf("wrong covariate in error: %q", uc.Name)
	}
}

func TestFitPoissonNegativeDegree(t *testing.T) {
	p := gridPattern(t, 5, 10)
	_, err := FitPoisson(p, Formula{Degree: -1}, nil, FitOptions{})
	var inv *InvalidFormulaError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidFormulaError, got %v", err)
	}
}

func TestFitPoissonTrendRecoversGradient(t *testing.T) {
	// Deterministic inhomogeneous pattern: point count per column grows
	// along x, so a degree-1 fit must give a clearly positive x slope and a
	// near-zero y slope.
	var xs, ys []float64
	for col := 0; col < 10; col++ {
		x := (float64(col) + 0.5)
		nCol := 1 + col
		for k := 0; k < nCol; k++ {
			xs = append(xs, x)
			ys = append(ys, (float64(k)+0.5)*10/float64(nCol))
		}
	}
	p, err := pattern.New[string](xs, ys, pattern.NewRect(0, 10, 0, 10))
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	fit, err := FitPoisson(p, Formula{Degree: 1}, nil, FitOptions{})
	if err != nil {
		t.Fatalf("FitPoisson: %v", err)
	}
	// Terms: (intercept), x, y.
	if fit.Coef[1] <= 0.05 {
		t.Fatalf("x slope %g, want clearly positive", fit.Coef[1])
	}
	if math.Abs(fit.Coef[2]) > 0.05 {
		t.Fatalf("y slope %g, want near zero", fit.Coef[2])
	}
	if fit.Intensity(9, 5) <= fit.Intensity(1, 5) {
		t.Fatal("fitted intensity must increase along x")
	}
}

func TestFitPoissonWithCovariate(t *testing.T) {
	p := gridPattern(t, 10, 10)
	win := p.Window().Bounds()
	cov, err := estimate.NewSurface(win, 16, 16)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	for iy := 0; iy < cov.NY; iy++ {
		for ix := 0; ix < cov.NX; ix++ {
			x, _ := cov.Center(ix, iy)
			cov.Set(ix, iy, x/10)
		}
	}
	fit, err := FitPoisson(p, Formula{Covariates: []string{"elev"}},
		map[string]*estimate.Surface{"elev": cov}, FitOptions{})
	if err != nil {
		t.Fatalf("FitPoisson: %v", err)
	}
	// The pattern is uniform, so the covariate effect should be small.
	if math.Abs(fit.Coef[1]) > 0.5 {
		t.Fatalf("covariate effect %g for a uniform pattern", fit.Coef[1])
	}

	xs, ys, err := fit.Marginal("elev", 20)
	if err != nil {
		t.Fatalf("Marginal: %v", err)
	}
	if len(xs) != 20 || len(ys) != 20 {
		t.Fatalf("marginal lengths: %d, %d", len(xs), len(ys))
	}
	for _, v := range ys {
		if v <= 0 || math.IsNaN(v) {
			t.Fatalf("marginal intensity %g", v)
		}
	}
	if _, _, err := fit.Marginal("soil", 10); err == nil {
		t.Fatal("expected error for unknown marginal covariate")
	}
}

func TestPredictMatchesIntensity(t *testing.T) {
	p := gridPattern(t, 10, 10)
	fit, err := FitPoisson(p, Formula{}, nil, FitOptions{})
	if err != nil {
		t.Fatalf("FitPoisson: %v", err)
	}
	pred, err := fit.Predict(32, 32)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if v := pred.At(5, 5); math.Abs(v-fit.Intensity(5, 5)) > 1e-12 {
		t.Fatalf("surface %g vs direct %g", v, fit.Intensity(5, 5))
	}
	// Expected count over the window equals the observed count for a
	// homogeneous maximum likelihood fit.
	if total := pred.Integral(); math.Abs(total-100) > 1 {
		t.Fatalf("predicted total %g, want about 100", total)
	}
}

func TestThomasContrastRecoversParameters(t *testing.T) {
	// Build a noiseless observed curve directly from the theoretical Thomas
	// K-function; minimum contrast must recover the generating parameters.
	const kappa, sigma = 0.05, 0.6
	k := &estimate.KResult{}
	for i := 1; i <= 50; i++ {
		r := 2.5 * float64(i) / 50
		k.R = append(k.R, r)
		k.Obs = append(k.Obs, ThomasK(r, kappa, sigma))
		k.Theo = append(k.Theo, math.Pi*r*r)
	}
	gotKappa, gotSigma, contrast, err := fitThomasContrast(k, 1.0)
	if err != nil {
		t.Fatalf("fitThomasContrast: %v", err)
	}
	if math.Abs(gotKappa-kappa)/kappa > 0.15 {
		t.Fatalf("kappa %g, want about %g", gotKappa, kappa)
	}
	if math.Abs(gotSigma-sigma)/sigma > 0.15 {
		t.Fatalf("sigma %g, want about %g", gotSigma, sigma)
	}
	if contrast > 1e-3 {
		t.Fatalf("contrast %g for a noiseless curve", contrast)
	}
}

func TestThomasSimulateStaysInWindow(t *testing.T) {
	p := gridPattern(t, 10, 10)
	fit, err := FitPoisson(p, Formula{}, nil, FitOptions{})
	if err != nil {
		t.Fatalf("FitPoisson: %v", err)
	}
	tf := &ThomasFit{Poisson: fit, Kappa: 0.2, Sigma: 0.5, Mu: 5}
	rng := rand.New(rand.NewSource(21))
	sim, err := tf.Simulate(rng)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	win := p.Window()
	for _, pt := range sim.Points() {
		if !win.Contains(pt.X, pt.Y) {
			t.Fatalf("simulated point (%g, %g) outside window", pt.X, pt.Y)
		}
	}
}

func TestResidualsNearZeroForGoodFit(t *testing.T) {
	p := gridPattern(t, 10, 10)
	fit, err := FitPoisson(p, Formula{}, nil, FitOptions{})
	if err != nil {
		t.Fatalf("FitPoisson: %v", err)
	}
	res, err := fit.Residuals(p, estimate.DensityOptions{Bandwidth: 1.5, NX: 32, NY: 32})
	if err != nil {
		t.Fatalf("Residuals: %v", err)
	}
	// A homogeneous fit to a uniform pattern: residuals stay a small
	// fraction of the fitted intensity (1.0) everywhere.
	if m := math.Max(math.Abs(res.Max()), math.Abs(res.Min())); m > 0.5 {
		t.Fatalf("residual magnitude %g for a well-specified fit", m)
	}
}

func TestModelLineupAndEnvelope(t *testing.T) {
	p := gridPattern(t, 8, 10)
	fit, err := FitPoisson(p, Formula{}, nil, FitOptions{})
	if err != nil {
		t.Fatalf("FitPoisson: %v", err)
	}
	rng := rand.New(rand.NewSource(17))
	l, err := fit.Lineup(rng, p, 5)
	if err != nil {
		t.Fatalf("Lineup: %v", err)
	}
	if len(l.Patterns) != 6 || l.Patterns[l.RealIndex] != p {
		t.Fatalf("lineup misplaced the real pattern (index %d of %d)", l.RealIndex, len(l.Patterns))
	}

	env, err := fit.ValidationEnvelope(p, rng, 9, false)
	if err != nil {
		t.Fatalf("ValidationEnvelope: %v", err)
	}
	if len(env.R) == 0 || len(env.Lo) != len(env.R) {
		t.Fatalf("envelope shape: %d r values, %d lo", len(env.R), len(env.Lo))
	}
}
