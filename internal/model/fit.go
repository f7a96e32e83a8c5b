package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/fernfield/pointpat-cli/internal/estimate"
	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// FitOptions controls the quadrature scheme and the IRLS iteration.
type FitOptions struct {
	// DummyGrid is the per-axis count of dummy quadrature points. Zero
	// defaults to 32 (a 32x32 grid).
	DummyGrid int
	// MaxIter bounds the IRLS iterations; zero defaults to 50.
	MaxIter int
	// Tol is the convergence tolerance on the log-likelihood change; zero
	// defaults to 1e-8.
	Tol float64
}

func (o FitOptions) withDefaults() FitOptions {
	if o.DummyGrid <= 0 {
		o.DummyGrid = 32
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 50
	}
	if o.Tol <= 0 {
		o.Tol = 1e-8
	}
	return o
}

// NotConvergedError indicates IRLS failed to converge within MaxIter.
type NotConvergedError struct {
	Iterations int
	Delta      float64
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("model fit did not converge after %d iterations (last log-likelihood change %g)", e.Iterations, e.Delta)
}

// PoissonFit is a fitted log-linear Poisson intensity model.
type PoissonFit struct {
	Formula    Formula
	Names      []string
	Coef       []float64
	SE         []float64
	LogLik     float64
	Iterations int

	win      pattern.Window
	covs     map[string]*estimate.Surface
	colMeans []float64
}

// FitPoisson fits intensity(u) = exp(b . z(u)) by maximum likelihood using
// Berman-Turner quadrature: the data points plus a regular grid of dummy
// points, with grid-count weights, reduce the point-process likelihood to a
// weighted Poisson regression solved by IRLS. Covariate terms in the formula
// are looked up in covs; a missing surface fails before any fitting work.
func FitPoisson[M comparable](p *pattern.Pattern[M], f Formula, covs map[string]*estimate.Surface, opt FitOptions) (*PoissonFit, error) {
	opt = opt.withDefaults()
	if f.Degree < 0 {
		return nil, &InvalidFormulaError{Spec: fmt.Sprintf("poly%d", f.Degree), Reason: "negative degree"}
	}
	for _, c := range f.Covariates {
		if _, ok := covs[c]; !ok {
			return nil, &UnknownCovariateError{Name: c}
		}
	}
	if p.N() == 0 {
		return nil, fmt.Errorf("fit poisson: empty pattern")
	}

	q, err := buildQuadrature(p, f, covs, opt.DummyGrid)
	if err != nil {
		return nil, err
	}
	coef, iters, loglik, err := irls(q, opt)
	if err != nil {
		return nil, err
	}

	fit := &PoissonFit{
		Formula:    f,
		Names:      f.TermNames(),
		Coef:       coef,
		LogLik:     loglik,
		Iterations: iters,
		win:        p.Window(),
		covs:       covs,
		colMeans:   q.colMeans(),
	}
	fit.SE = standardErrors(q, coef)
	return fit, nil
}

// Intensity evaluates the fitted intensity at a location.
func (m *PoissonFit) Intensity(x, y float64) float64 {
	row := make([]float64, len(m.Coef))
	if err := designRow(row, x, y, m.Formula, m.covs); err != nil {
		return math.NaN()
	}
	eta := 0.0
	for i, v := range row {
		eta += m.Coef[i] * v
	}
	return math.Exp(eta)
}

// Predict samples the fitted intensity on an nx-by-ny grid over the window,
// masking cells outside it.
func (m *PoissonFit) Predict(nx, ny int) (*estimate.Surface, error) {
	s, err := estimate.NewSurface(m.win.Bounds(), nx, ny)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			x, y := s.Center(ix, iy)
			if !m.win.Contains(x, y) {
				s.Set(ix, iy, math.NaN())
				continue
			}
			s.Set(ix, iy, m.Intensity(x, y))
		}
	}
	return s, nil
}

// Marginal returns the fitted intensity as a function of one covariate,
// holding every other term at its quadrature mean: the single-covariate
// effect curve. The x values span the covariate surface's observed range.
func (m *PoissonFit) Marginal(cov string, n int) (xs, ys []float64, err error) {
	surface, ok := m.covs[cov]
	if !ok {
		return nil, nil, &UnknownCovariateError{Name: cov}
	}
	col := -1
	for i, name := range m.Names {
		if name == cov {
			col = i
		}
	}
	if col < 0 {
		return nil, nil, fmt.Errorf("marginal: covariate %q is not a term of the fitted model", cov)
	}
	if n < 2 {
		n = 50
	}
	lo, hi := surface.Min(), surface.Max()
	if !(hi > lo) {
		return nil, nil, fmt.Errorf("marginal: covariate %q has no spread (min %g, max %g)", cov, lo, hi)
	}
	// Baseline linear predictor with every term at its mean.
	base := 0.0
	for i, v := range m.colMeans {
		if i != col {
			base += m.Coef[i] * v
		}
	}
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := range xs {
		z := lo + (hi-lo)*float64(i)/float64(n-1)
		xs[i] = z
		ys[i] = math.Exp(base + m.Coef[col]*z)
	}
	return xs, ys, nil
}

// quadrature is the weighted regression problem a point-process fit reduces
// to: design matrix rows for data and dummy points, responses y = z/w, and
// quadrature weights w.
type quadrature struct {
	X *mat.Dense
	y []float64
	w []float64
}

func (q *quadrature) colMeans() []float64 {
	_, c := q.X.Dims()
	out := make([]float64, c)
	r, _ := q.X.Dims()
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += q.X.At(i, j)
		}
		out[j] = sum / float64(r)
	}
	return out
}

func buildQuadrature[M comparable](p *pattern.Pattern[M], f Formula, covs map[string]*estimate.Surface, dummyGrid int) (*quadrature, error) {
	win := p.Window()
	b := win.Bounds()
	cw := (b.XMax - b.XMin) / float64(dummyGrid)
	ch := (b.YMax - b.YMin) / float64(dummyGrid)

	type quadPoint struct {
		x, y float64
		data bool
	}
	var qp []quadPoint
	for _, pt := range p.Points() {
		qp = append(qp, quadPoint{x: pt.X, y: pt.Y, data: true})
	}
	for iy := 0; iy < dummyGrid; iy++ {
		for ix := 0; ix < dummyGrid; ix++ {
			x := b.XMin + (float64(ix)+0.5)*cw
			y := b.YMin + (float64(iy)+0.5)*ch
			if win.Contains(x, y) {
				qp = append(qp, quadPoint{x: x, y: y})
			}
		}
	}

	// Grid-count weights: each quadrature point gets cellArea / (points in
	// its cell), so weights sum to the window area.
	cell := func(x, y float64) int {
		ix := clampInt(int((x-b.XMin)/cw), 0, dummyGrid-1)
		iy := clampInt(int((y-b.YMin)/ch), 0, dummyGrid-1)
		return iy*dummyGrid + ix
	}
	perCell := make([]int, dummyGrid*dummyGrid)
	for _, u := range qp {
		perCell[cell(u.x, u.y)]++
	}
	cellArea := cw * ch

	nTerms := f.NTerms()
	X := mat.NewDense(len(qp), nTerms, nil)
	y := make([]float64, len(qp))
	w := make([]float64, len(qp))
	row := make([]float64, nTerms)
	for i, u := range qp {
		if err := designRow(row, u.x, u.y, f, covs); err != nil {
			if u.data {
				return nil, fmt.Errorf("fit poisson: %w at data point (%g, %g)", err, u.x, u.y)
			}
			// Dummy points where a covariate is undefined carry no
			// information; weight them out.
			for j := range row {
				row[j] = 0
			}
			row[0] = 1
			w[i] = 1e-12
			X.SetRow(i, row)
			continue
		}
		X.SetRow(i, row)
		w[i] = cellArea / float64(perCell[cell(u.x, u.y)])
		if u.data {
			y[i] = 1 / w[i]
		}
	}
	return &quadrature{X: X, y: y, w: w}, nil
}

// designRow fills row with the model terms evaluated at (x, y).
func designRow(row []float64, x, y float64, f Formula, covs map[string]*estimate.Surface) error {
	k := 0
	row[k] = 1
	k++
	for d := 1; d <= f.Degree; d++ {
		for px := d; px >= 0; px-- {
			row[k] = math.Pow(x, float64(px)) * math.Pow(y, float64(d-px))
			k++
		}
	}
	for _, c := range f.Covariates {
		s, ok := covs[c]
		if !ok {
			return &UnknownCovariateError{Name: c}
		}
		v := s.At(x, y)
		if math.IsNaN(v) {
			return fmt.Errorf("covariate %q undefined", c)
		}
		row[k] = v
		k++
	}
	return nil
}

// irls maximises the weighted Poisson quadrature likelihood. Returns the
// coefficient vector, iteration count and maximised log-likelihood.
func irls(q *quadrature, opt FitOptions) ([]float64, int, float64, error) {
	n, p := q.X.Dims()
	beta := make([]float64, p)
	// Start from the homogeneous fit: log(total count / total weight).
	count, wsum := 0.0, 0.0
	for i := 0; i < n; i++ {
		count += q.y[i] * q.w[i]
		wsum += q.w[i]
	}
	if count <= 0 || wsum <= 0 {
		return nil, 0, 0, fmt.Errorf("fit poisson: degenerate quadrature (count %g, weight %g)", count, wsum)
	}
	beta[0] = math.Log(count / wsum)

	prev := math.Inf(-1)
	for iter := 1; iter <= opt.MaxIter; iter++ {
		// Working response and weights for the current linearisation.
		xtwx := mat.NewSymDense(p, nil)
		xtwz := make([]float64, p)
		loglik := 0.0
		for i := 0; i < n; i++ {
			eta := 0.0
			for j := 0; j < p; j++ {
				eta += q.X.At(i, j) * beta[j]
			}
			mu := math.Exp(eta)
			wi := q.w[i] * mu
			zi := eta + (q.y[i]-mu)/mu
			for j := 0; j < p; j++ {
				xij := q.X.At(i, j)
				xtwz[j] += wi * xij * zi
				for k := j; k < p; k++ {
					xtwx.SetSym(j, k, xtwx.At(j, k)+wi*xij*q.X.At(i, k))
				}
			}
			loglik += q.w[i] * (q.y[i]*eta - mu)
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(xtwx); !ok {
			return nil, iter, loglik, fmt.Errorf("fit poisson: singular information matrix (collinear terms?)")
		}
		var sol mat.VecDense
		if err := chol.SolveVecTo(&sol, mat.NewVecDense(p, xtwz)); err != nil {
			return nil, iter, loglik, fmt.Errorf("fit poisson: solve failed: %w", err)
		}
		for j := 0; j < p; j++ {
			beta[j] = sol.AtVec(j)
		}

		delta := math.Abs(loglik - prev)
		if delta < opt.Tol*(math.Abs(loglik)+1) {
			return beta, iter, loglik, nil
		}
		prev = loglik
	}
	return nil, opt.MaxIter, prev, &NotConvergedError{Iterations: opt.MaxIter, Delta: math.NaN()}
}

// standardErrors returns sqrt of the diagonal of the inverse Fisher
// information at the fitted coefficients.
func standardErrors(q *quadrature, beta []float64) []float64 {
	n, p := q.X.Dims()
	xtwx := mat.NewSymDense(p, nil)
	for i := 0; i < n; i++ {
		eta := 0.0
		for j := 0; j < p; j++ {
			eta += q.X.At(i, j) * beta[j]
		}
		wi := q.w[i] * math.Exp(eta)
		for j := 0; j < p; j++ {
			for k := j; k < p; k++ {
				xtwx.SetSym(j, k, xtwx.At(j, k)+wi*q.X.At(i, j)*q.X.At(i, k))
			}
		}
	}
	se := make([]float64, p)
	var chol mat.Cholesky
	if ok := chol.Factorize(xtwx); !ok {
		for j := range se {
			se[j] = math.NaN()
		}
		return se
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		for j := range se {
			se[j] = math.NaN()
		}
		return se
	}
	for j := 0; j < p; j++ {
		se[j] = math.Sqrt(inv.At(j, j))
	}
	return se
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
