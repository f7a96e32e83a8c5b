package estimate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// gridPattern returns an n-by-n regular grid of points in [0,size]^2.
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

// cornerPattern returns points crowded into the lower-left corner.
func cornerPattern(t *testing.T, n int, size float64) *pattern.Pattern[string] {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = rng.Float64() * size / 10
		ys[i] = rng.Float64() * size / 10
	}
	p, err := pattern.New[string](xs, ys, pattern.NewRect(0, size, 0, size))
	if err != nil {
		t.Fatalf("corner pattern: %v", err)
	}
	return p
}

func TestDensityIntegratesToPointCount(t *testing.T) {
	p := gridPattern(t, 10, 10)
	s, err := Density(p, DensityOptions{Bandwidth: 0.8, NX: 64, NY: 64})
	if err != nil {
		t.Fatalf("Density: %v", err)
	}
	total := s.Integral()
	if math.Abs(total-100) > 5 {
		t.Fatalf("density integral %g, want about 100", total)
	}
	if s.Min() < 0 {
		t.Fatalf("negative density %g", s.Min())
	}
}

func TestDensityMasksOutsidePolygon(t *testing.T) {
	tri := pattern.NewPolygon([]pattern.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}})
	p, err := pattern.New[string]([]float64{1, 2, 3}, []float64{1, 2, 3}, tri)
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	s, err := Density(p, DensityOptions{Bandwidth: 1, NX: 32, NY: 32})
	if err != nil {
		t.Fatalf("Density: %v", err)
	}
	// The upper-right half of the bounding box lies outside the triangle.
	if v := s.At(9, 9); !math.IsNaN(v) {
		t.Fatalf("expected NaN outside window, got %g", v)
	}
	if v := s.At(2, 2); math.IsNaN(v) || v <= 0 {
		t.Fatalf("expected positive density inside window, got %g", v)
	}
}

func TestQuadratTestUniformGrid(t *testing.T) {
	// 100 points spread 4 per cell over a 5x5 grid: chi-square statistic is
	// exactly zero and homogeneity cannot be rejected.
	p := gridPattern(t, 10, 10)
	res, err := QuadratTest(p, QuadratOptions{})
	if err != nil {
		t.Fatalf("QuadratTest: %v", err)
	}
	if res.NX != 5 || res.NY != 5 {
		t.Fatalf("default grid: %dx%d", res.NX, res.NY)
	}
	if res.Statistic > 1e-9 {
		t.Fatalf("statistic %g for perfectly uniform counts", res.Statistic)
	}
	if res.DF != 24 {
		t.Fatalf("df %d, want 24", res.DF)
	}
	if res.PValue < 0.999 {
		t.Fatalf("p-value %g, want about 1", res.PValue)
	}
	if res.Rejected() {
		t.Fatal("uniform grid must not reject homogeneity")
	}
}

func TestQuadratTestRejectsCluster(t *testing.T) {
	p := cornerPattern(t, 100, 10)
	res, err := QuadratTest(p, QuadratOptions{})
	if err != nil {
		t.Fatalf("QuadratTest: %v", err)
	}
	if !res.Rejected() {
		t.Fatalf("clustered pattern not rejected: p=%g", res.PValue)
	}
}

func TestQuadratTestEmptyPattern(t *testing.T) {
	p, _ := pattern.New[string](nil, nil, pattern.NewRect(0, 1, 0, 1))
	if _, err := QuadratTest(p, QuadratOptions{}); err == nil {
		t.Fatal("expected error for empty pattern")
	}
}

func TestKEstRegularGridIsDispersed(t *testing.T) {
	// Grid spacing is 1; below that distance a regular grid has no
	// neighbors, so the K curve sits under the Poisson reference.
	p := gridPattern(t, 10, 10)
	res, err := KEst(p, KOptions{RMax: 2, NR: 20})
	if err != nil {
		t.Fatalf("KEst: %v", err)
	}
	for i, r := range res.R {
		if r >= 0.95 {
			break
		}
		if res.Obs[i] != 0 {
			t.Fatalf("K(%g) = %g, want 0 below grid spacing", r, res.Obs[i])
		}
		if res.Theo[i] <= 0 {
			t.Fatalf("theoretical K(%g) = %g", r, res.Theo[i])
		}
	}
}

func TestGEstRegularGrid(t *testing.T) {
	p := gridPattern(t, 10, 10)
	res, err := GEst(p, KOptions{RMax: 2, NR: 20})
	if err != nil {
		t.Fatalf("GEst: %v", err)
	}
	// All nearest-neighbor distances equal the grid spacing: G jumps from 0
	// to 1 at r = 1.
	for i, r := range res.R {
		want := 0.0
		if r >= 1 {
			want = 1
		}
		if !math.IsNaN(res.Obs[i]) && res.Obs[i] != want {
			t.Fatalf("G(%g) = %g, want %g", r, res.Obs[i], want)
		}
	}
}

func TestKInhomMatchesKForConstantLambda(t *testing.T) {
	p := gridPattern(t, 8, 10)
	lambda := make([]float64, p.N())
	for i := range lambda {
		lambda[i] = p.Intensity()
	}
	plain, err := KEst(p, KOptions{RMax: 2, NR: 10})
	if err != nil {
		t.Fatalf("KEst: %v", err)
	}
	inhom, err := KInhom(p, KOptions{RMax: 2, NR: 10, Lambda: lambda})
	if err != nil {
		t.Fatalf("KInhom: %v", err)
	}
	for i := range plain.R {
		a, b := plain.Obs[i], inhom.Obs[i]
		if math.IsNaN(a) != math.IsNaN(b) {
			t.Fatalf("NaN mismatch at r=%g", plain.R[i])
		}
		if !math.IsNaN(a) && math.Abs(a-b) > 1e-9 {
			t.Fatalf("K and Kinhom with constant lambda differ at r=%g: %g vs %g", plain.R[i], a, b)
		}
	}
}

func TestKInhomRejectsBadLambda(t *testing.T) {
	p := gridPattern(t, 4, 10)
	bad := make([]float64, p.N())
	if _, err := KInhom(p, KOptions{Lambda: bad}); err == nil {
		t.Fatal("expected error for zero intensities")
	}
	if _, err := KInhom(p, KOptions{Lambda: []float64{1}}); err == nil {
		t.Fatal("expected error for short lambda vector")
	}
}

func TestEnvelopeReproducibleAndOrdered(t *testing.T) {
	p := gridPattern(t, 6, 10)
	run := func(seed int64) *EnvelopeResult {
		rng := rand.New(rand.NewSource(seed))
		env, err := Envelope(p, rng, EnvelopeOptions{Sims: 9, K: KOptions{RMax: 2, NR: 10}})
		if err != nil {
			t.Fatalf("Envelope: %v", err)
		}
		return env
	}
	a, b := run(42), run(42)
	for i := range a.R {
		if a.Lo[i] != b.Lo[i] || a.Hi[i] != b.Hi[i] {
			t.Fatal("same seed must reproduce the envelope exactly")
		}
		if a.Lo[i] > a.Hi[i] {
			t.Fatalf("band inverted at r=%g: [%g, %g]", a.R[i], a.Lo[i], a.Hi[i])
		}
	}
	c := run(43)
	same := true
	for i := range a.R {
		if a.Lo[i] != c.Lo[i] || a.Hi[i] != c.Hi[i] {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical envelopes")
	}
}

func TestEnvelopeGlobalBandIsConstantWidth(t *testing.T) {
	p := gridPattern(t, 6, 10)
	rng := rand.New(rand.NewSource(1))
	env, err := Envelope(p, rng, EnvelopeOptions{Sims: 9, Global: true, K: KOptions{RMax: 2, NR: 10}})
	if err != nil {
		t.Fatalf("Envelope: %v", err)
	}
	w0 := env.Hi[0] - env.Lo[0]
	for i := range env.R {
		if math.Abs((env.Hi[i]-env.Lo[i])-w0) > 1e-9 {
			t.Fatalf("global band width varies: %g vs %g", env.Hi[i]-env.Lo[i], w0)
		}
	}
}

func TestLineupPlacesRealPatternOnce(t *testing.T) {
	p := gridPattern(t, 6, 10)
	rng := rand.New(rand.NewSource(11))
	l, err := CSRLineup(rng, p, 15)
	if err != nil {
		t.Fatalf("CSRLineup: %v", err)
	}
	if len(l.Patterns) != 16 {
		t.Fatalf("expected 16 panels, got %d", len(l.Patterns))
	}
	if l.RealIndex < 0 || l.RealIndex >= len(l.Patterns) {
		t.Fatalf("real index %d out of range", l.RealIndex)
	}
	real := 0
	for i, panel := range l.Patterns {
		if panel == p {
			real++
			if i != l.RealIndex {
				t.Fatalf("real pattern at slot %d, announced %d", i, l.RealIndex)
			}
		}
	}
	if real != 1 {
		t.Fatalf("real pattern appears %d times", real)
	}
	// Decoys share window and nominal intensity regime with the original.
	for i, panel := range l.Patterns {
		if i == l.RealIndex {
			continue
		}
		if panel.Window() != p.Window() {
			t.Fatalf("decoy %d has a different window", i)
		}
	}
}

func TestLineupSeedReproducible(t *testing.T) {
	p := gridPattern(t, 6, 10)
	a, err := CSRLineup(rand.New(rand.NewSource(3)), p, 7)
	if err != nil {
		t.Fatalf("CSRLineup: %v", err)
	}
	b, err := CSRLineup(rand.New(rand.NewSource(3)), p, 7)
	if err != nil {
		t.Fatalf("CSRLineup: %v", err)
	}
	if a.RealIndex != b.RealIndex {
		t.Fatalf("seeded real index differs: %d vs %d", a.RealIndex, b.RealIndex)
	}
	for i := range a.Patterns {
		if a.Patterns[i].N() != b.Patterns[i].N() {
			t.Fatalf("seeded panel %d sizes differ: %d vs %d", i, a.Patterns[i].N(), b.Patterns[i].N())
		}
	}
}

func TestPoissonDrawMoments(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	if PoissonDraw(rng, 0) != 0 {
		t.Fatal("mean 0 must draw 0")
	}
	const mean, reps = 50.0, 400
	sum := 0
	for i := 0; i < reps; i++ {
		sum += PoissonDraw(rng, mean)
	}
	got := float64(sum) / reps
	// Standard error of the sample mean is sqrt(50/400) ~ 0.35; a tolerance
	// of 2 is over five standard errors.
	if math.Abs(got-mean) > 2 {
		t.Fatalf("sample mean %g far from %g", got, mean)
	}
}

func TestSimulateInhomRespectsSurface(t *testing.T) {
	win := pattern.NewRect(0, 10, 0, 10)
	s, err := NewSurface(win, 10, 10)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	// All mass in the left half.
	for iy := 0; iy < s.NY; iy++ {
		for ix := 0; ix < s.NX/2; ix++ {
			s.Set(ix, iy, 5)
		}
	}
	rng := rand.New(rand.NewSource(9))
	p, err := SimulateInhom(rng, s, win)
	if err != nil {
		t.Fatalf("SimulateInhom: %v", err)
	}
	if p.N() == 0 {
		t.Fatal("expected points from a surface with mean intensity 2.5 over area 100")
	}
	for _, pt := range p.Points() {
		if pt.X >= 5 {
			t.Fatalf("point at x=%g where intensity is zero", pt.X)
		}
	}
}

func TestSurfaceSubGridMismatch(t *testing.T) {
	r := pattern.NewRect(0, 1, 0, 1)
	a, _ := NewSurface(r, 4, 4)
	b, _ := NewSurface(r, 5, 5)
	if _, err := a.Sub(b); err == nil {
		t.Fatal("expected grid mismatch error")
	}
}
