// Package estimate computes exploratory summaries of point patterns: kernel
// intensity surfaces, quadrat counts with a chi-square homogeneity test, and
// distance-based summary functions (K, G) with simulation envelopes.
package estimate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/fernfield/pointpat-cli/internal/pattern"
)

// Surface is a scalar field sampled on a regular grid over a window's
// bounding rectangle. Cells whose centre lies outside the window hold NaN.
type Surface struct {
	Rect   pattern.Rect
	NX, NY int
	// Values is row-major: Values[iy*NX+ix] is the value at cell (ix, iy),
	// with iy increasing from YMin upward.
	Values []float64
}

// NewSurface allocates a zero surface on an nx-by-ny grid over r.
func NewSurface(r pattern.Rect, nx, ny int) (*Surface, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("surface grid must be at least 1x1, got %dx%d", nx, ny)
	}
	if !r.Valid() {
		return nil, fmt.Errorf("surface rectangle has no extent: %+v", r)
	}
	return &Surface{Rect: r, NX: nx, NY: ny, Values: make([]float64, nx*ny)}, nil
}

// CellWidth returns the grid spacing along x.
func (s *Surface) CellWidth() float64 { return (s.Rect.XMax - s.Rect.XMin) / float64(s.NX) }

// CellHeight returns the grid spacing along y.
func (s *Surface) CellHeight() float64 { return (s.Rect.YMax - s.Rect.YMin) / float64(s.NY) }

// CellArea returns the area of one grid cell.
func (s *Surface) CellArea() float64 { return s.CellWidth() * s.CellHeight() }

// Center returns the centre of cell (ix, iy).
func (s *Surface) Center(ix, iy int) (x, y float64) {
	x = s.Rect.XMin + (float64(ix)+0.5)*s.CellWidth()
	y = s.Rect.YMin + (float64(iy)+0.5)*s.CellHeight()
	return x, y
}

// At returns the value of the cell containing (x, y), clamping to the grid
// edge. NaN is returned for cells outside the window mask.
func (s *Surface) At(x, y float64) float64 {
	ix := int((x - s.Rect.XMin) / s.CellWidth())
	iy := int((y - s.Rect.YMin) / s.CellHeight())
	ix = clamp(ix, 0, s.NX-1)
	iy = clamp(iy, 0, s.NY-1)
	return s.Values[iy*s.NX+ix]
}

// Set assigns the value of cell (ix, iy).
func (s *Surface) Set(ix, iy int, v float64) { s.Values[iy*s.NX+ix] = v }

// Get returns the value of cell (ix, iy).
func (s *Surface) Get(ix, iy int) float64 { return s.Values[iy*s.NX+ix] }

// Max returns the largest finite value on the surface.
func (s *Surface) Max() float64 {
	max := math.Inf(-1)
	for _, v := range s.Values {
		if !math.IsNaN(v) && v > max {
			max = v
		}
	}
	return max
}

// Min returns the smallest finite value on the surface.
func (s *Surface) Min() float64 {
	min := math.Inf(1)
	for _, v := range s.Values {
		if !math.IsNaN(v) && v < min {
			min = v
		}
	}
	return min
}

// Integral returns the surface integral (sum of finite cells times cell
// area). For an intensity surface this approximates the expected point count.
func (s *Surface) Integral() float64 {
	sum := 0.0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum * s.CellArea()
}

// Mean returns the mean over finite cells.
func (s *Surface) Mean() float64 {
	sum, n := 0.0, 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Sub returns the cell-wise difference s - o. The grids must agree.
func (s *Surface) Sub(o *Surface) (*Surface, error) {
	if s.NX != o.NX || s.NY != o.NY || s.Rect != o.Rect {
		return nil, fmt.Errorf("surface grids differ: %dx%d over %+v vs %dx%d over %+v",
			s.NX, s.NY, s.Rect, o.NX, o.NY, o.Rect)
	}
	out := &Surface{Rect: s.Rect, NX: s.NX, NY: s.NY, Values: make([]float64, len(s.Values))}
	floats.SubTo(out.Values, s.Values, o.Values)
	return out, nil
}

// Scale multiplies every finite cell by c in place.
func (s *Surface) Scale(c float64) {
	floats.Scale(c, s.Values)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
