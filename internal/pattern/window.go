package pattern

import "math"

// Window is a bounded planar region over which points were sampled. Points
// outside the window are not valid members of a pattern.
type Window interface {
	Contains(x, y float64) bool
	Area() float64
	Bounds() Rect
	// BorderDistance returns the distance from (x, y) to the nearest boundary
	// of the window. Border-corrected summary statistics drop points whose
	// border distance is smaller than the radius under evaluation.
	BorderDistance(x, y float64) float64
}

// Rect is an axis-aligned rectangular window.
type Rect struct {
	XMin, XMax float64
	YMin, YMax float64
}

// NewRect returns a rectangular window spanning [xmin,xmax] x [ymin,ymax].
func NewRect(xmin, xmax, ymin, ymax float64) Rect {
	return Rect{XMin: xmin, XMax: xmax, YMin: ymin, YMax: ymax}
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.XMin && x <= r.XMax && y >= r.YMin && y <= r.YMax
}

func (r Rect) Area() float64 {
	return (r.XMax - r.XMin) * (r.YMax - r.YMin)
}

func (r Rect) Bounds() Rect { return r }

func (r Rect) BorderDistance(x, y float64) float64 {
	if !r.Contains(x, y) {
		return 0
	}
	d := x - r.XMin
	if v := r.XMax - x; v < d {
		d = v
	}
	if v := y - r.YMin; v < d {
		d = v
	}
	if v := r.YMax - y; v < d {
		d = v
	}
	return d
}

// Valid reports whether the rectangle has positive extent in both axes.
func (r Rect) Valid() bool {
	return r.XMax > r.XMin && r.YMax > r.YMin
}

// Polygon is a simple (non self-intersecting) polygonal window. The vertex
// ring may be given in either orientation and need not be closed.
type Polygon struct {
	Vertices []Point
}

// NewPolygon returns a polygonal window over the given vertex ring.
func NewPolygon(vertices []Point) Polygon {
	vs := make([]Point, len(vertices))
	copy(vs, vertices)
	// Drop an explicit closing vertex; the ring is treated as closed.
	if n := len(vs); n > 1 && vs[0] == vs[n-1] {
		vs = vs[:n-1]
	}
	return Polygon{Vertices: vs}
}

// Contains uses ray casting; boundary points count as inside.
func (p Polygon) Contains(x, y float64) bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}
	if p.onBoundary(x, y) {
		return true
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := p.Vertices[i], p.Vertices[j]
		if (a.Y > y) != (b.Y > y) &&
			x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Area returns the shoelace area of the polygon.
func (p Polygon) Area() float64 {
	n := len(p.Vertices)
	if n < 3 {
		return 0
	}
	sum := 0.0
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := p.Vertices[j], p.Vertices[i]
		sum += a.X*b.Y - b.X*a.Y
		j = i
	}
	return math.Abs(sum) / 2
}

func (p Polygon) Bounds() Rect {
	if len(p.Vertices) == 0 {
		return Rect{}
	}
	r := Rect{
		XMin: math.Inf(1), XMax: math.Inf(-1),
		YMin: math.Inf(1), YMax: math.Inf(-1),
	}
	for _, v := range p.Vertices {
		r.XMin = math.Min(r.XMin, v.X)
		r.XMax = math.Max(r.XMax, v.X)
		r.YMin = math.Min(r.YMin, v.Y)
		r.YMax = math.Max(r.YMax, v.Y)
	}
	return r
}

func (p Polygon) BorderDistance(x, y float64) float64 {
	if !p.Contains(x, y) {
		return 0
	}
	d := math.Inf(1)
	n := len(p.Vertices)
	j := n - 1
	for i := 0; i < n; i++ {
		if v := segmentDistance(x, y, p.Vertices[j], p.Vertices[i]); v < d {
			d = v
		}
		j = i
	}
	return d
}

func (p Polygon) onBoundary(x, y float64) bool {
	const eps = 1e-12
	n := len(p.Vertices)
	j := n - 1
	for i := 0; i < n; i++ {
		if segmentDistance(x, y, p.Vertices[j], p.Vertices[i]) < eps {
			return true
		}
		j = i
	}
	return false
}

// segmentDistance returns the distance from (x, y) to the segment a-b.
func segmentDistance(x, y float64, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	len2 := dx*dx + dy*dy
	t := 0.0
	if len2 > 0 {
		t = ((x-a.X)*dx + (y-a.Y)*dy) / len2
		t = math.Max(0, math.Min(1, t))
	}
	px, py := a.X+t*dx, a.Y+t*dy
	return math.Hypot(x-px, y-py)
}
