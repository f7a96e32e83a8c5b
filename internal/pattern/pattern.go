// Package pattern provides marked spatial point patterns over bounded
// windows: construction, mark attachment, deduplication, subsetting and
// splitting. Patterns are the common currency between the loader, the
// exploratory estimators and the model fitters.
package pattern

import (
	"fmt"
	"sort"
)

// Point is a planar location.
type Point struct {
	X, Y float64
}

// Pattern is an unordered collection of points confined to a window,
// optionally carrying one mark of type M per point. The mark type is fixed at
// construction; categorical patterns use string marks, numeric ones float64.
type Pattern[M comparable] struct {
	pts    []Point
	win    Window
	marks  []M // nil when unmarked; otherwise len(marks) == len(pts)
	unit   string
	marked bool
}

// New constructs a pattern from parallel coordinate slices. It fails if the
// slices differ in length or any point falls outside the window.
func New[M comparable](x, y []float64, win Window) (*Pattern[M], error) {
	if len(x) != len(y) {
		return nil, &CoordMismatchError{XLen: len(x), YLen: len(y)}
	}
	pts := make([]Point, len(x))
	for i := range x {
		if !win.Contains(x[i], y[i]) {
			return nil, &OutsideWindowError{Index: i, X: x[i], Y: y[i]}
		}
		pts[i] = Point{X: x[i], Y: y[i]}
	}
	return &Pattern[M]{pts: pts, win: win}, nil
}

// NewMarked constructs a marked pattern in one step.
func NewMarked[M comparable](x, y []float64, marks []M, win Window) (*Pattern[M], error) {
	p, err := New[M](x, y, win)
	if err != nil {
		return nil, err
	}
	if err := p.AttachMarks(marks); err != nil {
		return nil, err
	}
	return p, nil
}

// N returns the number of points.
func (p *Pattern[M]) N() int { return len(p.pts) }

// Points returns the point slice. Callers must not mutate it.
func (p *Pattern[M]) Points() []Point { return p.pts }

// At returns the i-th point.
func (p *Pattern[M]) At(i int) Point { return p.pts[i] }

// Window returns the sampling window.
func (p *Pattern[M]) Window() Window { return p.win }

// Marked reports whether marks are attached.
func (p *Pattern[M]) Marked() bool { return p.marked }

// Marks returns the mark slice, or nil for an unmarked pattern.
func (p *Pattern[M]) Marks() []M {
	if !p.marked {
		return nil
	}
	return p.marks
}

// Mark returns the i-th mark. Only valid on marked patterns.
func (p *Pattern[M]) Mark(i int) M { return p.marks[i] }

// Unit returns the coordinate unit label, e.g. "metres".
func (p *Pattern[M]) Unit() string { return p.unit }

// SetUnit records the coordinate unit label.
func (p *Pattern[M]) SetUnit(u string) { p.unit = u }

// AttachMarks attaches one mark per point, replacing any existing marks. The
// mark slice length must equal the point count.
func (p *Pattern[M]) AttachMarks(marks []M) error {
	if len(marks) != len(p.pts) {
		return &MarkLengthError{Marks: len(marks), Points: len(p.pts)}
	}
	p.marks = make([]M, len(marks))
	copy(p.marks, marks)
	p.marked = true
	return nil
}

// DropMarks removes any attached marks.
func (p *Pattern[M]) DropMarks() {
	p.marks = nil
	p.marked = false
}

// Intensity returns the average intensity n / |W| (points per unit area).
func (p *Pattern[M]) Intensity() float64 {
	a := p.win.Area()
	if a <= 0 {
		return 0
	}
	return float64(len(p.pts)) / a
}

// Dedup returns a pattern with exact coordinate duplicates removed, keeping
// the first occurrence (and its mark), plus the number of points dropped.
func (p *Pattern[M]) Dedup() (*Pattern[M], int) {
	seen := make(map[Point]struct{}, len(p.pts))
	out := p.emptyLike(len(p.pts))
	for i, pt := range p.pts {
		if _, dup := seen[pt]; dup {
			continue
		}
		seen[pt] = struct{}{}
		out.appendFrom(p, i)
	}
	return out, len(p.pts) - len(out.pts)
}

// Subset returns a new pattern containing the points for which keep returns
// true. Marks are preserved. The receiver is not modified.
func (p *Pattern[M]) Subset(keep func(i int, pt Point) bool) *Pattern[M] {
	out := p.emptyLike(0)
	for i, pt := range p.pts {
		if keep(i, pt) {
			out.appendFrom(p, i)
		}
	}
	return out
}

// SubsetByMark returns the sub-pattern of points carrying the given mark.
// Subsetting by a value absent from the data yields an empty pattern.
func (p *Pattern[M]) SubsetByMark(m M) (*Pattern[M], error) {
	if !p.marked {
		return nil, &NoMarksError{Op: "subset by mark"}
	}
	return p.Subset(func(i int, _ Point) bool { return p.marks[i] == m }), nil
}

// SubsetWindow returns the sub-pattern of points falling inside w, with w as
// the new window.
func (p *Pattern[M]) SubsetWindow(w Window) *Pattern[M] {
	out := p.Subset(func(_ int, pt Point) bool { return w.Contains(pt.X, pt.Y) })
	out.win = w
	return out
}

// SplitByMark partitions a marked pattern into one sub-pattern per distinct
// mark value. Every point appears in exactly one group.
func (p *Pattern[M]) SplitByMark() (map[M]*Pattern[M], error) {
	if !p.marked {
		return nil, &NoMarksError{Op: "split by mark"}
	}
	groups := make(map[M]*Pattern[M])
	for i := range p.pts {
		g, ok := groups[p.marks[i]]
		if !ok {
			g = p.emptyLike(0)
			groups[p.marks[i]] = g
		}
		g.appendFrom(p, i)
	}
	return groups, nil
}

// SplitByWindows partitions the pattern across named sub-windows. Each point
// is assigned to the first containing window in sorted label order; a point
// contained in no sub-window fails the split, since the result would not be a
// partition of the original point set.
func (p *Pattern[M]) SplitByWindows(windows map[string]Window) (map[string]*Pattern[M], error) {
	labels := make([]string, 0, len(windows))
	for l := range windows {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	groups := make(map[string]*Pattern[M], len(windows))
	for _, l := range labels {
		g := p.emptyLike(0)
		g.win = windows[l]
		groups[l] = g
	}
	for i, pt := range p.pts {
		assigned := false
		for _, l := range labels {
			if windows[l].Contains(pt.X, pt.Y) {
				groups[l].appendFrom(p, i)
				assigned = true
				break
			}
		}
		if !assigned {
			return nil, fmt.Errorf("split by windows: point %d at (%g, %g) falls in no sub-window", i, pt.X, pt.Y)
		}
	}
	return groups, nil
}

// MarkValues returns the distinct mark values in first-occurrence order.
func (p *Pattern[M]) MarkValues() []M {
	if !p.marked {
		return nil
	}
	seen := make(map[M]struct{})
	var out []M
	for _, m := range p.marks {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// emptyLike returns an empty pattern sharing the receiver's window, unit and
// markedness, with capacity hint n.
func (p *Pattern[M]) emptyLike(n int) *Pattern[M] {
	out := &Pattern[M]{
		pts:    make([]Point, 0, n),
		win:    p.win,
		unit:   p.unit,
		marked: p.marked,
	}
	if p.marked {
		out.marks = make([]M, 0, n)
	}
	return out
}

// appendFrom copies point i (and its mark) from src into p.
func (p *Pattern[M]) appendFrom(src *Pattern[M], i int) {
	p.pts = append(p.pts, src.pts[i])
	if p.marked {
		p.marks = append(p.marks, src.marks[i])
	}
}
