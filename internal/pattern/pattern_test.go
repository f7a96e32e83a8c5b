package pattern

import (
	"errors"
	"math"
	"testing"
)

func TestNewRejectsMismatchedCoordinates(t *testing.T) {
	win := NewRect(0, 10, 0, 10)
	_, err := New[string]([]float64{1, 2, 3}, []float64{1, 2}, win)
	var cm *CoordMismatchError
	if !errors.As(err, &cm) {
		t.Fatalf("expected CoordMismatchError, got %v", err)
	}
	if cm.XLen != 3 || cm.YLen != 2 {
		t.Fatalf("unexpected lengths in error: %+v", cm)
	}
}

func TestNewRejectsPointOutsideWindow(t *testing.T) {
	// Centimetre inputs scaled by /100 into a [0,15]x[0,10] metre window:
	// a point at 15.01 m must reject construction.
	win := NewRect(0, 15, 0, 10)
	_, err := New[string]([]float64{3, 15.01}, []float64{2, 5}, win)
	var ow *OutsideWindowError
	if !errors.As(err, &ow) {
		t.Fatalf("expected OutsideWindowError, got %v", err)
	}
	if ow.Index != 1 {
		t.Fatalf("expected offending index 1, got %d", ow.Index)
	}
}

func TestAttachMarksLengthMismatch(t *testing.T) {
	win := NewRect(0, 10, 0, 10)
	p, err := New[string]([]float64{1, 2, 3}, []float64{1, 2, 3}, win)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = p.AttachMarks([]string{"a", "b"})
	var ml *MarkLengthError
	if !errors.As(err, &ml) {
		t.Fatalf("expected MarkLengthError, got %v", err)
	}
	if p.Marked() {
		t.Fatal("failed attach must leave pattern unmarked")
	}
	if err := p.AttachMarks([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("AttachMarks: %v", err)
	}
	if !p.Marked() || p.Mark(2) != "c" {
		t.Fatalf("marks not attached: %v", p.Marks())
	}
}

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	win := NewRect(0, 10, 0, 10)
	x := []float64{1, 2, 1, 3, 2}
	y := []float64{1, 2, 1, 3, 2}
	marks := []string{"a", "b", "c", "d", "e"}
	p, err := NewMarked(x, y, marks, win)
	if err != nil {
		t.Fatalf("NewMarked: %v", err)
	}
	dd, dropped := p.Dedup()
	if dd.N() != 3 || dropped != 2 {
		t.Fatalf("expected 3 points with 2 dropped, got %d/%d", dd.N(), dropped)
	}
	// First occurrences keep their marks.
	want := []string{"a", "b", "d"}
	for i, m := range dd.Marks() {
		if m != want[i] {
			t.Fatalf("mark %d: got %q want %q", i, m, want[i])
		}
	}
	if p.N() != 5 {
		t.Fatal("Dedup must not mutate the receiver")
	}
}

func TestSubsetByMark(t *testing.T) {
	win := NewRect(0, 10, 0, 10)
	p, err := NewMarked(
		[]float64{1, 2, 3, 4},
		[]float64{1, 2, 3, 4},
		[]string{"oak", "fir", "oak", "fir"},
		win,
	)
	if err != nil {
		t.Fatalf("NewMarked: %v", err)
	}

	oaks, err := p.SubsetByMark("oak")
	if err != nil {
		t.Fatalf("SubsetByMark: %v", err)
	}
	if oaks.N() != 2 {
		t.Fatalf("expected 2 oaks, got %d", oaks.N())
	}
	for _, m := range oaks.Marks() {
		if m != "oak" {
			t.Fatalf("subset carries foreign mark %q", m)
		}
	}

	none, err := p.SubsetByMark("elm")
	if err != nil {
		t.Fatalf("SubsetByMark absent: %v", err)
	}
	if none.N() != 0 {
		t.Fatalf("subset by absent mark must be empty, got %d points", none.N())
	}
}

func TestSubsetByMarkRequiresMarks(t *testing.T) {
	win := NewRect(0, 10, 0, 10)
	p, _ := New[string]([]float64{1}, []float64{1}, win)
	_, err := p.SubsetByMark("oak")
	var nm *NoMarksError
	if !errors.As(err, &nm) {
		t.Fatalf("expected NoMarksError, got %v", err)
	}
}

func TestSplitByMarkIsAPartition(t *testing.T) {
	win := NewRect(0, 10, 0, 10)
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{1, 2, 3, 4, 5, 6}
	marks := []string{"a", "b", "a", "c", "b", "a"}
	p, err := NewMarked(x, y, marks, win)
	if err != nil {
		t.Fatalf("NewMarked: %v", err)
	}
	groups, err := p.SplitByMark()
	if err != nil {
		t.Fatalf("SplitByMark: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	seen := map[Point]int{}
	total := 0
	for label, g := range groups {
		total += g.N()
		for i, pt := range g.Points() {
			seen[pt]++
			if g.Mark(i) != label {
				t.Fatalf("group %q contains mark %q", label, g.Mark(i))
			}
		}
	}
	if total != p.N() {
		t.Fatalf("partition omits points: %d of %d", total, p.N())
	}
	for pt, n := range seen {
		if n != 1 {
			t.Fatalf("point %v appears in %d groups", pt, n)
		}
	}
}

func TestSplitByWindows(t *testing.T) {
	win := NewRect(0, 10, 0, 10)
	p, err := New[string](
		[]float64{1, 6, 2, 9},
		[]float64{1, 6, 3, 9},
		win,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	groups, err := p.SplitByWindows(map[string]Window{
		"west": NewRect(0, 5, 0, 10),
		"east": NewRect(5, 10, 0, 10),
	})
	if err != nil {
		t.Fatalf("SplitByWindows: %v", err)
	}
	if groups["west"].N() != 2 || groups["east"].N() != 2 {
		t.Fatalf("unexpected group sizes: west=%d east=%d", groups["west"].N(), groups["east"].N())
	}

	// A point covered by no sub-window breaks the partition property.
	_, err = p.SplitByWindows(map[string]Window{"west": NewRect(0, 5, 0, 10)})
	if err == nil {
		t.Fatal("expected error for uncovered point")
	}
}

func TestSubsetWindowAdoptsWindow(t *testing.T) {
	win := NewRect(0, 10, 0, 10)
	p, _ := New[string]([]float64{1, 8}, []float64{1, 8}, win)
	sub := p.SubsetWindow(NewRect(0, 5, 0, 5))
	if sub.N() != 1 {
		t.Fatalf("expected 1 point, got %d", sub.N())
	}
	if b := sub.Window().Bounds(); b.XMax != 5 {
		t.Fatalf("subset did not adopt sub-window: %+v", b)
	}
}

func TestIntensity(t *testing.T) {
	win := NewRect(0, 15, 0, 10)
	p, _ := New[string](
		[]float64{1, 2, 3},
		[]float64{1, 2, 3},
		win,
	)
	want := 3.0 / 150.0
	if got := p.Intensity(); math.Abs(got-want) > 1e-12 {
		t.Fatalf("intensity: got %g want %g", got, want)
	}
}

func TestPolygonWindow(t *testing.T) {
	// Unit right triangle (0,0)-(4,0)-(0,4).
	tri := NewPolygon([]Point{{0, 0}, {4, 0}, {0, 4}})
	if got, want := tri.Area(), 8.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("area: got %g want %g", got, want)
	}
	cases := []struct {
		x, y float64
		in   bool
	}{
		{1, 1, true},
		{3, 3, false},
		{0, 0, true},  // vertex counts as inside
		{2, 0, true},  // edge counts as inside
		{-1, 1, false},
	}
	for _, c := range cases {
		if got := tri.Contains(c.x, c.y); got != c.in {
			t.Errorf("Contains(%g, %g) = %v, want %v", c.x, c.y, got, c.in)
		}
	}
	if d := tri.BorderDistance(1, 1); math.Abs(d-1) > 1e-12 {
		t.Fatalf("border distance at (1,1): got %g want 1", d)
	}
	if b := tri.Bounds(); b.XMax != 4 || b.YMax != 4 {
		t.Fatalf("bounds: %+v", b)
	}
}

func TestMarkValuesOrder(t *testing.T) {
	win := NewRect(0, 10, 0, 10)
	p, _ := NewMarked(
		[]float64{1, 2, 3, 4},
		[]float64{1, 2, 3, 4},
		[]string{"b", "a", "b", "c"},
		win,
	)
	got := p.MarkValues()
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("mark values: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mark values order: got %v want %v", got, want)
		}
	}
}
