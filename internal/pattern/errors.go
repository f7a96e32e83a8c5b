package pattern

import "fmt"

// CoordMismatchError indicates x and y coordinate slices of unequal length.
type CoordMismatchError struct {
	XLen, YLen int
}

func (e *CoordMismatchError) Error() string {
	return fmt.Sprintf("coordinate length mismatch: %d x values vs %d y values", e.XLen, e.YLen)
}

// OutsideWindowError indicates a point that falls outside the declared window.
type OutsideWindowError struct {
	Index int
	X, Y  float64
}

func (e *OutsideWindowError) Error() string {
	return fmt.Sprintf("point %d at (%g, %g) lies outside the window", e.Index, e.X, e.Y)
}

// MarkLengthError indicates a mark vector whose length does not match the
// point count of the pattern it is being attached to.
type MarkLengthError struct {
	Marks, Points int
}

func (e *MarkLengthError) Error() string {
	return fmt.Sprintf("mark length mismatch: %d marks for %d points", e.Marks, e.Points)
}

// NoMarksError indicates a mark-based operation on an unmarked pattern.
type NoMarksError struct {
	Op string
}

func (e *NoMarksError) Error() string {
	return fmt.Sprintf("%s: pattern has no marks", e.Op)
}
