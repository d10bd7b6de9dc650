// Package interval provides the predicates used to reason about half-open
// time spans on a linear timeline.
package interval

import "math"

// Span is a time range in seconds. Spans are half-open: a span that ends
// exactly where another starts does not overlap it.
type Span struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Overlaps reports whether a and b share any point.
func Overlaps(a, b Span) bool {
	return a.Start < b.End && a.End > b.Start
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner Span) bool {
	return inner.Start >= outer.Start && inner.End <= outer.End
}

// Duration returns the length of s, never negative.
func Duration(s Span) float64 {
	d := s.End - s.Start
	if !(d > 0) {
		return 0
	}
	return d
}

// IsStructurallyValid reports whether both bounds are finite, the start is
// non-negative and the span has a strictly positive length.
func IsStructurallyValid(s Span) bool {
	if !isFinite(s.Start) || !isFinite(s.End) {
		return false
	}
	return s.Start >= 0 && s.End > s.Start
}

// Intersection returns the shared portion of a and b. The second result is
// false when the spans do not overlap.
func Intersection(a, b Span) (Span, bool) {
	if !Overlaps(a, b) {
		return Span{}, false
	}
	return Span{Start: math.Max(a.Start, b.Start), End: math.Min(a.End, b.End)}, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
