// Package conflict finds and repairs conflicts in a loop collection.
//
// A conflict is any of: structurally invalid bounds, a loop reaching past
// the end of the timeline, two loops overlapping, or two loops whose names
// only differ by case or surrounding whitespace.
//
// Every function here is pure. Inputs are never modified, results are
// freshly allocated, and nothing is cached between calls, so callers may
// use the package from multiple goroutines on independent collections.
package conflict

// timeline returns the usable timeline length. Missing and non-positive
// lengths both mean "unbounded".
func timeline(length *float64) (float64, bool) {
	if length == nil || !(*length > 0) {
		return 0, false
	}
	return *length, true
}
