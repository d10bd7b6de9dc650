package conflict

import (
	"math"
	"sort"

	"github.com/tOgg1/loopline/internal/interval"
	"github.com/tOgg1/loopline/internal/models"
)

// Suggest proposes where a loop of desiredDuration could go without
// overlapping existing. Candidates are tried in a fixed order and the first
// one that works is returned:
//
//  1. the desired slot itself
//  2. the start of the earliest gap between loops wide enough to hold it
//  3. directly after the last loop, if that fits the timeline
//  4. directly before the first loop, if that does not go below zero
//
// Suggest returns nil when none of these work.
func Suggest(desiredStart, desiredDuration float64, existing []models.Loop, timelineLength *float64) *interval.Span {
	limit, bounded := timeline(timelineLength)
	usable := interval.Span{Start: 0, End: math.Inf(1)}
	if bounded {
		usable.End = limit
	}
	fits := func(s interval.Span) bool {
		return interval.Contains(usable, s)
	}

	desired := interval.Span{Start: desiredStart, End: desiredStart + desiredDuration}
	if fits(desired) && !overlapsAny(desired, existing) {
		return &desired
	}

	if len(existing) == 0 {
		return nil
	}

	sorted := sortedByStart(existing)

	for i := 0; i < len(sorted)-1; i++ {
		gapStart := sorted[i].EndTime
		gapEnd := sorted[i+1].StartTime
		if gapEnd-gapStart >= desiredDuration {
			return &interval.Span{Start: gapStart, End: gapStart + desiredDuration}
		}
	}

	after := interval.Span{Start: sorted[len(sorted)-1].EndTime}
	after.End = after.Start + desiredDuration
	if !bounded || after.End <= limit {
		return &after
	}

	before := interval.Span{Start: sorted[0].StartTime - desiredDuration, End: sorted[0].StartTime}
	if before.Start >= 0 {
		return &before
	}

	return nil
}

func overlapsAny(s interval.Span, loops []models.Loop) bool {
	for _, l := range loops {
		if interval.Overlaps(s, l.Span()) {
			return true
		}
	}
	return false
}

// sortedByStart returns a copy of loops stably sorted by start time.
func sortedByStart(loops []models.Loop) []models.Loop {
	sorted := models.Clone(loops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})
	return sorted
}
