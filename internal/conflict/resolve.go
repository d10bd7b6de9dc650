package conflict

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/tOgg1/loopline/internal/interval"
	"github.com/tOgg1/loopline/internal/logging"
	"github.com/tOgg1/loopline/internal/models"
)

// MaxRepositionAttempts bounds how many times one loop is moved while
// adjusting overlaps before it is dropped.
const MaxRepositionAttempts = 10

// Removal reasons recorded in the audit trail.
const (
	ReasonInsufficientSpace = "could not resolve overlap - insufficient space"
	ReasonMaxAttempts       = "maximum attempts exceeded"
)

// ResolveOptions selects which repair phases run.
type ResolveOptions struct {
	RemoveInvalid       bool `json:"remove_invalid"`
	TrimToVideoDuration bool `json:"trim_to_video_duration"`
	RenameDuplicates    bool `json:"rename_duplicates"`
	AdjustOverlaps      bool `json:"adjust_overlaps"`
}

// DefaultResolveOptions enables every phase.
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{
		RemoveInvalid:       true,
		TrimToVideoDuration: true,
		RenameDuplicates:    true,
		AdjustOverlaps:      true,
	}
}

// Resolution is the result of Resolve.
type Resolution struct {
	ResolvedLoops []models.Loop         `json:"resolved_loops"`
	RemovedLoops  []models.Loop         `json:"removed_loops"`
	Modifications []models.Modification `json:"modifications"`
}

// Counts returns the number of modifications per type.
func (r Resolution) Counts() map[models.ModificationType]int {
	counts := make(map[models.ModificationType]int)
	for _, m := range r.Modifications {
		counts[m.Type]++
	}
	return counts
}

// Changed reports whether the resolver modified anything.
func (r Resolution) Changed() bool {
	return len(r.Modifications) > 0
}

// resolver carries the state threaded through the phases of one Resolve call.
type resolver struct {
	limit   float64
	bounded bool
	log     zerolog.Logger
	out     Resolution
}

// Resolve rewrites loops into a conflict-free collection. Enabled phases run
// in order, each consuming the previous phase's output:
//
//  1. remove loops with invalid bounds
//  2. trim loops that run past the timeline, removing those starting after it
//  3. rename duplicate names to "<name> (n)"
//  4. move overlapping loops after, or else before, the loop they collide
//     with, dropping them when neither fits
//
// The input slice is never modified. When phase 4 runs, ResolvedLoops is in
// placement order: loops are placed by their start time on entering the
// phase, so a loop moved before its blocker is listed after it.
func Resolve(loops []models.Loop, timelineLength *float64, opts ResolveOptions) Resolution {
	r := &resolver{log: logging.Component("conflict")}
	r.limit, r.bounded = timeline(timelineLength)
	r.out = Resolution{
		RemovedLoops:  []models.Loop{},
		Modifications: []models.Modification{},
	}

	current := models.Clone(loops)
	if current == nil {
		current = []models.Loop{}
	}
	if opts.RemoveInvalid {
		current = r.removeInvalid(current)
	}
	if opts.TrimToVideoDuration && r.bounded {
		current = r.trimToTimeline(current)
	}
	if opts.RenameDuplicates {
		current = r.renameDuplicates(current)
	}
	if opts.AdjustOverlaps {
		current = r.adjustOverlaps(current)
	}

	r.out.ResolvedLoops = current
	r.log.Debug().
		Int("input", len(loops)).
		Int("resolved", len(r.out.ResolvedLoops)).
		Int("removed", len(r.out.RemovedLoops)).
		Int("modifications", len(r.out.Modifications)).
		Msg("resolution complete")
	return r.out
}

func (r *resolver) removeInvalid(loops []models.Loop) []models.Loop {
	kept := make([]models.Loop, 0, len(loops))
	for _, l := range loops {
		if interval.IsStructurallyValid(l.Span()) {
			kept = append(kept, l)
			continue
		}
		r.remove(l, fmt.Sprintf("invalid time range (start: %s, end: %s)", formatSeconds(l.StartTime), formatSeconds(l.EndTime)))
	}
	return kept
}

func (r *resolver) trimToTimeline(loops []models.Loop) []models.Loop {
	kept := make([]models.Loop, 0, len(loops))
	for _, l := range loops {
		if !(l.EndTime > r.limit) {
			kept = append(kept, l)
			continue
		}
		if l.StartTime >= r.limit {
			r.remove(l, fmt.Sprintf("starts at or after the end of the media (%ss)", formatSeconds(r.limit)))
			continue
		}
		trimmed := l.WithBounds(l.StartTime, r.limit)
		r.record(models.ModificationTrimmed, l, &trimmed,
			fmt.Sprintf("end trimmed from %ss to %ss", formatSeconds(l.EndTime), formatSeconds(r.limit)))
		kept = append(kept, trimmed)
	}
	return kept
}

func (r *resolver) renameDuplicates(loops []models.Loop) []models.Loop {
	seen := make(map[string]int)
	out := make([]models.Loop, 0, len(loops))
	for _, l := range loops {
		key := l.NameKey()
		seen[key]++
		if seen[key] == 1 {
			out = append(out, l)
			continue
		}
		renamed := l.WithName(fmt.Sprintf("%s (%d)", l.Name, seen[key]))
		r.record(models.ModificationRenamed, l, &renamed,
			fmt.Sprintf("duplicate name %q renamed to %q", l.Name, renamed.Name))
		out = append(out, renamed)
	}
	return out
}

func (r *resolver) adjustOverlaps(loops []models.Loop) []models.Loop {
	accepted := make([]models.Loop, 0, len(loops))
	for _, original := range sortedByStart(loops) {
		placed, ok := r.place(original, accepted)
		if ok {
			accepted = append(accepted, placed)
		}
	}
	return accepted
}

// place repositions loop until it clears every accepted loop. It returns
// false once the loop has been removed.
func (r *resolver) place(loop models.Loop, accepted []models.Loop) (models.Loop, bool) {
	current := loop
	duration := loop.Duration()

	for attempt := 0; ; attempt++ {
		blocker, found := firstOverlap(current, accepted)
		if !found {
			return current, true
		}
		if attempt >= MaxRepositionAttempts {
			r.remove(loop, ReasonMaxAttempts)
			return models.Loop{}, false
		}

		var next models.Loop
		switch {
		case !r.bounded || blocker.EndTime+duration <= r.limit:
			next = current.WithBounds(blocker.EndTime, blocker.EndTime+duration)
		case blocker.StartTime-duration >= 0:
			next = current.WithBounds(blocker.StartTime-duration, blocker.StartTime)
		default:
			r.remove(loop, ReasonInsufficientSpace)
			return models.Loop{}, false
		}

		r.record(models.ModificationAdjusted, current, &next,
			fmt.Sprintf("moved to %s-%s to clear %q", formatSeconds(next.StartTime), formatSeconds(next.EndTime), blocker.Name))
		current = next
	}
}

func firstOverlap(l models.Loop, accepted []models.Loop) (models.Loop, bool) {
	for _, a := range accepted {
		if interval.Overlaps(l.Span(), a.Span()) {
			return a, true
		}
	}
	return models.Loop{}, false
}

func (r *resolver) remove(l models.Loop, reason string) {
	r.out.RemovedLoops = append(r.out.RemovedLoops, l)
	r.record(models.ModificationRemoved, l, nil, reason)
}

func (r *resolver) record(kind models.ModificationType, before models.Loop, after *models.Loop, reason string) {
	r.out.Modifications = append(r.out.Modifications, models.Modification{
		Type:   kind,
		LoopID: before.ID,
		Reason: reason,
		Before: before,
		After:  after,
	})
	r.log.Debug().
		Str("loop_id", before.ID).
		Str("type", string(kind)).
		Msg(reason)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
