package health

import (
	"encoding/json"
	"sort"

	"github.com/tOgg1/loopline/internal/conflict"
	"github.com/tOgg1/loopline/internal/interval"
	"github.com/tOgg1/loopline/internal/models"
)

// OverlapRegion is a span shared by two or more loops.
type OverlapRegion struct {
	Start   float64  `json:"start"`
	End     float64  `json:"end"`
	LoopIDs []string `json:"loop_ids"`
}

// LoopCount returns the number of distinct loops touching the region.
func (o OverlapRegion) LoopCount() int {
	return len(o.LoopIDs)
}

// MarshalJSON writes non-finite bounds as null.
func (o OverlapRegion) MarshalJSON() ([]byte, error) {
	type regionFields OverlapRegion
	return json.Marshal(struct {
		regionFields
		Start *float64 `json:"start"`
		End   *float64 `json:"end"`
	}{
		regionFields: regionFields(o),
		Start:        models.FiniteOrNil(o.Start),
		End:          models.FiniteOrNil(o.End),
	})
}

// DebugAnalysis is a detailed breakdown of a collection.
type DebugAnalysis struct {
	TotalLoops    int     `json:"total_loops"`
	ValidLoops    int     `json:"valid_loops"`
	ActiveLoops   int     `json:"active_loops"`
	TotalDuration float64 `json:"total_duration"`
	// PracticeTime weighs each loop's duration by its repeat count.
	PracticeTime   float64         `json:"practice_time"`
	EarliestStart  *float64        `json:"earliest_start,omitempty"`
	LatestEnd      *float64        `json:"latest_end,omitempty"`
	Gaps           []interval.Span `json:"gaps"`
	OverlapRegions []OverlapRegion `json:"overlap_regions"`
	// CoveragePercent is nil when no timeline length is known.
	CoveragePercent *float64        `json:"coverage_percent,omitempty"`
	Conflicts       conflict.Report `json:"conflicts"`
}

// AnalyzeForDebug computes extents, gaps, merged overlap regions and
// coverage for loops. Structurally invalid loops count towards totals but
// not towards extents or gaps.
func AnalyzeForDebug(loops []models.Loop, timelineLength *float64) DebugAnalysis {
	analysis := DebugAnalysis{
		TotalLoops:     len(loops),
		TotalDuration:  totalDuration(loops),
		PracticeTime:   practiceTime(loops),
		Gaps:           []interval.Span{},
		OverlapRegions: []OverlapRegion{},
		Conflicts:      conflict.Detect(loops, timelineLength),
	}

	valid := make([]models.Loop, 0, len(loops))
	for _, l := range loops {
		if l.IsActive {
			analysis.ActiveLoops++
		}
		if interval.IsStructurallyValid(l.Span()) {
			valid = append(valid, l)
		}
	}
	analysis.ValidLoops = len(valid)

	if len(valid) > 0 {
		sort.SliceStable(valid, func(i, j int) bool {
			return valid[i].StartTime < valid[j].StartTime
		})
		earliest := valid[0].StartTime
		latest := valid[0].EndTime
		for _, l := range valid[1:] {
			if l.StartTime > latest {
				analysis.Gaps = append(analysis.Gaps, interval.Span{Start: latest, End: l.StartTime})
			}
			if l.EndTime > latest {
				latest = l.EndTime
			}
		}
		analysis.EarliestStart = &earliest
		analysis.LatestEnd = &latest
	}

	analysis.OverlapRegions = mergeOverlaps(analysis.Conflicts.Overlapping)

	if length, ok := positive(timelineLength); ok {
		coverage := analysis.TotalDuration / length * 100
		analysis.CoveragePercent = &coverage
	}

	return analysis
}

// mergeOverlaps coalesces pairs sharing the exact same region and collects
// the distinct loop IDs touching it. Regions are sorted by start.
func mergeOverlaps(pairs []conflict.OverlapPair) []OverlapRegion {
	type key struct{ start, end float64 }

	index := make(map[key]int)
	seen := make(map[key]map[string]struct{})
	regions := []OverlapRegion{}

	for _, p := range pairs {
		k := key{p.OverlapStart, p.OverlapEnd}
		i, ok := index[k]
		if !ok {
			i = len(regions)
			index[k] = i
			seen[k] = make(map[string]struct{})
			regions = append(regions, OverlapRegion{Start: k.start, End: k.end})
		}
		for _, id := range []string{p.First.ID, p.Second.ID} {
			if _, dup := seen[k][id]; dup {
				continue
			}
			seen[k][id] = struct{}{}
			regions[i].LoopIDs = append(regions[i].LoopIDs, id)
		}
	}

	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].Start != regions[j].Start {
			return regions[i].Start < regions[j].Start
		}
		return regions[i].End < regions[j].End
	})
	return regions
}
