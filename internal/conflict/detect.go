package conflict

import (
	"encoding/json"

	"github.com/tOgg1/loopline/internal/interval"
	"github.com/tOgg1/loopline/internal/models"
)

// OverlapPair records two loops that overlap and the region they share.
type OverlapPair struct {
	First           models.Loop `json:"first"`
	Second          models.Loop `json:"second"`
	OverlapStart    float64     `json:"overlap_start"`
	OverlapEnd      float64     `json:"overlap_end"`
	OverlapDuration float64     `json:"overlap_duration"`
}

// MarshalJSON writes non-finite overlap metrics as null. They occur when
// both loops extend to infinity.
func (p OverlapPair) MarshalJSON() ([]byte, error) {
	type pairFields OverlapPair
	return json.Marshal(struct {
		pairFields
		OverlapStart    *float64 `json:"overlap_start"`
		OverlapEnd      *float64 `json:"overlap_end"`
		OverlapDuration *float64 `json:"overlap_duration"`
	}{
		pairFields:      pairFields(p),
		OverlapStart:    models.FiniteOrNil(p.OverlapStart),
		OverlapEnd:      models.FiniteOrNil(p.OverlapEnd),
		OverlapDuration: models.FiniteOrNil(p.OverlapDuration),
	})
}

// Report lists every conflict found in a collection.
type Report struct {
	Overlapping       []OverlapPair `json:"overlapping"`
	ExceedingDuration []models.Loop `json:"exceeding_duration"`
	InvalidTimes      []models.Loop `json:"invalid_times"`
	DuplicateNames    []models.Loop `json:"duplicate_names"`
}

// HasConflicts reports whether any conflict was found.
func (r Report) HasConflicts() bool {
	return r.Count() > 0
}

// Count returns the total number of entries across all categories.
func (r Report) Count() int {
	return len(r.Overlapping) + len(r.ExceedingDuration) + len(r.InvalidTimes) + len(r.DuplicateNames)
}

// Detect classifies every conflict in loops. Each overlapping pair is
// reported once, first element earlier in the input. Duplicate-name groups
// appear in order of their first member, and every member of a group is
// listed. Out-of-bounds loops are only checked for a positive timeline
// length.
func Detect(loops []models.Loop, timelineLength *float64) Report {
	report := Report{
		Overlapping:       []OverlapPair{},
		ExceedingDuration: []models.Loop{},
		InvalidTimes:      []models.Loop{},
		DuplicateNames:    []models.Loop{},
	}

	for _, l := range loops {
		if !interval.IsStructurallyValid(l.Span()) {
			report.InvalidTimes = append(report.InvalidTimes, l)
		}
	}

	if limit, ok := timeline(timelineLength); ok {
		for _, l := range loops {
			if l.EndTime > limit || l.StartTime >= limit {
				report.ExceedingDuration = append(report.ExceedingDuration, l)
			}
		}
	}

	for i := 0; i < len(loops); i++ {
		for j := i + 1; j < len(loops); j++ {
			shared, ok := interval.Intersection(loops[i].Span(), loops[j].Span())
			if !ok {
				continue
			}
			report.Overlapping = append(report.Overlapping, OverlapPair{
				First:           loops[i],
				Second:          loops[j],
				OverlapStart:    shared.Start,
				OverlapEnd:      shared.End,
				OverlapDuration: shared.End - shared.Start,
			})
		}
	}

	for _, group := range groupByName(loops) {
		if len(group) > 1 {
			report.DuplicateNames = append(report.DuplicateNames, group...)
		}
	}

	return report
}

// groupByName buckets loops by normalized name, keeping input order both
// between and within groups.
func groupByName(loops []models.Loop) [][]models.Loop {
	index := make(map[string]int)
	var groups [][]models.Loop
	for _, l := range loops {
		key := l.NameKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], l)
	}
	return groups
}
