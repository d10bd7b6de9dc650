// Package health summarizes the state of a loop collection for people:
// pass/fail with issues and suggestions, and a detailed debug analysis.
package health

import (
	"fmt"
	"math"

	"github.com/tOgg1/loopline/internal/config"
	"github.com/tOgg1/loopline/internal/conflict"
	"github.com/tOgg1/loopline/internal/models"
)

// Messages for an empty collection.
const (
	WarningNoLoops    = "No loops in collection"
	SuggestionAddLoop = "Add a loop to get started"
)

// CollectionReport is the outcome of ValidateCollection. Only critical
// issues make a collection invalid.
type CollectionReport struct {
	IsValid        bool     `json:"is_valid"`
	CriticalIssues []string `json:"critical_issues"`
	Warnings       []string `json:"warnings"`
	Suggestions    []string `json:"suggestions"`
}

// Reporter builds health reports using configurable thresholds.
type Reporter struct {
	cfg config.ValidationConfig
}

// NewReporter creates a Reporter. Zero thresholds fall back to defaults.
func NewReporter(cfg config.ValidationConfig) *Reporter {
	defaults := config.DefaultValidationConfig()
	if cfg.OvercommitRatio <= 0 {
		cfg.OvercommitRatio = defaults.OvercommitRatio
	}
	if cfg.LongLoopRatio <= 0 {
		cfg.LongLoopRatio = defaults.LongLoopRatio
	}
	if cfg.MaxActiveLoops <= 0 {
		cfg.MaxActiveLoops = defaults.MaxActiveLoops
	}
	return &Reporter{cfg: cfg}
}

// ValidateCollection reports on loops using the default thresholds.
func ValidateCollection(loops []models.Loop, timelineLength *float64) CollectionReport {
	return NewReporter(config.DefaultValidationConfig()).ValidateCollection(loops, timelineLength)
}

// ValidateCollection classifies the conflicts in loops. Invalid bounds and
// loops past the timeline are critical; overlaps and duplicate names are
// warnings.
func (r *Reporter) ValidateCollection(loops []models.Loop, timelineLength *float64) CollectionReport {
	report := CollectionReport{
		CriticalIssues: []string{},
		Warnings:       []string{},
		Suggestions:    []string{},
	}

	if len(loops) == 0 {
		report.IsValid = true
		report.Warnings = append(report.Warnings, WarningNoLoops)
		report.Suggestions = append(report.Suggestions, SuggestionAddLoop)
		return report
	}

	found := conflict.Detect(loops, timelineLength)

	if n := len(found.InvalidTimes); n > 0 {
		report.CriticalIssues = append(report.CriticalIssues,
			fmt.Sprintf("%d %s invalid time ranges", n, plural(n, "loop has", "loops have")))
	}
	if n := len(found.ExceedingDuration); n > 0 {
		report.CriticalIssues = append(report.CriticalIssues,
			fmt.Sprintf("%d %s beyond the media duration", n, plural(n, "loop extends", "loops extend")))
	}

	if n := len(found.Overlapping); n > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d overlapping loop %s detected", n, plural(n, "pair", "pairs")))
		report.Suggestions = append(report.Suggestions,
			"Run automatic resolution to reposition overlapping loops")
	}
	if n := len(found.DuplicateNames); n > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d %s a duplicate name", n, plural(n, "loop has", "loops share")))
		report.Suggestions = append(report.Suggestions,
			"Rename loops so each name is unique")
	}

	if length, ok := positive(timelineLength); ok {
		if total := totalDuration(loops); total > length*r.cfg.OvercommitRatio {
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("Total loop time exceeds %.0f%% of the media; consider removing unused loops", r.cfg.OvercommitRatio*100))
		}
	}

	active := 0
	for _, l := range loops {
		if l.IsActive {
			active++
		}
	}
	switch {
	case active == 0:
		report.Suggestions = append(report.Suggestions, "No loops are active; activate a loop to start practicing")
	case active > r.cfg.MaxActiveLoops:
		report.Suggestions = append(report.Suggestions,
			fmt.Sprintf("%d loops are active; consider deactivating some to stay focused", active))
	}

	report.IsValid = len(report.CriticalIssues) == 0
	return report
}

// totalDuration sums loop durations. Loops with an infinite bound are
// left out so the total stays finite.
func totalDuration(loops []models.Loop) float64 {
	var total float64
	for _, l := range loops {
		if d := l.Duration(); !math.IsInf(d, 0) {
			total += d
		}
	}
	return total
}

func practiceTime(loops []models.Loop) float64 {
	var total float64
	for _, l := range loops {
		if d := l.TotalDuration(); !math.IsInf(d, 0) {
			total += d
		}
	}
	return total
}

func positive(length *float64) (float64, bool) {
	if length == nil || !(*length > 0) {
		return 0, false
	}
	return *length, true
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
