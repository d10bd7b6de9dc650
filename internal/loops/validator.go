package loops

import (
	"fmt"
	"math"
	"strings"

	"github.com/tOgg1/loopline/internal/interval"
	"github.com/tOgg1/loopline/internal/models"
)

// DefaultLongLoopRatio is the share of the timeline above which a single
// loop draws a warning.
const DefaultLongLoopRatio = 0.8

// Result is the outcome of validating one loop.
type Result struct {
	IsValid  bool               `json:"is_valid"`
	Errors   []models.ErrorCode `json:"errors"`
	Warnings []string           `json:"warnings"`
}

// Err converts the result into a *models.ValidationErrors, or nil when valid.
func (r Result) Err() error {
	validation := &models.ValidationErrors{}
	for _, code := range r.Errors {
		validation.AddCode(fieldForCode(code), code, fmt.Errorf("%s", code.Message()))
	}
	return validation.Err()
}

func fieldForCode(code models.ErrorCode) string {
	switch code {
	case models.ErrorCodeInvalidName:
		return "name"
	case models.ErrorCodeInvalidPlaybackSpeed:
		return "playback_speed"
	case models.ErrorCodeNegativeTime:
		return "start_time"
	default:
		return "end_time"
	}
}

// Validator checks a single loop against its timeline and neighbours.
type Validator struct {
	fields        FieldValidator
	longLoopRatio float64
}

// NewValidator creates a Validator. A nil fields uses DefaultFieldValidator.
func NewValidator(fields FieldValidator) *Validator {
	if fields == nil {
		fields = DefaultFieldValidator()
	}
	return &Validator{fields: fields, longLoopRatio: DefaultLongLoopRatio}
}

// WithLongLoopRatio returns a copy of v using ratio for the long-loop warning.
// Non-positive ratios are ignored.
func (v *Validator) WithLongLoopRatio(ratio float64) *Validator {
	out := *v
	if ratio > 0 {
		out.longLoopRatio = ratio
	}
	return &out
}

// Validate runs every check against loop; none short-circuits. existing may
// contain loop itself, which is skipped by ID.
func (v *Validator) Validate(loop models.Loop, timelineLength *float64, existing []models.Loop) Result {
	var errs []models.ErrorCode
	var warnings []string

	start, end := loop.StartTime, loop.EndTime

	if !v.fields.IsValidName(loop.Name) {
		errs = append(errs, models.ErrorCodeInvalidName)
	}

	if !(start >= 0 && end > start) || !v.fields.IsValidRange(start, end, timelineLength) {
		errs = append(errs, models.ErrorCodeInvalidTimeRange)
	}

	if start < 0 || end < 0 {
		errs = append(errs, models.ErrorCodeNegativeTime)
	}

	if !(end-start > 0) {
		errs = append(errs, models.ErrorCodeZeroDuration)
	}

	// Zero means unset; the factory always fills a speed.
	if loop.PlaybackSpeed != 0 && !v.fields.IsValidSpeed(loop.PlaybackSpeed) {
		errs = append(errs, models.ErrorCodeInvalidPlaybackSpeed)
	}

	if timelineLength != nil && end > *timelineLength {
		errs = append(errs, models.ErrorCodeExceedsVideoDuration)
	}

	var overlapped []string
	for _, other := range existing {
		if other.ID == loop.ID {
			continue
		}
		if interval.Overlaps(loop.Span(), other.Span()) {
			overlapped = append(overlapped, other.Name)
		}
	}
	if len(overlapped) > 0 {
		errs = append(errs, models.ErrorCodeOverlappingLoops)
		warnings = append(warnings, "Overlaps with: "+strings.Join(overlapped, ", "))
	}

	if timelineLength != nil && *timelineLength > 0 && loop.Duration() > *timelineLength*v.longLoopRatio {
		warnings = append(warnings, fmt.Sprintf("Loop covers more than %.0f%% of the media", math.Round(v.longLoopRatio*100)))
	}

	return Result{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}

// Validate checks loop with the default field validator.
func Validate(loop models.Loop, timelineLength *float64, existing []models.Loop) Result {
	return NewValidator(nil).Validate(loop, timelineLength, existing)
}
