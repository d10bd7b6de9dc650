package loops

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tOgg1/loopline/internal/config"
)

// FieldValidator answers yes/no questions about individual loop fields.
type FieldValidator interface {
	IsValidName(name string) bool
	IsValidSpeed(speed float64) bool
	IsValidRange(start, end float64, timelineLength *float64) bool
}

// LimitValidator is the FieldValidator backed by configured limits.
type LimitValidator struct {
	limits config.FieldLimits
}

// NewLimitValidator creates a LimitValidator.
func NewLimitValidator(limits config.FieldLimits) *LimitValidator {
	return &LimitValidator{limits: limits}
}

// DefaultFieldValidator returns a validator using the stock limits.
func DefaultFieldValidator() *LimitValidator {
	return NewLimitValidator(config.DefaultFieldLimits())
}

// IsValidName requires a non-blank name no longer than the configured limit.
func (v *LimitValidator) IsValidName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}
	return utf8.RuneCountInString(trimmed) <= v.limits.NameMaxLength
}

// IsValidSpeed requires a finite speed within [MinSpeed, MaxSpeed].
func (v *LimitValidator) IsValidSpeed(speed float64) bool {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return false
	}
	return speed >= v.limits.MinSpeed && speed <= v.limits.MaxSpeed
}

// IsValidRange requires finite bounds, a non-negative start before the end,
// and an end inside the timeline when its length is known.
func (v *LimitValidator) IsValidRange(start, end float64, timelineLength *float64) bool {
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return false
	}
	if start < 0 || end <= start {
		return false
	}
	if timelineLength != nil && end > *timelineLength {
		return false
	}
	return true
}
