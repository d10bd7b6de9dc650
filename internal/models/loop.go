// Package models defines the core domain types for loopline.
package models

import (
	"errors"
	"strings"

	"github.com/tOgg1/loopline/internal/interval"
)

// Loop is a named time interval on a media item's timeline.
//
// Loops are treated as values. Every transformation produces a new Loop
// carrying the same ID.
type Loop struct {
	// ID is assigned at creation and never changes.
	ID string `json:"id" yaml:"id"`

	// Name is the display name. Duplicate detection uses NameKey.
	Name string `json:"name" yaml:"name"`

	// StartTime is the loop start in seconds.
	StartTime float64 `json:"start_time" yaml:"start_time"`

	// EndTime is the loop end in seconds.
	EndTime float64 `json:"end_time" yaml:"end_time"`

	// Color is an optional display attribute.
	Color string `json:"color,omitempty" yaml:"color,omitempty"`

	// PlaybackSpeed is a positive multiplier.
	PlaybackSpeed float64 `json:"playback_speed,omitempty" yaml:"playback_speed,omitempty"`

	// RepeatCount multiplies the duration for derived totals only.
	RepeatCount int `json:"repeat_count,omitempty" yaml:"repeat_count,omitempty"`

	// PlayCount is owned by playback and never changed here.
	PlayCount int `json:"play_count" yaml:"play_count"`

	// IsActive marks the loop as enabled for playback.
	IsActive bool `json:"is_active" yaml:"is_active"`
}

// Loop validation errors.
var (
	ErrLoopIDRequired   = errors.New("loop id is required")
	ErrLoopNameRequired = errors.New("loop name is required")
)

// Span returns the loop bounds as an interval span.
func (l Loop) Span() interval.Span {
	return interval.Span{Start: l.StartTime, End: l.EndTime}
}

// Duration returns max(0, end-start).
func (l Loop) Duration() float64 {
	return interval.Duration(l.Span())
}

// TotalDuration returns the duration multiplied by the repeat count.
func (l Loop) TotalDuration() float64 {
	repeats := l.RepeatCount
	if repeats <= 0 {
		repeats = 1
	}
	return l.Duration() * float64(repeats)
}

// NameKey returns the normalized name used to detect duplicates.
func (l Loop) NameKey() string {
	return NormalizeName(l.Name)
}

// WithBounds returns a copy of the loop with new bounds.
func (l Loop) WithBounds(start, end float64) Loop {
	l.StartTime = start
	l.EndTime = end
	return l
}

// WithName returns a copy of the loop with a new name.
func (l Loop) WithName(name string) Loop {
	l.Name = name
	return l
}

// Validate checks the fields a stored loop must carry. Interval checks live
// in the loops and conflict packages.
func (l Loop) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(l.ID) == "" {
		validation.Add("id", ErrLoopIDRequired)
	}
	if strings.TrimSpace(l.Name) == "" {
		validation.AddCode("name", ErrorCodeInvalidName, ErrLoopNameRequired)
	}
	return validation.Err()
}

// NormalizeName trims and lowercases a loop name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names returns the display names of loops in order.
func Names(loops []Loop) []string {
	out := make([]string, 0, len(loops))
	for _, l := range loops {
		out = append(out, l.Name)
	}
	return out
}

// Clone returns a shallow copy of the slice.
func Clone(loops []Loop) []Loop {
	if loops == nil {
		return nil
	}
	out := make([]Loop, len(loops))
	copy(out, loops)
	return out
}
