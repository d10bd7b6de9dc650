// Package loops builds and validates individual loops.
package loops

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/loopline/internal/models"
)

// Defaults applied by Create before options.
const (
	DefaultColor         = "#3b82f6"
	DefaultPlaybackSpeed = 1.0
	DefaultRepeatCount   = 1
)

// Option overrides a default on a newly created loop.
type Option func(*models.Loop)

// WithID replaces the generated identifier.
func WithID(id string) Option {
	return func(l *models.Loop) { l.ID = id }
}

// WithColor sets the display color.
func WithColor(color string) Option {
	return func(l *models.Loop) { l.Color = color }
}

// WithPlaybackSpeed sets the playback speed multiplier.
func WithPlaybackSpeed(speed float64) Option {
	return func(l *models.Loop) { l.PlaybackSpeed = speed }
}

// WithRepeatCount sets the repeat count.
func WithRepeatCount(n int) Option {
	return func(l *models.Loop) { l.RepeatCount = n }
}

// WithPlayCount sets the play counter.
func WithPlayCount(n int) Option {
	return func(l *models.Loop) { l.PlayCount = n }
}

// WithActive sets the active flag.
func WithActive(active bool) Option {
	return func(l *models.Loop) { l.IsActive = active }
}

// Create builds a loop with a fresh ID and default fields, then applies
// opts in order. The result is not validated.
func Create(name string, start, end float64, opts ...Option) models.Loop {
	loop := models.Loop{
		ID:            NewID(),
		Name:          strings.TrimSpace(name),
		StartTime:     start,
		EndTime:       end,
		Color:         DefaultColor,
		PlaybackSpeed: DefaultPlaybackSpeed,
		RepeatCount:   DefaultRepeatCount,
		PlayCount:     0,
		IsActive:      false,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&loop)
		}
	}
	return loop
}

// NewID returns an identifier made of a millisecond timestamp in base 36
// and a random suffix.
func NewID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return "loop_" + strconv.FormatInt(time.Now().UnixMilli(), 36) + "_" + suffix
}
