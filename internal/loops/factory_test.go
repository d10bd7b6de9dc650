package loops

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAppliesDefaults(t *testing.T) {
	loop := Create("  Intro  ", 0, 12.5)

	assert.True(t, strings.HasPrefix(loop.ID, "loop_"))
	assert.Equal(t, "Intro", loop.Name)
	assert.Equal(t, 0.0, loop.StartTime)
	assert.Equal(t, 12.5, loop.EndTime)
	assert.Equal(t, DefaultColor, loop.Color)
	assert.Equal(t, DefaultPlaybackSpeed, loop.PlaybackSpeed)
	assert.Equal(t, DefaultRepeatCount, loop.RepeatCount)
	assert.Zero(t, loop.PlayCount)
	assert.False(t, loop.IsActive)
}

func TestCreateOptionsOverrideDefaults(t *testing.T) {
	loop := Create("Solo", 30, 45,
		WithID("fixed"),
		WithColor("#ff0000"),
		WithPlaybackSpeed(0.5),
		WithRepeatCount(4),
		WithPlayCount(7),
		WithActive(true),
		nil,
	)

	assert.Equal(t, "fixed", loop.ID)
	assert.Equal(t, "#ff0000", loop.Color)
	assert.Equal(t, 0.5, loop.PlaybackSpeed)
	assert.Equal(t, 4, loop.RepeatCount)
	assert.Equal(t, 7, loop.PlayCount)
	assert.True(t, loop.IsActive)
}

func TestCreateDoesNotValidate(t *testing.T) {
	loop := Create("", 50, 10)
	assert.Equal(t, 50.0, loop.StartTime)
	assert.Equal(t, 10.0, loop.EndTime)
}

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
