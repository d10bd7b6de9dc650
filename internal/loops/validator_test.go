package loops

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/loopline/internal/config"
	"github.com/tOgg1/loopline/internal/models"
)

func length(v float64) *float64 { return &v }

func TestValidateCleanLoop(t *testing.T) {
	loop := Create("Verse", 10, 20, WithID("a"))

	result := Validate(loop, length(100), nil)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.NoError(t, result.Err())
}

func TestValidateReportsEveryCode(t *testing.T) {
	tests := []struct {
		name     string
		loop     models.Loop
		timeline *float64
		want     []models.ErrorCode
	}{
		{
			name: "blank name",
			loop: Create("   ", 0, 10),
			want: []models.ErrorCode{models.ErrorCodeInvalidName},
		},
		{
			name: "long name",
			loop: Create(strings.Repeat("x", 101), 0, 10),
			want: []models.ErrorCode{models.ErrorCodeInvalidName},
		},
		{
			name: "negative start",
			loop: Create("a", -5, 10),
			want: []models.ErrorCode{models.ErrorCodeInvalidTimeRange, models.ErrorCodeNegativeTime},
		},
		{
			name: "zero duration",
			loop: Create("a", 10, 10),
			want: []models.ErrorCode{models.ErrorCodeInvalidTimeRange, models.ErrorCodeZeroDuration},
		},
		{
			name: "reversed",
			loop: Create("a", 20, 10),
			want: []models.ErrorCode{models.ErrorCodeInvalidTimeRange, models.ErrorCodeZeroDuration},
		},
		{
			name: "speed",
			loop: Create("a", 0, 10, WithPlaybackSpeed(8)),
			want: []models.ErrorCode{models.ErrorCodeInvalidPlaybackSpeed},
		},
		{
			name:     "exceeds timeline",
			loop:     Create("a", 50, 120),
			timeline: length(100),
			want:     []models.ErrorCode{models.ErrorCodeInvalidTimeRange, models.ErrorCodeExceedsVideoDuration},
		},
		{
			name: "nan bounds",
			loop: Create("a", math.NaN(), 10),
			want: []models.ErrorCode{models.ErrorCodeInvalidTimeRange, models.ErrorCodeZeroDuration},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.loop, tc.timeline, nil)
			assert.False(t, result.IsValid)
			assert.Equal(t, tc.want, result.Errors)
		})
	}
}

func TestValidateZeroSpeedIsUnset(t *testing.T) {
	loop := Create("a", 0, 10, WithPlaybackSpeed(0))
	assert.True(t, Validate(loop, nil, nil).IsValid)
}

func TestValidateOverlapSkipsSelf(t *testing.T) {
	loop := Create("Chorus", 10, 30, WithID("c"))
	existing := []models.Loop{
		loop,
		Create("Verse", 0, 15, WithID("v")),
		Create("Bridge", 25, 40, WithID("b")),
		Create("Outro", 30, 50, WithID("o")),
	}

	result := Validate(loop, nil, existing)

	require.False(t, result.IsValid)
	assert.Equal(t, []models.ErrorCode{models.ErrorCodeOverlappingLoops}, result.Errors)
	assert.Equal(t, []string{"Overlaps with: Verse, Bridge"}, result.Warnings)
}

func TestValidateLongLoopWarning(t *testing.T) {
	loop := Create("Most", 0, 90)

	result := Validate(loop, length(100), nil)
	assert.True(t, result.IsValid)
	assert.Equal(t, []string{"Loop covers more than 80% of the media"}, result.Warnings)

	result = NewValidator(nil).WithLongLoopRatio(0.95).Validate(loop, length(100), nil)
	assert.Empty(t, result.Warnings)
}

func TestValidateUsesConfiguredLimits(t *testing.T) {
	v := NewValidator(NewLimitValidator(config.FieldLimits{NameMaxLength: 3, MinSpeed: 1, MaxSpeed: 1}))

	result := v.Validate(Create("abcd", 0, 1, WithPlaybackSpeed(1.5)), nil, nil)
	assert.Equal(t, []models.ErrorCode{models.ErrorCodeInvalidName, models.ErrorCodeInvalidPlaybackSpeed}, result.Errors)
}

func TestResultErr(t *testing.T) {
	result := Validate(Create("", -1, 5), nil, nil)

	err := result.Err()
	require.Error(t, err)

	var list *models.ValidationErrors
	require.True(t, errors.As(err, &list))
	assert.Equal(t, result.Errors, list.Codes())
	assert.Equal(t, "name", list.Errors[0].Field)
	assert.True(t, list.HasCode(models.ErrorCodeNegativeTime))
}

type stubFields struct{ rangeOK bool }

func (stubFields) IsValidName(string) bool                        { return true }
func (stubFields) IsValidSpeed(float64) bool                      { return true }
func (s stubFields) IsValidRange(float64, float64, *float64) bool { return s.rangeOK }

func TestValidateDelegatesRange(t *testing.T) {
	result := NewValidator(stubFields{rangeOK: false}).Validate(Create("a", 0, 10), nil, nil)
	assert.Equal(t, []models.ErrorCode{models.ErrorCodeInvalidTimeRange}, result.Errors)
}
