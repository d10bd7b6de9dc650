package models

import (
	"encoding/json"
	"math"
)

// loopFields has Loop's fields without its JSON methods.
type loopFields Loop

// loopJSON is the JSON form of a Loop. JSON has no NaN or Inf, so
// non-finite bounds are written as null and null bounds read back as NaN.
type loopJSON struct {
	loopFields
	StartTime *float64 `json:"start_time"`
	EndTime   *float64 `json:"end_time"`
	// A non-finite speed is dropped and reads back as unset.
	PlaybackSpeed *float64 `json:"playback_speed,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (l Loop) MarshalJSON() ([]byte, error) {
	out := loopJSON{
		loopFields: loopFields(l),
		StartTime:  FiniteOrNil(l.StartTime),
		EndTime:    FiniteOrNil(l.EndTime),
	}
	if l.PlaybackSpeed != 0 {
		out.PlaybackSpeed = FiniteOrNil(l.PlaybackSpeed)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Absent bounds keep their
// current value.
func (l *Loop) UnmarshalJSON(data []byte) error {
	start, end, speed := l.StartTime, l.EndTime, l.PlaybackSpeed
	in := loopJSON{
		loopFields:    loopFields(*l),
		StartTime:     &start,
		EndTime:       &end,
		PlaybackSpeed: &speed,
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*l = Loop(in.loopFields)
	l.StartTime = valueOrNaN(in.StartTime)
	l.EndTime = valueOrNaN(in.EndTime)
	l.PlaybackSpeed = 0
	if in.PlaybackSpeed != nil {
		l.PlaybackSpeed = *in.PlaybackSpeed
	}
	return nil
}

// FiniteOrNil returns a pointer to v, or nil when v is NaN or infinite.
func FiniteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
