package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoopJSONWritesNonFiniteBoundsAsNull(t *testing.T) {
	loop := Loop{ID: "a", Name: "Broken", StartTime: math.NaN(), EndTime: math.Inf(1), PlaybackSpeed: math.NaN()}

	data, err := json.Marshal(loop)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"a","name":"Broken","start_time":null,"end_time":null,"play_count":0,"is_active":false}`, string(data))

	var decoded Loop
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "a", decoded.ID)
	require.True(t, math.IsNaN(decoded.StartTime))
	require.True(t, math.IsNaN(decoded.EndTime))
	require.Zero(t, decoded.PlaybackSpeed, "a non-finite speed reads back as unset")
}

func TestLoopJSONRoundTripsFiniteLoops(t *testing.T) {
	loop := Loop{ID: "b", Name: "Solo", StartTime: 1.5, EndTime: 9, Color: "#fff", PlaybackSpeed: 0.75, RepeatCount: 2, PlayCount: 4, IsActive: true}

	data, err := json.Marshal(loop)
	require.NoError(t, err)
	require.Contains(t, string(data), `"start_time":1.5`)

	var decoded Loop
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, loop, decoded)
}

func TestLoopJSONAbsentBoundsDefaultToZero(t *testing.T) {
	var decoded Loop
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c","name":"Intro"}`), &decoded))
	require.Equal(t, Loop{ID: "c", Name: "Intro"}, decoded)

	var list []Loop
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"d","start_time":2,"end_time":null}]`), &list))
	require.Equal(t, 2.0, list[0].StartTime)
	require.True(t, math.IsNaN(list[0].EndTime))
}

func TestFiniteOrNil(t *testing.T) {
	require.Nil(t, FiniteOrNil(math.NaN()))
	require.Nil(t, FiniteOrNil(math.Inf(-1)))
	require.Equal(t, 3.0, *FiniteOrNil(3))
}
