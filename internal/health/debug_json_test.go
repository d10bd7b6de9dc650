package health

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tOgg1/loopline/internal/models"
)

func TestAnalyzeForDebugUnboundedLoopsEncode(t *testing.T) {
	loops := []models.Loop{
		loop("a", 0, math.Inf(1), false),
		loop("b", 10, math.Inf(1), false),
		loop("c", 20, 30, true),
		loop("d", math.NaN(), 5, false),
	}

	analysis := AnalyzeForDebug(loops, length(100))
	require.Equal(t, 10.0, analysis.TotalDuration, "unbounded loops are left out of the total")
	require.NotNil(t, analysis.CoveragePercent)
	require.InDelta(t, 10.0, *analysis.CoveragePercent, 1e-9)
	require.Len(t, analysis.OverlapRegions, 2)
	require.True(t, math.IsInf(analysis.OverlapRegions[0].End, 1))

	data, err := json.Marshal(analysis)
	require.NoError(t, err)

	var decoded struct {
		OverlapRegions []struct {
			Start   *float64 `json:"start"`
			End     *float64 `json:"end"`
			LoopIDs []string `json:"loop_ids"`
		} `json:"overlap_regions"`
		Conflicts struct {
			InvalidTimes []models.Loop `json:"invalid_times"`
		} `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, 10.0, *decoded.OverlapRegions[0].Start)
	require.Nil(t, decoded.OverlapRegions[0].End)
	require.Equal(t, []string{"a", "b"}, decoded.OverlapRegions[0].LoopIDs)
	require.Len(t, decoded.Conflicts.InvalidTimes, 3)
	require.True(t, math.IsNaN(decoded.Conflicts.InvalidTimes[2].StartTime))
}
