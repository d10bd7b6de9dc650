package conflict

import (
	"fmt"

	"github.com/tOgg1/loopline/internal/models"
)

func length(v float64) *float64 { return &v }

var idCounter int

// loop builds a loop with a readable, unique ID. The name is kept verbatim
// so tests can exercise whitespace handling.
func loop(name string, start, end float64) models.Loop {
	idCounter++
	return models.Loop{
		ID:            fmt.Sprintf("%s-%d", name, idCounter),
		Name:          name,
		StartTime:     start,
		EndTime:       end,
		PlaybackSpeed: 1,
		RepeatCount:   1,
	}
}
