package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for input, want := range tests {
		require.Equal(t, want, ParseLevel(input), "level %q", input)
	}
}

func TestComponentLoggerWritesJSON(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})

	log := Component("conflict")
	log.Debug().Str("loop_id", "abc").Msg("adjusted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "conflict", entry["component"])
	require.Equal(t, "abc", entry["loop_id"])
	require.Equal(t, "adjusted", entry["message"])
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})

	ctx := context.Background()
	log := FromContext(ctx)
	log.Info().Msg("global")
	require.Contains(t, buf.String(), "global")

	buf.Reset()
	ctx = WithContext(ctx, WithMedia("song-1"))
	log = FromContext(ctx)
	log.Info().Msg("scoped")
	require.Contains(t, buf.String(), `"media_id":"song-1"`)
}
