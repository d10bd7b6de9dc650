package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextString(t *testing.T) {
	length := 182.5
	tests := []struct {
		name string
		ctx  Context
		want string
	}{
		{name: "empty", ctx: Context{}, want: "(no context set)"},
		{name: "id only", ctx: Context{MediaID: "0123456789abcdef"}, want: "media:01234567"},
		{name: "title", ctx: Context{MediaID: "m1", MediaTitle: "Song"}, want: "media:Song"},
		{name: "length", ctx: Context{MediaID: "m1", MediaTitle: "Song", TimelineLength: &length}, want: "media:Song (182.5s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.ctx.String())
		})
	}
}

func TestContextSetAndClear(t *testing.T) {
	length := 60.0
	ctx := &Context{}
	ctx.SetMedia("m1", "Song", &length)
	require.False(t, ctx.IsEmpty())
	require.False(t, ctx.UpdatedAt.IsZero())

	ctx.Clear()
	require.True(t, ctx.IsEmpty())
	require.Nil(t, ctx.TimelineLength)
}

func TestContextStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "context.yaml")
	store := NewContextStore(path)
	require.Equal(t, path, store.Path())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.True(t, loaded.IsEmpty())

	length := 240.0
	ctx := &Context{}
	ctx.SetMedia("m1", "Song", &length)
	require.NoError(t, store.Save(ctx))

	loaded, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "m1", loaded.MediaID)
	require.NotNil(t, loaded.TimelineLength)
	require.Equal(t, 240.0, *loaded.TimelineLength)

	require.NoError(t, store.Clear())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.NoError(t, store.Clear())
}

func TestContextStoreInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.yaml")
	require.NoError(t, os.WriteFile(path, []byte("media: [unterminated"), 0o644))

	_, err := NewContextStore(path).Load()
	require.Error(t, err)
}
