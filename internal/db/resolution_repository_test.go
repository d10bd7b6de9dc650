package db

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tOgg1/loopline/internal/conflict"
	"github.com/tOgg1/loopline/internal/models"
)

func TestResolutionRepository_ApplyAndList(t *testing.T) {
	database := setupTestDB(t)
	repo := NewResolutionRepository(database)
	collections := NewCollectionRepository(database)
	ctx := context.Background()

	length := 60.0
	loops := []models.Loop{
		{ID: "1", Name: "one", StartTime: 0, EndTime: 50},
		{ID: "2", Name: "two", StartTime: 25, EndTime: 75},
		{ID: "3", Name: "bad", StartTime: math.NaN(), EndTime: 10},
	}
	res := conflict.Resolve(loops, &length, conflict.DefaultResolveOptions())

	c := &Collection{MediaID: "song", TimelineLength: &length, Loops: loops}
	record, err := repo.Apply(ctx, c, res)
	require.NoError(t, err)
	require.NotEmpty(t, record.ID)
	require.Equal(t, 1, record.ResolvedCount)
	require.Equal(t, 2, record.RemovedCount)

	stored, err := collections.Get(ctx, "song")
	require.NoError(t, err)
	require.Equal(t, []string{"one"}, models.Names(stored.Loops))

	history, err := repo.ListByMedia(ctx, "song")
	require.NoError(t, err)
	require.Len(t, history, 1)
	mods := history[0].Modifications
	require.Len(t, mods, len(res.Modifications))
	for i, mod := range mods {
		require.Equal(t, res.Modifications[i].Type, mod.Type)
		require.Equal(t, res.Modifications[i].LoopID, mod.LoopID)
		require.Equal(t, res.Modifications[i].Reason, mod.Reason)
	}
	require.Equal(t, models.ModificationRemoved, mods[0].Type)
	require.True(t, math.IsNaN(mods[0].Before.StartTime))
	require.Nil(t, mods[0].After)
	require.NotNil(t, mods[1].After)
	require.Equal(t, 60.0, mods[1].After.EndTime)
}

func TestResolutionRepository_RecordRequiresMedia(t *testing.T) {
	database := setupTestDB(t)
	repo := NewResolutionRepository(database)
	ctx := context.Background()

	_, err := repo.Record(ctx, "missing", conflict.Resolution{})
	require.ErrorIs(t, err, ErrMediaNotFound)

	_, err = repo.Record(ctx, "", conflict.Resolution{})
	require.Error(t, err)
}

func TestResolutionRepository_HistoryNewestFirst(t *testing.T) {
	database := setupTestDB(t)
	repo := NewResolutionRepository(database)
	ctx := context.Background()

	require.NoError(t, NewCollectionRepository(database).Save(ctx, &Collection{MediaID: "m"}))

	first, err := repo.Record(ctx, "m", conflict.Resolution{})
	require.NoError(t, err)
	second, err := repo.Record(ctx, "m", conflict.Resolution{})
	require.NoError(t, err)

	history, err := repo.ListByMedia(ctx, "m")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, second.ID, history[0].ID)
	require.Equal(t, first.ID, history[1].ID)
	require.Empty(t, history[0].Modifications)
}
