package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doculoom/engine/internal/model"
)

func TestSessionStoreCreateGetUpdateDelete(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	store := NewSessionStore(client)

	sess := model.NewSession("sess-store-1", "/repo", model.ModeStandard, model.ScaleMedium, 0.85)
	require.NoError(t, store.Create(ctx, sess))

	loaded, err := store.Get(ctx, "sess-store-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionPending, loaded.Snapshot().Status)
	assert.Equal(t, "/repo", loaded.Snapshot().ProjectRoot)
	assert.Empty(t, loaded.Snapshot().QualityHistory)

	loaded.SetStatus(model.SessionRunning)
	loaded.RecordQuality(1, 0.72, "")
	require.NoError(t, store.Update(ctx, loaded))

	reloaded, err := store.Get(ctx, "sess-store-1")
	require.NoError(t, err)
	snap := reloaded.Snapshot()
	assert.Equal(t, model.SessionRunning, snap.Status)
	require.Len(t, snap.QualityHistory, 1)
	assert.Equal(t, 0.72, snap.QualityHistory[0].Score)

	require.NoError(t, store.Delete(ctx, "sess-store-1"))
	_, err = store.Get(ctx, "sess-store-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreListAndDeleteAll(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	store := NewSessionStore(client)

	require.NoError(t, store.Create(ctx, model.NewSession("sess-a", "/repo-a", model.ModeFast, model.ScaleSmall, 0.6)))
	require.NoError(t, store.Create(ctx, model.NewSession("sess-b", "/repo-b", model.ModeFast, model.ScaleSmall, 0.6)))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.DeleteAll(ctx))
	all, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
