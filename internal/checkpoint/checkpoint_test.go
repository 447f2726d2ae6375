package checkpoint

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doculoom/engine/internal/model"
)

// memStore is an in-process Store fake, letting Manager's integrity logic be
// tested without a database.
type memStore struct {
	mu    sync.Mutex
	byID  map[string]*model.PipelineCheckpoint
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[string]*model.PipelineCheckpoint)}
}

func (s *memStore) Save(_ context.Context, cp *model.PipelineCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *cp
	s.byID[cp.SessionID] = &dup
	return nil
}

func (s *memStore) Load(_ context.Context, sessionID string) (*model.PipelineCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.byID[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	dup := *cp
	return &dup, nil
}

func (s *memStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, sessionID)
	return nil
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	ctx := context.Background()

	cp := &model.PipelineCheckpoint{
		SessionID:          "sess-1",
		LastCompletedPhase: model.PhaseBottomUp,
		FileList:           []model.FileRecord{{Path: "main.go", Tier: model.TierCore}},
	}
	require.NoError(t, mgr.Save(ctx, cp))
	assert.Equal(t, model.CheckpointSchemaVersion, cp.SchemaVersion)
	assert.NotZero(t, cp.Checksum)

	loaded, err := mgr.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, cp.Checksum, loaded.Checksum)
	assert.Equal(t, model.PhaseBottomUp, loaded.LastCompletedPhase)
	assert.Len(t, loaded.FileList, 1)
}

func TestLoadDetectsChecksumTampering(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	ctx := context.Background()

	cp := &model.PipelineCheckpoint{SessionID: "sess-2", LastCompletedPhase: model.PhaseTopDown}
	require.NoError(t, mgr.Save(ctx, cp))

	store.mu.Lock()
	store.byID["sess-2"].LastCompletedPhase = model.PhaseRefinement // mutate after save, bypassing Manager
	store.mu.Unlock()

	_, err := mgr.Load(ctx, "sess-2")
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestLoadDetectsSchemaVersionMismatch(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	ctx := context.Background()

	cp := &model.PipelineCheckpoint{SessionID: "sess-3"}
	require.NoError(t, mgr.Save(ctx, cp))

	store.mu.Lock()
	store.byID["sess-3"].SchemaVersion = model.CheckpointSchemaVersion + 1
	store.mu.Unlock()

	_, err := mgr.Load(ctx, "sess-3")
	require.ErrorIs(t, err, ErrSchemaVersionMismatch)
}

func TestLoadMissingSessionReturnsNotFound(t *testing.T) {
	mgr := NewManager(newMemStore())
	_, err := mgr.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesCheckpoint(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	ctx := context.Background()

	cp := &model.PipelineCheckpoint{SessionID: "sess-4"}
	require.NoError(t, mgr.Save(ctx, cp))
	require.NoError(t, mgr.Delete(ctx, "sess-4"))

	_, err := mgr.Load(ctx, "sess-4")
	require.ErrorIs(t, err, ErrNotFound)
}
