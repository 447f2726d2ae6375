// Package checkpoint implements transactional phase-boundary persistence for
// a pipeline session: after every phase commits, the full in-memory state is
// serialized, checksummed, and written so a crashed or paused run can resume
// from the last completed phase instead of restarting (spec §4.2).
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/doculoom/engine/internal/model"
)

// Manager wraps a Store with the checksum and schema-version checks that make
// a checkpoint safe to resume from.
type Manager struct {
	store Store
}

// NewManager builds a Manager over the given Store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Save stamps cp with the current schema version and a fresh checksum, then
// persists it. The caller's cp is mutated in place so a subsequent read of
// the same value reflects what was actually written.
func (m *Manager) Save(ctx context.Context, cp *model.PipelineCheckpoint) error {
	cp.SchemaVersion = model.CheckpointSchemaVersion
	cp.Timestamp = time.Now()
	cp.Checksum = 0
	sum, err := checksum(cp)
	if err != nil {
		return fmt.Errorf("checkpoint: compute checksum: %w", err)
	}
	cp.Checksum = sum
	return m.store.Save(ctx, cp)
}

// Load retrieves the checkpoint for sessionID and verifies it is both the
// schema version this binary understands and unaltered since it was written.
func (m *Manager) Load(ctx context.Context, sessionID string) (*model.PipelineCheckpoint, error) {
	cp, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cp.SchemaVersion != model.CheckpointSchemaVersion {
		return nil, fmt.Errorf("%w: stored %d, expected %d", ErrSchemaVersionMismatch, cp.SchemaVersion, model.CheckpointSchemaVersion)
	}

	stored := cp.Checksum
	cp.Checksum = 0
	sum, err := checksum(cp)
	cp.Checksum = stored
	if err != nil {
		return nil, fmt.Errorf("checkpoint: compute checksum: %w", err)
	}
	if sum != stored {
		return nil, fmt.Errorf("%w: session %s", ErrChecksumMismatch, sessionID)
	}
	return cp, nil
}

// Delete removes any persisted checkpoint for sessionID, used by `clean`.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// checksum computes a deterministic CRC32 over cp's JSON encoding. JSON field
// order follows struct field order, which is fixed at compile time, so this
// is stable across processes.
func checksum(cp *model.PipelineCheckpoint) (uint32, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return 0, err
	}
	return crc32.ChecksumIEEE(data), nil
}
