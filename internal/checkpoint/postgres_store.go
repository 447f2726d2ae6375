package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/doculoom/engine/internal/database"
	"github.com/doculoom/engine/internal/model"
)

// PostgresStore persists checkpoints as a JSONB blob alongside queryable
// scalar columns, mirroring the teacher's pattern of updating related rows
// inside one transaction (pkg/queue/orphan.go markSessionTimedOut).
type PostgresStore struct {
	client *database.Client
}

// NewPostgresStore builds a PostgresStore over an already-migrated Client.
func NewPostgresStore(client *database.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

// Save upserts the checkpoint row and the session's current_phase in a single
// transaction so the two never disagree after a crash mid-write.
func (s *PostgresStore) Save(ctx context.Context, cp *model.PipelineCheckpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal payload: %w", err)
	}

	tx, err := s.client.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("checkpoint: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO checkpoints (session_id, schema_version, last_completed_phase, checksum, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (session_id) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			last_completed_phase = EXCLUDED.last_completed_phase,
			checksum = EXCLUDED.checksum,
			payload = EXCLUDED.payload,
			updated_at = now()
	`, cp.SessionID, cp.SchemaVersion, string(cp.LastCompletedPhase), cp.Checksum, payload)
	if err != nil {
		return fmt.Errorf("checkpoint: upsert checkpoint row: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE sessions SET current_phase = $1, updated_at = now() WHERE id = $2
	`, string(cp.LastCompletedPhase), cp.SessionID)
	if err != nil {
		return fmt.Errorf("checkpoint: update session phase: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("checkpoint: commit transaction: %w", err)
	}
	return nil
}

// Load fetches the raw checkpoint row for sessionID.
func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*model.PipelineCheckpoint, error) {
	var payload []byte
	err := s.client.Pool.QueryRow(ctx,
		`SELECT payload FROM checkpoints WHERE session_id = $1`, sessionID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: query checkpoint row: %w", err)
	}

	var cp model.PipelineCheckpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal payload: %w", err)
	}
	return &cp, nil
}

// Delete removes the checkpoint row for sessionID, if any.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.Pool.Exec(ctx, `DELETE FROM checkpoints WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("checkpoint: delete checkpoint row: %w", err)
	}
	return nil
}
