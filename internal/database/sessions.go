package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/doculoom/engine/internal/model"
)

// ErrSessionNotFound is returned when a requested session id has no row.
var ErrSessionNotFound = errors.New("database: session not found")

// SessionStore persists model.Session rows, backing the CLI's init, status,
// and clean verbs (spec §6). It holds no in-memory state of its own; every
// call round-trips to Postgres, the same shape as checkpoint.PostgresStore.
type SessionStore struct {
	client *Client
}

// NewSessionStore builds a SessionStore over an already-migrated Client.
func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{client: client}
}

// Create inserts a new session row. Used by `docengine init`.
func (s *SessionStore) Create(ctx context.Context, sess *model.Session) error {
	snap := sess.Snapshot()
	history, err := json.Marshal(snap.QualityHistory)
	if err != nil {
		return fmt.Errorf("database: marshal quality history: %w", err)
	}

	_, err = s.client.Pool.Exec(ctx, `
		INSERT INTO sessions (
			id, project_root, status, current_phase, mode, scale,
			quality_target, quality_history, refinement_turn, last_error,
			created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		snap.ID, snap.ProjectRoot, string(snap.Status), string(snap.CurrentPhase),
		string(snap.Mode), string(snap.Scale), snap.QualityTarget, history,
		snap.RefinementTurn, snap.LastError, snap.CreatedAt, snap.UpdatedAt, snap.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("database: insert session: %w", err)
	}
	return nil
}

// Get loads a session by id. The returned *model.Session is freshly
// constructed and owns no lock anyone else holds, so the caller may mutate
// it through the normal Session methods.
func (s *SessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	row := s.client.Pool.QueryRow(ctx, `
		SELECT id, project_root, status, current_phase, mode, scale,
		       quality_target, quality_history, refinement_turn, last_error,
		       created_at, updated_at, completed_at
		FROM sessions WHERE id = $1
	`, id)

	var (
		sess                        model.Session
		status, phase, mode, scale  string
		historyRaw                  []byte
	)
	err := row.Scan(
		&sess.ID, &sess.ProjectRoot, &status, &phase, &mode, &scale,
		&sess.QualityTarget, &historyRaw, &sess.RefinementTurn, &sess.LastError,
		&sess.CreatedAt, &sess.UpdatedAt, &sess.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("database: query session: %w", err)
	}

	sess.Status = model.SessionStatus(status)
	sess.CurrentPhase = model.Phase(phase)
	sess.Mode = model.Mode(mode)
	sess.Scale = model.Scale(scale)
	if err := json.Unmarshal(historyRaw, &sess.QualityHistory); err != nil {
		return nil, fmt.Errorf("database: unmarshal quality history: %w", err)
	}
	return &sess, nil
}

// List returns every session row, most recently created first. The CLI
// uses it to find a project root's latest session for `status`, `clean`
// (without --all), `generate --status` and `generate --resume`.
func (s *SessionStore) List(ctx context.Context) ([]*model.Session, error) {
	rows, err := s.client.Pool.Query(ctx, `SELECT id FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("database: list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("database: scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: iterate sessions: %w", err)
	}

	sessions := make([]*model.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Update persists the session's current mutable fields. `generate` calls it
// once the scheduler's Run returns, so `docengine status` can read the
// outcome from a separate process.
func (s *SessionStore) Update(ctx context.Context, sess *model.Session) error {
	snap := sess.Snapshot()
	history, err := json.Marshal(snap.QualityHistory)
	if err != nil {
		return fmt.Errorf("database: marshal quality history: %w", err)
	}

	_, err = s.client.Pool.Exec(ctx, `
		UPDATE sessions SET
			status = $1, current_phase = $2, quality_history = $3,
			refinement_turn = $4, last_error = $5, updated_at = $6, completed_at = $7
		WHERE id = $8
	`, string(snap.Status), string(snap.CurrentPhase), history,
		snap.RefinementTurn, snap.LastError, snap.UpdatedAt, snap.CompletedAt, snap.ID)
	if err != nil {
		return fmt.Errorf("database: update session: %w", err)
	}
	return nil
}

// Delete removes a session row. Its checkpoint and insights rows cascade via
// foreign key. Used by `docengine clean`.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database: delete session: %w", err)
	}
	return nil
}

// DeleteAll removes every session row, used by `docengine clean --all`.
func (s *SessionStore) DeleteAll(ctx context.Context) error {
	_, err := s.client.Pool.Exec(ctx, `DELETE FROM sessions`)
	if err != nil {
		return fmt.Errorf("database: delete all sessions: %w", err)
	}
	return nil
}
