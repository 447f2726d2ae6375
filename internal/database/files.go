package database

import (
	"context"
	"fmt"

	"github.com/doculoom/engine/internal/model"
)

// FileStore persists per-file discovery/tiering state (spec §6 `files`
// table), independent of the checkpoint's JSONB file list so a second
// `generate` run over the same project root can compare content hashes
// against a prior completed session without deserializing its whole
// checkpoint.
type FileStore struct {
	client *Client
}

// NewFileStore builds a FileStore over an already-migrated Client.
func NewFileStore(client *Client) *FileStore {
	return &FileStore{client: client}
}

// Upsert records or updates one file's discovery/analysis state for a
// session. Called at Phase 2 discovery time and again, through UpsertMany,
// once Phase 3 has set each file's analyzed/failed status.
func (s *FileStore) Upsert(ctx context.Context, sessionID string, f model.FileRecord) error {
	_, err := s.client.Pool.Exec(ctx, `
		INSERT INTO files (session_id, path, content_hash, language, line_count, tier, status, retry_count, error_category, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (session_id, path) DO UPDATE SET
			content_hash   = EXCLUDED.content_hash,
			language       = EXCLUDED.language,
			line_count     = EXCLUDED.line_count,
			tier           = EXCLUDED.tier,
			status         = EXCLUDED.status,
			retry_count    = EXCLUDED.retry_count,
			error_category = EXCLUDED.error_category,
			updated_at     = now()
	`, sessionID, f.Path, f.ContentHash, f.Language, f.LineCount, string(f.Tier), string(f.Status), f.RetryCount, f.ErrCategory)
	if err != nil {
		return fmt.Errorf("database: upsert file %s: %w", f.Path, err)
	}
	return nil
}

// UpsertMany upserts a batch of file records for a session, used after
// Phase 2 discovery populates the initial tier/status for every file.
func (s *FileStore) UpsertMany(ctx context.Context, sessionID string, files []model.FileRecord) error {
	for _, f := range files {
		if err := s.Upsert(ctx, sessionID, f); err != nil {
			return err
		}
	}
	return nil
}

// ListBySession returns every file row for sessionID.
func (s *FileStore) ListBySession(ctx context.Context, sessionID string) ([]model.FileRecord, error) {
	rows, err := s.client.Pool.Query(ctx, `
		SELECT path, content_hash, language, line_count, tier, status, retry_count, error_category
		FROM files WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("database: list files for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []model.FileRecord
	for rows.Next() {
		var rec model.FileRecord
		var tier, status string
		if err := rows.Scan(&rec.Path, &rec.ContentHash, &rec.Language, &rec.LineCount, &tier, &status, &rec.RetryCount, &rec.ErrCategory); err != nil {
			return nil, fmt.Errorf("database: scan file row: %w", err)
		}
		rec.Tier = tierFromString(tier)
		rec.Status = model.FileStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: iterate files: %w", err)
	}
	return out, nil
}

// LatestCompletedSessionForRoot returns the most recently completed
// session id for projectRoot, if any, used by the incremental re-run's
// content-hash skip (spec §12).
func (s *Client) LatestCompletedSessionForRoot(ctx context.Context, projectRoot string) (string, bool, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `
		SELECT id FROM sessions
		WHERE project_root = $1 AND status = 'completed'
		ORDER BY completed_at DESC NULLS LAST, updated_at DESC
		LIMIT 1
	`, projectRoot).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("database: latest completed session for %s: %w", projectRoot, err)
	}
	return id, true, nil
}

func tierFromString(s string) model.Tier {
	for _, t := range model.Tiers {
		if t.String() == s {
			return t
		}
	}
	return model.TierStandard
}
