package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/doculoom/engine/internal/model"
)

// FileInsightStore persists completed FileInsights one row per file (spec
// §6 `file_insights` table), published as each file finishes analysis
// rather than only at the Phase 3 checkpoint barrier. This is what lets a
// resumed session rehydrate already-analyzed files by path instead of
// re-issuing their LLM calls (spec §8 property 4, scenario S2).
type FileInsightStore struct {
	client *Client
}

// NewFileInsightStore builds a FileInsightStore over an already-migrated Client.
func NewFileInsightStore(client *Client) *FileInsightStore {
	return &FileInsightStore{client: client}
}

// Save upserts one file's insight. Called immediately after the Insight
// Registry publish succeeds, so a crash before the tier barrier still
// leaves this row durable.
func (s *FileInsightStore) Save(ctx context.Context, sessionID string, fi model.FileInsight) error {
	payload, err := json.Marshal(fi)
	if err != nil {
		return fmt.Errorf("database: marshal file insight %s: %w", fi.Path, err)
	}
	_, err = s.client.Pool.Exec(ctx, `
		INSERT INTO file_insights (session_id, path, payload, analyzed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, path) DO UPDATE SET
			payload     = EXCLUDED.payload,
			analyzed_at = EXCLUDED.analyzed_at
	`, sessionID, fi.Path, payload, fi.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("database: upsert file insight %s: %w", fi.Path, err)
	}
	return nil
}

// ListBySession returns every published insight for sessionID, keyed by
// path, used to rehydrate a resumed Phase 3 run.
func (s *FileInsightStore) ListBySession(ctx context.Context, sessionID string) (map[string]model.FileInsight, error) {
	rows, err := s.client.Pool.Query(ctx, `
		SELECT path, payload FROM file_insights WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("database: list file insights for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	out := make(map[string]model.FileInsight)
	for rows.Next() {
		var path string
		var payload []byte
		if err := rows.Scan(&path, &payload); err != nil {
			return nil, fmt.Errorf("database: scan file insight row: %w", err)
		}
		var fi model.FileInsight
		if err := json.Unmarshal(payload, &fi); err != nil {
			return nil, fmt.Errorf("database: unmarshal file insight %s: %w", path, err)
		}
		out[path] = fi
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: iterate file insights: %w", err)
	}
	return out, nil
}
