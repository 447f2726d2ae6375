package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/doculoom/engine/internal/model"
)

// LLMMetricsStore records one row per generate() call (spec §6
// `llm_metrics` table), independent of TALE's in-memory counters, so usage
// can be queried or audited after a session ends.
type LLMMetricsStore struct {
	client *Client
}

// NewLLMMetricsStore builds an LLMMetricsStore over an already-migrated Client.
func NewLLMMetricsStore(client *Client) *LLMMetricsStore {
	return &LLMMetricsStore{client: client}
}

// Record inserts one call's accounting row.
func (s *LLMMetricsStore) Record(ctx context.Context, m model.LLMMetric) error {
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.client.Pool.Exec(ctx, `
		INSERT INTO llm_metrics (id, session_id, timestamp, phase, provider, model, input_tokens, output_tokens, status, error_category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, id, m.SessionID, m.Timestamp, string(m.Phase), m.Provider, m.Model, m.InputTokens, m.OutputTokens, m.Status, m.ErrorCategory)
	if err != nil {
		return fmt.Errorf("database: insert llm metric: %w", err)
	}
	return nil
}
