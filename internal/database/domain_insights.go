package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/doculoom/engine/internal/model"
)

// DomainInsightStore persists one row per semantic domain (spec §6
// `domain_insights` table), written by Phase 5 consolidation.
type DomainInsightStore struct {
	client *Client
}

// NewDomainInsightStore builds a DomainInsightStore over an already-migrated Client.
func NewDomainInsightStore(client *Client) *DomainInsightStore {
	return &DomainInsightStore{client: client}
}

// Save upserts one domain's synthesized insight, keyed by (session, label).
func (s *DomainInsightStore) Save(ctx context.Context, sessionID string, d model.DomainInsight) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("database: marshal domain insight %s: %w", d.Label, err)
	}
	_, err = s.client.Pool.Exec(ctx, `
		INSERT INTO domain_insights (id, session_id, label, payload, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (session_id, label) DO UPDATE SET
			payload = EXCLUDED.payload
	`, uuid.NewString(), sessionID, d.Label, payload)
	if err != nil {
		return fmt.Errorf("database: upsert domain insight %s: %w", d.Label, err)
	}
	return nil
}

// SaveAll upserts every domain produced by a consolidation pass.
func (s *DomainInsightStore) SaveAll(ctx context.Context, sessionID string, domains []model.DomainInsight) error {
	for _, d := range domains {
		if err := s.Save(ctx, sessionID, d); err != nil {
			return err
		}
	}
	return nil
}
