package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/doculoom/engine/internal/model"
)

// AgentOutputStore persists one row per agent call (spec §6 `agent_outputs`
// table): the seven characterization agents and four top-down agents, each
// written once and immutable thereafter (spec §3 AgentOutput lifecycle).
type AgentOutputStore struct {
	client *Client
}

// NewAgentOutputStore builds an AgentOutputStore over an already-migrated Client.
func NewAgentOutputStore(client *Client) *AgentOutputStore {
	return &AgentOutputStore{client: client}
}

// Save inserts one agent's output. Never an upsert: spec §3 says an
// AgentOutput is "written once per agent per session; immutable."
func (s *AgentOutputStore) Save(ctx context.Context, sessionID string, out model.AgentOutput) error {
	payload, err := json.Marshal(out.Payload)
	if err != nil {
		return fmt.Errorf("database: marshal agent output %s: %w", out.AgentName, err)
	}
	_, err = s.client.Pool.Exec(ctx, `
		INSERT INTO agent_outputs (id, session_id, agent_name, turn, payload, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), sessionID, out.AgentName, out.Turn, payload, out.Confidence, out.Timestamp)
	if err != nil {
		return fmt.Errorf("database: insert agent output %s: %w", out.AgentName, err)
	}
	return nil
}
