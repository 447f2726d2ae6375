package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doculoom/engine/internal/model"
)

// topDownBudget is the rough per-agent output-token estimate for Phase 4,
// well inside the share each of the four agents would get from spec §4.1's
// 10% global partition (100,000 / 4 = 25,000 at the default G).
const topDownBudget = 2500

var topDownAgents = []model.ProjectInsightAgent{
	model.AgentArchitecture, model.AgentFlow, model.AgentRisk, model.AgentDomain,
}

// RunTopDown implements Phase 4 (spec §4.5): four agents in parallel, each
// seeing the full FileInsight set and ProjectProfile.
func (s *Scheduler) RunTopDown(ctx context.Context, sessionID string, insights []model.FileInsight, profile *model.ProjectProfile) ([]model.ProjectInsight, error) {
	specs := make([]agentSpec, 0, len(topDownAgents))
	for _, agentName := range topDownAgents {
		specs = append(specs, agentSpec{
			Name:            string(agentName),
			Prompt:          topDownPrompt(agentName, insights, profile),
			EstimatedTokens: topDownBudget,
		})
	}

	results, err := runAgents(ctx, s.deps.Gateway, model.PhaseTopDown, s.deps.Parallelism.TopDown, specs)
	if err != nil {
		return nil, fmt.Errorf("top-down: %w", err)
	}

	out := make([]model.ProjectInsight, 0, len(topDownAgents))
	for _, agentName := range topDownAgents {
		out = append(out, model.ProjectInsight{Agent: agentName, Payload: results[string(agentName)]})
	}

	if s.deps.AgentOutputs != nil {
		for _, agentName := range topDownAgents {
			ao := model.AgentOutput{AgentName: string(agentName), Turn: 1, Payload: results[string(agentName)], Timestamp: now()}
			if err := s.deps.AgentOutputs.Save(ctx, sessionID, ao); err != nil {
				slog.Warn("scheduler: top-down agent output persist failed", "agent", agentName, "session_id", sessionID, "error", err)
			}
		}
	}

	return out, nil
}

func topDownPrompt(agentName model.ProjectInsightAgent, insights []model.FileInsight, profile *model.ProjectProfile) string {
	prompt := fmt.Sprintf("You are the %s top-down agent. You are given %d analyzed file insights and the project profile. Respond with a single JSON object describing the project's %s.", agentName, len(insights), agentName)
	if profile != nil {
		prompt += fmt.Sprintf("\nOrganization style: %s. Entry points: %v.", profile.OrganizationStyle, profile.EntryPoints)
	}
	return prompt
}
