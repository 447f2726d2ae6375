package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/doculoom/engine/internal/model"
)

// characterizationBudget is the rough per-agent output-token estimate for
// Phase 1, well inside the share each of the seven agents would get from
// spec §4.1's 5% global partition (50,000 / 7 ≈ 7,142 at the default G).
const characterizationBudget = 600

// RunCharacterization implements Phase 1 (spec §4.5): three ordered,
// internally-parallel turns of named agents, each turn given the prior
// turns' outputs as context, assembled into one ProjectProfile.
func (s *Scheduler) RunCharacterization(ctx context.Context, sessionID, projectRoot string) (*model.ProjectProfile, error) {
	turn1, err := runAgents(ctx, s.deps.Gateway, model.PhaseCharacterization, s.deps.Parallelism.CharacterizationTurn, []agentSpec{
		{Name: "structure", Prompt: characterizationPrompt("structure", projectRoot, nil), EstimatedTokens: characterizationBudget},
		{Name: "dependency", Prompt: characterizationPrompt("dependency", projectRoot, nil), EstimatedTokens: characterizationBudget},
		{Name: "entry-point", Prompt: characterizationPrompt("entry-point", projectRoot, nil), EstimatedTokens: characterizationBudget},
	})
	if err != nil {
		return nil, fmt.Errorf("characterization turn 1: %w", err)
	}

	turn2, err := runAgents(ctx, s.deps.Gateway, model.PhaseCharacterization, s.deps.Parallelism.CharacterizationTurn, []agentSpec{
		{Name: "purpose", Prompt: characterizationPrompt("purpose", projectRoot, turn1), EstimatedTokens: characterizationBudget},
		{Name: "technical", Prompt: characterizationPrompt("technical", projectRoot, turn1), EstimatedTokens: characterizationBudget},
		{Name: "terminology", Prompt: characterizationPrompt("terminology", projectRoot, turn1), EstimatedTokens: characterizationBudget},
	})
	if err != nil {
		return nil, fmt.Errorf("characterization turn 2: %w", err)
	}

	priorTurns := mergeResults(turn1, turn2)
	turn3, err := runAgents(ctx, s.deps.Gateway, model.PhaseCharacterization, 1, []agentSpec{
		{Name: "section-discovery", Prompt: characterizationPrompt("section-discovery", projectRoot, priorTurns), EstimatedTokens: characterizationBudget},
	})
	if err != nil {
		return nil, fmt.Errorf("characterization turn 3: %w", err)
	}

	profile := &model.ProjectProfile{
		OrganizationStyle: model.OrganizationStyle(stringValue(turn1["structure"]["organization_style"])),
		DependencyMap:     stringSliceMap(turn1["dependency"]["dependency_map"]),
		EntryPoints:       stringSlice(turn1["entry-point"]["entry_points"]),
		Purposes:          stringMap(turn2["purpose"]["purposes"]),
		TechnicalTraits:   stringSlice(turn2["technical"]["technical_traits"]),
		Terminology:       stringMap(turn2["terminology"]["terminology"]),
		SectionPlan:       stringSlice(turn3["section-discovery"]["section_plan"]),
	}

	s.persistAgentOutputs(ctx, sessionID, 1, turn1)
	s.persistAgentOutputs(ctx, sessionID, 2, turn2)
	s.persistAgentOutputs(ctx, sessionID, 3, turn3)

	return profile, nil
}

// persistAgentOutputs durably records one turn's agent outputs (spec §6
// `agent_outputs` table), a no-op when Deps.AgentOutputs is unset.
func (s *Scheduler) persistAgentOutputs(ctx context.Context, sessionID string, turn int, results map[string]map[string]interface{}) {
	if s.deps.AgentOutputs == nil {
		return
	}
	for name, payload := range results {
		out := model.AgentOutput{AgentName: name, Turn: turn, Payload: payload, Timestamp: now()}
		if err := s.deps.AgentOutputs.Save(ctx, sessionID, out); err != nil {
			slog.Warn("scheduler: agent output persist failed", "agent", name, "session_id", sessionID, "error", err)
		}
	}
}

// now is a seam over time.Now so tests may observe callers don't depend on
// wall-clock precision; production always uses the real clock.
var now = time.Now

// mergeResults flattens several turns' named results into one map, used to
// hand turn 3 "turns 1-2" as context per spec §4.5.
func mergeResults(turns ...map[string]map[string]interface{}) map[string]map[string]interface{} {
	merged := make(map[string]map[string]interface{})
	for _, turn := range turns {
		for name, out := range turn {
			merged[name] = out
		}
	}
	return merged
}

// characterizationPrompt builds a minimal prompt for one Phase 1 agent;
// prior holds every already-completed agent's output, keyed by name, for
// the agents that require it as context (spec §4.5 turns 2 and 3).
func characterizationPrompt(agentName, projectRoot string, prior map[string]map[string]interface{}) string {
	prompt := fmt.Sprintf("You are the %s characterization agent analyzing the repository at %s. Respond with a single JSON object.", agentName, projectRoot)
	for name, out := range prior {
		prompt += fmt.Sprintf("\n\n%s agent output:\n%v", name, out)
	}
	return prompt
}
