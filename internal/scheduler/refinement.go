package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doculoom/engine/internal/model"
	"github.com/doculoom/engine/internal/quality"
)

const refinementBudget = 2000

// RefinementResult is one completed Phase 6 run: the final insights and
// domains after however many turns the controller allowed, plus the
// recorded score history for the session.
type RefinementResult struct {
	Insights []model.FileInsight
	Domains  []model.DomainInsight
	History  []quality.Verdict
}

// RunRefinement implements Phase 6 (spec §4.5, §4.7): iterate the Quality
// Controller, dispatching one refinement agent per turn targeted at the
// lowest-scoring dimension, until the target is met, the iteration cap is
// reached, or two turns make no progress. After every turn the refined
// FileInsights are re-saved when Deps.FileInsights is set; the pipeline
// checkpoint itself is not written per turn, only once the phase returns.
func (s *Scheduler) RunRefinement(ctx context.Context, session *model.Session, files []model.FileRecord, insights []model.FileInsight, domains []model.DomainInsight) (RefinementResult, error) {
	snap := session.Snapshot()
	controller := quality.NewController(snap.Mode, snap.Scale)

	result := RefinementResult{Insights: insights, Domains: domains}

	for iteration := 1; ; iteration++ {
		verdict := controller.Evaluate(iteration, files, result.Insights, s.deps.Counter)
		result.History = append(result.History, verdict)
		session.RecordQuality(iteration, verdict.Score.Overall(), stopCause(verdict))

		if !verdict.Continue {
			return result, nil
		}

		updated, err := s.refineDimension(ctx, verdict.NextFocus, result.Insights)
		if err != nil {
			return result, fmt.Errorf("refinement turn %d: %w", iteration, err)
		}
		result.Insights = updated
		s.persistRefinedInsights(ctx, session.Snapshot().ID, updated)
	}
}

// persistRefinedInsights re-saves every FileInsight a refinement turn
// touched, so file_insights stays the source of truth a later resume
// rehydrates from rather than just the checkpoint's JSONB snapshot.
func (s *Scheduler) persistRefinedInsights(ctx context.Context, sessionID string, insights []model.FileInsight) {
	if s.deps.FileInsights == nil {
		return
	}
	for _, in := range insights {
		if err := s.deps.FileInsights.Save(ctx, sessionID, in); err != nil {
			slog.Warn("scheduler: refined insight persist failed", "path", in.Path, "session_id", sessionID, "error", err)
		}
	}
}

func stopCause(v quality.Verdict) string {
	switch {
	case v.Met:
		return "target_met"
	case v.CapReached:
		return "cap_reached"
	case v.NoProgress:
		return "no_progress"
	default:
		return ""
	}
}

// refineDimension dispatches the refinement agent for one lowest-scoring
// dimension and applies its patches to the matching FileInsights (spec
// §4.7: "Changes are applied to DomainInsight/FileInsight and re-scored").
func (s *Scheduler) refineDimension(ctx context.Context, dim quality.Dimension, insights []model.FileInsight) ([]model.FileInsight, error) {
	result, _, err := s.deps.Gateway.Generate(ctx, model.PhaseRefinement, refinementPrompt(dim, insights), refinementBudget, nil)
	if err != nil {
		return nil, err
	}

	patches := patchesFromResult(result)
	byPath := make(map[string]model.FileInsight, len(insights))
	for _, in := range insights {
		byPath[in.Path] = in
	}
	for _, p := range patches {
		in, ok := byPath[p.Path]
		if !ok {
			continue
		}
		applyPatch(&in, dim, p)
		byPath[in.Path] = in
	}

	out := make([]model.FileInsight, 0, len(insights))
	for _, in := range insights {
		out = append(out, byPath[in.Path])
	}
	return out, nil
}

type insightPatch struct {
	Path           string
	PurposeSummary string
	Diagram        string
	KeyInsights    []string
	CrossRefs      []string
}

func patchesFromResult(result map[string]interface{}) []insightPatch {
	raw, ok := result["updates"].([]interface{})
	if !ok {
		return nil
	}
	patches := make([]insightPatch, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		patches = append(patches, insightPatch{
			Path:           stringValue(m["path"]),
			PurposeSummary: stringValue(m["purpose_summary"]),
			Diagram:        stringValue(m["diagram"]),
			KeyInsights:    stringSlice(m["key_insights"]),
			CrossRefs:      stringSlice(m["cross_refs"]),
		})
	}
	return patches
}

func applyPatch(in *model.FileInsight, dim quality.Dimension, p insightPatch) {
	switch dim {
	case quality.DimensionDiagrams:
		if p.Diagram != "" {
			in.Diagram = p.Diagram
		}
	case quality.DimensionClarity:
		if p.PurposeSummary != "" {
			in.PurposeSummary = p.PurposeSummary
		}
	case quality.DimensionAccuracy:
		if p.CrossRefs != nil {
			in.CrossRefs = p.CrossRefs
		}
	case quality.DimensionCompleteness:
		if len(p.KeyInsights) > 0 {
			in.KeyInsights = append(in.KeyInsights, p.KeyInsights...)
		}
	}
}

func refinementPrompt(dim quality.Dimension, insights []model.FileInsight) string {
	return fmt.Sprintf("You are the refinement agent for the %s dimension, covering %d analyzed files whose score is currently lowest. Respond with a single JSON object containing an updates array of {path, purpose_summary?, diagram?, key_insights?, cross_refs?} patches.", dim, len(insights))
}
