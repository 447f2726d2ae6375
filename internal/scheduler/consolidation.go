package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doculoom/engine/internal/model"
)

const (
	groupingBudget  = 3000
	synthesisBudget = 4000

	// gapWordThreshold and friends are spec §4.5 Phase 5's gap-detection
	// thresholds ("<100 words of content, no diagrams, or no cross-links").
	gapWordThreshold = 100
)

// domainCapByScale bounds how many domains the grouper may produce (spec
// §4.5 Phase 5: "bounded in count by scale"). The spec doesn't name exact
// numbers; this mirrors the blueprint's hierarchy-depth-by-scale shape
// (small..enterprise growing headroom) — see DESIGN.md.
var domainCapByScale = map[model.Scale]int{
	model.ScaleSmall:      4,
	model.ScaleMedium:     8,
	model.ScaleLarge:      14,
	model.ScaleEnterprise: 24,
}

// RunConsolidation implements Phase 5 (spec §4.5): a domain grouper
// partitions FileInsight[] into semantic domains bounded by scale, then
// per-domain synthesis runs in parallel up to ConsolidationDomains; gap
// detection flags thin domains as refinement seeds.
func (s *Scheduler) RunConsolidation(ctx context.Context, sessionID string, scale model.Scale, insights []model.FileInsight) ([]model.DomainInsight, error) {
	domainCap := domainCapByScale[scale]
	if domainCap == 0 {
		domainCap = domainCapByScale[model.ScaleMedium]
	}

	grouping, err := s.deps.Gateway.Generate(ctx, model.PhaseConsolidation, groupingPrompt(insights, domainCap), groupingBudget, nil)
	if err != nil {
		return nil, fmt.Errorf("consolidation: grouping: %w", err)
	}

	labels := stringSlice(grouping["domain_labels"])
	membership := stringSliceMap(grouping["domain_members"])
	if len(labels) > domainCap {
		labels = labels[:domainCap]
	}

	specs := make([]agentSpec, 0, len(labels))
	for _, label := range labels {
		specs = append(specs, agentSpec{
			Name:            label,
			Prompt:          synthesisPrompt(label, membership[label], insights),
			EstimatedTokens: synthesisBudget,
		})
	}

	results, err := runAgents(ctx, s.deps.Gateway, model.PhaseConsolidation, s.deps.Parallelism.ConsolidationDomains, specs)
	if err != nil {
		return nil, fmt.Errorf("consolidation: synthesis: %w", err)
	}

	domains := make([]model.DomainInsight, 0, len(labels))
	for _, label := range labels {
		out := results[label]
		domains = append(domains, domainInsightFromResult(label, membership[label], out))
	}

	if s.deps.DomainInsights != nil {
		if err := s.deps.DomainInsights.SaveAll(ctx, sessionID, domains); err != nil {
			slog.Warn("scheduler: domain insight persist failed", "session_id", sessionID, "error", err)
		}
	}

	return domains, nil
}

// DetectGaps implements Phase 5's gap detection: a domain with under
// gapWordThreshold words of content, no diagram, or no cross-links is a
// refinement seed.
func DetectGaps(domains []model.DomainInsight) []model.DomainInsight {
	var gaps []model.DomainInsight
	for _, d := range domains {
		if d.WordCount() < gapWordThreshold || !d.HasDiagram || d.CrossLinkCount == 0 {
			gaps = append(gaps, d)
		}
	}
	return gaps
}

func groupingPrompt(insights []model.FileInsight, cap int) string {
	return fmt.Sprintf("You are the domain grouper. Partition %d analyzed files into at most %d semantic domains with descriptive labels. Respond with a single JSON object containing domain_labels and domain_members.", len(insights), cap)
}

func synthesisPrompt(label string, members []string, insights []model.FileInsight) string {
	return fmt.Sprintf("You are the domain synthesis agent for %q, covering %d member files out of %d analyzed. Produce a synthesized documentation section, cross-referencing related domains where relevant. Respond with a single JSON object.", label, len(members), len(insights))
}

func domainInsightFromResult(label string, members []string, result map[string]interface{}) model.DomainInsight {
	sections := make([]model.Section, 0)
	if raw, ok := result["sections"].([]interface{}); ok {
		for _, item := range raw {
			sm, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			sections = append(sections, model.Section{Title: stringValue(sm["title"]), Body: stringValue(sm["body"])})
		}
	}
	diagram := stringValue(result["diagram"])
	related := stringSlice(result["related_domains"])

	return model.DomainInsight{
		Label:           label,
		Description:     stringValue(result["description"]),
		MemberFilePaths: members,
		SynthesizedBody: sections,
		RelatedDomains:  related,
		HasDiagram:      diagram != "",
		CrossLinkCount:  len(related),
	}
}
