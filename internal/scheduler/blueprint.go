package scheduler

import (
	"context"
	"fmt"

	"github.com/doculoom/engine/internal/model"
)

const blueprintBudget = 1500

// hierarchyDepthByScale is spec §4.5 Phase 5.5's exact table: "hierarchy
// depth selected by scale (small=1, medium=2, large=3, enterprise=4)".
var hierarchyDepthByScale = map[model.Scale]int{
	model.ScaleSmall:      1,
	model.ScaleMedium:     2,
	model.ScaleLarge:      3,
	model.ScaleEnterprise: 4,
}

// RunBlueprint implements Phase 5.5 (spec §4.5): a single agent produces a
// DocumentationBlueprint from the ProjectProfile and DomainInsight set;
// hierarchy depth is fixed by scale, not left to the agent.
func (s *Scheduler) RunBlueprint(ctx context.Context, scale model.Scale, profile *model.ProjectProfile, domains []model.DomainInsight) (*model.DocumentationBlueprint, error) {
	result, _, err := s.deps.Gateway.Generate(ctx, model.PhaseBlueprint, blueprintPrompt(profile, domains), blueprintBudget, nil)
	if err != nil {
		return nil, fmt.Errorf("blueprint: %w", err)
	}

	perDomain := make(map[string][]string, len(domains))
	raw := stringSliceMap(result["per_domain_structure"])
	for _, d := range domains {
		if sections, ok := raw[d.Label]; ok {
			perDomain[d.Label] = sections
		} else {
			perDomain[d.Label] = []string{"overview"}
		}
	}

	return &model.DocumentationBlueprint{
		HierarchyDepth:     hierarchyDepthByScale[scale],
		BaseSections:       stringSlice(result["base_sections"]),
		PerDomainStructure: perDomain,
	}, nil
}

func blueprintPrompt(profile *model.ProjectProfile, domains []model.DomainInsight) string {
	labels := make([]string, 0, len(domains))
	for _, d := range domains {
		labels = append(labels, d.Label)
	}
	prompt := fmt.Sprintf("You are the blueprint agent. Produce a documentation hierarchy plan for domains %v.", labels)
	if profile != nil {
		prompt += fmt.Sprintf(" The project's organization style is %s.", profile.OrganizationStyle)
	}
	return prompt
}
