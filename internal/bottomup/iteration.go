package bottomup

import "github.com/doculoom/engine/internal/model"

// iterationPlans implements spec §4.6's per-tier iteration phases. Leaf and
// Standard get a nil plan (single-shot, no named iteration phase); the
// final entry in each named plan is always "synthesizing".
var iterationPlans = map[model.Tier][]string{
	model.TierImportant: {"planning", "investigating", "synthesizing"},
	model.TierCore:       {"planning", "investigating", "investigating", "synthesizing"},
}

// outputTokenBudget mirrors spec §4.6's approximate total output-token
// figure per tier, split evenly across that tier's iterations for the
// per-call TALE reservation.
var outputTokenBudget = map[model.Tier]int64{
	model.TierLeaf:      500,
	model.TierStandard:  1200,
	model.TierImportant: 3000,
	model.TierCore:      5000,
}

func perCallBudget(tier model.Tier) int64 {
	total := outputTokenBudget[tier]
	plan := iterationPlans[tier]
	if len(plan) == 0 {
		return total
	}
	return total / int64(len(plan))
}
