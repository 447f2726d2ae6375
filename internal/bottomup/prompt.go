package bottomup

import (
	"github.com/doculoom/engine/internal/model"
	"github.com/doculoom/engine/internal/provider"
)

// BuildContext is everything a prompt body needs to describe one
// generate() call for one file at one iteration. Spec §1 puts "the prompt
// bodies and output schemas used by each agent" out of the core's scope —
// PromptBuilder is that pluggable boundary; Analyzer only knows how many
// iterations a tier gets and what to do with their outputs.
type BuildContext struct {
	File            model.FileRecord
	Tier            model.Tier
	Profile         *model.ProjectProfile
	IterationPhase  string // "", "planning", "investigating", "synthesizing"
	IterationIndex  int    // 0-based within this file's iteration plan
	PriorIterations []model.ResearchIteration
	ChildContext    []model.FileInsight
	AspectsCovered  []string
}

// PromptBuilder constructs the text sent to the Provider Gateway and the
// schema its response must satisfy. Both are pluggable per spec §1; this
// package ships DefaultPromptBuilder as a working default.
type PromptBuilder interface {
	Build(bc BuildContext) string
	Schema(tier model.Tier, iterationPhase string) *provider.Schema
}
