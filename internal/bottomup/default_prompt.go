package bottomup

import (
	"fmt"
	"strings"

	"github.com/doculoom/engine/internal/model"
	"github.com/doculoom/engine/internal/provider"
)

// analysisSchemaJSON is the response shape for the Planning and
// Investigating iteration calls: a purpose summary plus the insight
// fields FileInsight carries forward (spec §3). Single-shot calls use
// synthesisSchemaJSON.
const analysisSchemaJSON = `{
	"type": "object",
	"required": ["purpose_summary", "key_insights"],
	"properties": {
		"purpose_summary": {"type": "string"},
		"key_insights": {"type": "array", "items": {"type": "string"}},
		"hidden_assumptions": {"type": "array", "items": {"type": "string"}},
		"modification_risks": {"type": "array", "items": {"type": "string"}},
		"cross_refs": {"type": "array", "items": {"type": "string"}},
		"aspects_covered": {"type": "array", "items": {"type": "string"}},
		"confidence": {"type": "number"}
	}
}`

// synthesisSchemaJSON additionally accepts a mermaid diagram and labeled
// sections, produced only by a tier's final Synthesizing turn.
const synthesisSchemaJSON = `{
	"type": "object",
	"required": ["purpose_summary", "key_insights"],
	"properties": {
		"purpose_summary": {"type": "string"},
		"key_insights": {"type": "array", "items": {"type": "string"}},
		"hidden_assumptions": {"type": "array", "items": {"type": "string"}},
		"modification_risks": {"type": "array", "items": {"type": "string"}},
		"cross_refs": {"type": "array", "items": {"type": "string"}},
		"aspects_covered": {"type": "array", "items": {"type": "string"}},
		"confidence": {"type": "number"},
		"diagram": {"type": "string"},
		"sections": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "body"],
				"properties": {
					"title": {"type": "string"},
					"body":  {"type": "string"}
				}
			}
		}
	}
}`

// DefaultPromptBuilder renders a plain-text prompt per tier/iteration and
// validates responses against one of two compiled schemas. It is a working
// default, not a mandated implementation — callers may supply their own
// PromptBuilder to change prompt wording without touching Analyzer.
type DefaultPromptBuilder struct {
	analysisSchema  *provider.Schema
	synthesisSchema *provider.Schema
}

// NewDefaultPromptBuilder compiles both response schemas once.
func NewDefaultPromptBuilder() (*DefaultPromptBuilder, error) {
	analysisSchema, err := provider.CompileSchema("bottomup-analysis.json", []byte(analysisSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("bottomup: compile analysis schema: %w", err)
	}
	synthesisSchema, err := provider.CompileSchema("bottomup-synthesis.json", []byte(synthesisSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("bottomup: compile synthesis schema: %w", err)
	}
	return &DefaultPromptBuilder{analysisSchema: analysisSchema, synthesisSchema: synthesisSchema}, nil
}

// Schema returns the synthesis schema (which additionally accepts a
// diagram and labeled sections) for a tier's final Synthesizing turn, or
// for Leaf/Standard's single, terminal pass. Every other iteration turn
// (Planning, Investigating) uses the narrower analysis schema.
func (b *DefaultPromptBuilder) Schema(tier model.Tier, iterationPhase string) *provider.Schema {
	isTerminal := iterationPhase == "synthesizing" || iterationPhase == ""
	if isTerminal {
		return b.synthesisSchema
	}
	return b.analysisSchema
}

func (b *DefaultPromptBuilder) Build(bc BuildContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the file %s (tier: %s).\n", bc.File.Path, bc.Tier)

	if bc.Profile != nil && bc.Profile.Purposes != nil {
		if purpose, ok := bc.Profile.Purposes[bc.File.Path]; ok && purpose != "" {
			fmt.Fprintf(&sb, "Project-level characterization already noted this file's purpose as: %s\n", purpose)
		}
	}

	if bc.IterationPhase != "" {
		fmt.Fprintf(&sb, "This is the %q turn (iteration %d) of a multi-turn deep analysis.\n", bc.IterationPhase, bc.IterationIndex+1)
	}

	if len(bc.AspectsCovered) > 0 {
		sb.WriteString("Aspects already covered by prior turns (do not repeat them, find novel ones):\n")
		for _, a := range bc.AspectsCovered {
			fmt.Fprintf(&sb, "- %s\n", a)
		}
	}

	if len(bc.PriorIterations) > 0 {
		sb.WriteString("Prior iteration outputs:\n")
		for _, it := range bc.PriorIterations {
			fmt.Fprintf(&sb, "[%s] %s\n", it.Phase, it.Output)
		}
	}

	if len(bc.ChildContext) > 0 {
		sb.WriteString("Context from lower-tier files already analyzed:\n")
		for _, ci := range bc.ChildContext {
			fmt.Fprintf(&sb, "- %s: %s\n", ci.Path, ci.PurposeSummary)
		}
	}

	if bc.IterationPhase == "synthesizing" {
		sb.WriteString("This is the final Synthesizing turn: cross-reference every prior iteration and the child-context bundle above, and produce the complete insight record, including a mermaid diagram if one would clarify the file's role.\n")
	}

	sb.WriteString("Respond with JSON matching the provided schema only.\n")
	return sb.String()
}
