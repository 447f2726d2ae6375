package bottomup

import (
	"time"

	"github.com/doculoom/engine/internal/model"
)

func stringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func float64Value(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func sectionsFromResult(v interface{}) []model.Section {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	sections := make([]model.Section, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		sections = append(sections, model.Section{
			Title: stringValue(obj["title"]),
			Body:  stringValue(obj["body"]),
		})
	}
	return sections
}

func childPaths(childContext []model.FileInsight) []string {
	paths := make([]string, 0, len(childContext))
	for _, ci := range childContext {
		paths = append(paths, ci.Path)
	}
	return paths
}

// insightFromResult assembles a FileInsight from a validated generate()
// response map. result is nil-safe: a nil map (possible if an iteration
// plan somehow completes without a synthesizing turn) yields a mostly-empty
// insight rather than panicking.
func insightFromResult(file model.FileRecord, tier model.Tier, iterations []model.ResearchIteration, childContext []model.FileInsight, result map[string]interface{}) model.FileInsight {
	return model.FileInsight{
		Path:               file.Path,
		Tier:               tier,
		PurposeSummary:     stringValue(result["purpose_summary"]),
		Sections:           sectionsFromResult(result["sections"]),
		KeyInsights:        stringSlice(result["key_insights"]),
		CrossRefs:          stringSlice(result["cross_refs"]),
		HiddenAssumptions:  stringSlice(result["hidden_assumptions"]),
		ModificationRisks:  stringSlice(result["modification_risks"]),
		ResearchIterations: iterations,
		ChildContextPaths:  childPaths(childContext),
		Diagram:            stringValue(result["diagram"]),
		Confidence:         float64Value(result["confidence"]),
		AnalyzedAt:         time.Now(),
	}
}
