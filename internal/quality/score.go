package quality

import (
	"strings"

	"github.com/doculoom/engine/internal/model"
	"github.com/doculoom/engine/internal/provider"
)

const (
	weightCoverage     = 0.25
	weightCompleteness = 0.30
	weightAccuracy     = 0.15
	weightDiagrams     = 0.15
	weightClarity      = 0.15
)

// Dimension names the five scored axes spec §4.7 defines, used to report
// which dimension is lowest for refinement selection.
type Dimension string

const (
	DimensionCoverage     Dimension = "coverage"
	DimensionCompleteness Dimension = "completeness"
	DimensionAccuracy     Dimension = "accuracy"
	DimensionDiagrams     Dimension = "diagrams"
	DimensionClarity      Dimension = "clarity"
)

// Score is the full breakdown behind one Overall scalar.
type Score struct {
	Coverage     float64
	Completeness float64
	Accuracy     float64
	Diagrams     float64
	Clarity      float64
}

// Overall computes the weighted scalar spec §4.7 defines.
func (s Score) Overall() float64 {
	return weightCoverage*s.Coverage +
		weightCompleteness*s.Completeness +
		weightAccuracy*s.Accuracy +
		weightDiagrams*s.Diagrams +
		weightClarity*s.Clarity
}

// Lowest returns the dimension with the smallest score, the refinement
// selection rule spec §4.7 names ("the lowest-scoring dimension identifies
// which refinement agent runs").
func (s Score) Lowest() Dimension {
	lowest := DimensionCoverage
	lowestVal := s.Coverage
	for dim, val := range map[Dimension]float64{
		DimensionCompleteness: s.Completeness,
		DimensionAccuracy:     s.Accuracy,
		DimensionDiagrams:     s.Diagrams,
		DimensionClarity:      s.Clarity,
	} {
		if val < lowestVal {
			lowest, lowestVal = dim, val
		}
	}
	return lowest
}

// TokenCounter is the one-method interface Completeness needs; satisfied by
// *internal/budget.Estimator without importing it (same pattern as
// internal/registry.TokenCounter).
type TokenCounter interface {
	Count(text string) int
}

// Compute implements spec §4.7's five dimension formulas over one
// generation's file set and the insights produced so far.
func Compute(files []model.FileRecord, insights []model.FileInsight, counter TokenCounter) Score {
	return Score{
		Coverage:     coverage(files, insights),
		Completeness: completeness(insights, counter),
		Accuracy:     accuracy(insights),
		Diagrams:     diagrams(insights),
		Clarity:      clarity(insights),
	}
}

func coverage(files []model.FileRecord, insights []model.FileInsight) float64 {
	if len(files) == 0 {
		return 1
	}
	analyzed := 0
	for _, f := range files {
		if f.Status == model.FileAnalyzed {
			analyzed++
		}
	}
	return float64(analyzed) / float64(len(files))
}

func completeness(insights []model.FileInsight, counter TokenCounter) float64 {
	if len(insights) == 0 {
		return 0
	}
	total := 0
	for _, in := range insights {
		total += counter.Count(insightText(in))
	}
	mean := float64(total) / float64(len(insights))
	return clamp(mean/1000, 0, 1)
}

func accuracy(insights []model.FileInsight) float64 {
	known := make(map[string]struct{}, len(insights))
	for _, in := range insights {
		known[in.Path] = struct{}{}
	}

	total, valid := 0, 0
	for _, in := range insights {
		for _, ref := range in.CrossRefs {
			total++
			if _, ok := known[ref]; ok {
				valid++
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(valid) / float64(total)
}

func diagrams(insights []model.FileInsight) float64 {
	if len(insights) == 0 {
		return 0
	}
	valid := 0
	for _, in := range insights {
		if in.Diagram != "" && provider.IsValidMermaidDiagram(in.Diagram) {
			valid++
		}
	}
	return float64(valid) / float64(len(insights))
}

func clarity(insights []model.FileInsight) float64 {
	if len(insights) == 0 {
		return 0
	}
	total := 0.0
	for _, in := range insights {
		total += purposeScore(in)
	}
	return total / float64(len(insights))
}

// actionVerbs is spec §4.7's "curated list" of imperative/action verbs the
// clarity dimension rewards a purpose summary for containing.
var actionVerbs = []string{
	"handles", "validates", "computes", "manages", "orchestrates",
	"processes", "implements", "provides", "parses", "generates",
	"coordinates", "enforces", "tracks", "resolves", "dispatches",
	"transforms", "persists", "exposes", "configures", "renders",
}

func purposeScore(in model.FileInsight) float64 {
	words := in.WordCountPurpose()
	var lengthScore float64
	switch {
	case words >= 5 && words <= 30:
		lengthScore = 1.0
	case words > 30:
		lengthScore = 0.7
	default:
		lengthScore = float64(words) / 5.0
	}

	verbBonus := 0.0
	lower := strings.ToLower(in.PurposeSummary)
	for _, v := range actionVerbs {
		if strings.Contains(lower, v) {
			verbBonus = 0.2
			break
		}
	}

	return clampMax(0.8*lengthScore+verbBonus, 1.0)
}

func insightText(in model.FileInsight) string {
	var sb strings.Builder
	sb.WriteString(in.PurposeSummary)
	for _, k := range in.KeyInsights {
		sb.WriteString(" ")
		sb.WriteString(k)
	}
	for _, s := range in.Sections {
		sb.WriteString(" ")
		sb.WriteString(s.Body)
	}
	return sb.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampMax(v, hi float64) float64 {
	if v > hi {
		return hi
	}
	return v
}
