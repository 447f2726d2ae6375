package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doculoom/engine/internal/model"
)

type fakeCounter struct{}

func (fakeCounter) Count(text string) int { return len(text) / 4 }

func TestComputeCoverageRatio(t *testing.T) {
	files := []model.FileRecord{
		{Path: "a.go", Status: model.FileAnalyzed},
		{Path: "b.go", Status: model.FileAnalyzed},
		{Path: "c.go", Status: model.FileDiscovered},
	}
	s := Compute(files, nil, fakeCounter{})
	assert.InDelta(t, 2.0/3.0, s.Coverage, 0.0001)
}

func TestComputeAccuracyCountsOnlyValidRefs(t *testing.T) {
	insights := []model.FileInsight{
		{Path: "a.go", CrossRefs: []string{"b.go"}},
		{Path: "b.go", CrossRefs: []string{"a.go", "missing.go"}},
	}
	s := Compute(nil, insights, fakeCounter{})
	assert.InDelta(t, 2.0/3.0, s.Accuracy, 0.0001)
}

func TestComputeAccuracyNoRefsIsPerfect(t *testing.T) {
	insights := []model.FileInsight{{Path: "a.go"}}
	s := Compute(nil, insights, fakeCounter{})
	assert.Equal(t, 1.0, s.Accuracy)
}

func TestComputeDiagramsCountsOnlyValidOnes(t *testing.T) {
	insights := []model.FileInsight{
		{Path: "a.go", Diagram: "graph TD\n A --> B"},
		{Path: "b.go", Diagram: "not a diagram (unbalanced"},
		{Path: "c.go"},
	}
	s := Compute(nil, insights, fakeCounter{})
	assert.InDelta(t, 1.0/3.0, s.Diagrams, 0.0001)
}

func TestComputeClarityRewardsActionVerbAndLength(t *testing.T) {
	insights := []model.FileInsight{
		{Path: "a.go", PurposeSummary: "Validates incoming requests and rejects malformed payloads before they reach the handler"},
		{Path: "b.go", PurposeSummary: "ok"},
	}
	s := Compute(nil, insights, fakeCounter{})
	assert.Greater(t, s.Clarity, 0.0)
	assert.Less(t, s.Clarity, 1.0)
}

func TestScoreOverallUsesSpecWeights(t *testing.T) {
	s := Score{Coverage: 1, Completeness: 1, Accuracy: 1, Diagrams: 1, Clarity: 1}
	assert.InDelta(t, 1.0, s.Overall(), 0.0001)

	s2 := Score{Coverage: 0, Completeness: 1, Accuracy: 0, Diagrams: 0, Clarity: 0}
	assert.InDelta(t, 0.30, s2.Overall(), 0.0001)
}

func TestScoreLowestPicksSmallestDimension(t *testing.T) {
	s := Score{Coverage: 0.9, Completeness: 0.9, Accuracy: 0.9, Diagrams: 0.2, Clarity: 0.9}
	assert.Equal(t, DimensionDiagrams, s.Lowest())
}
