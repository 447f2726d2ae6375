package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doculoom/engine/internal/model"
)

func TestControllerStopsWhenTargetMet(t *testing.T) {
	c := NewController(model.ModeFast, model.ScaleSmall) // target 0.60
	files := []model.FileRecord{{Path: "a.go", Status: model.FileAnalyzed}}
	insights := []model.FileInsight{
		{Path: "a.go", PurposeSummary: "Handles configuration loading and validates every field before startup",
			CrossRefs: nil, Diagram: "graph TD\n A --> B"},
	}
	v := c.Evaluate(1, files, insights, fakeCounter{})
	assert.True(t, v.Met)
	assert.False(t, v.Continue)
}

func TestControllerContinuesAndPicksLowestDimension(t *testing.T) {
	c := NewController(model.ModeDeep, model.ScaleEnterprise) // target 0.95, cap 8
	files := []model.FileRecord{
		{Path: "a.go", Status: model.FileAnalyzed},
		{Path: "b.go", Status: model.FileDiscovered},
	}
	insights := []model.FileInsight{{Path: "a.go", PurposeSummary: "ok"}}

	v := c.Evaluate(1, files, insights, fakeCounter{})
	require.True(t, v.Continue)
	assert.False(t, v.Met)
	assert.NotEmpty(t, v.NextFocus)
}

func TestControllerStopsAtIterationCap(t *testing.T) {
	c := NewController(model.ModeFast, model.ScaleSmall) // cap 1
	files := []model.FileRecord{{Path: "a.go", Status: model.FileDiscovered}}
	insights := []model.FileInsight{}

	v := c.Evaluate(1, files, insights, fakeCounter{})
	assert.True(t, v.CapReached)
	assert.False(t, v.Continue)
}

func TestControllerStopsOnNoProgress(t *testing.T) {
	c := NewController(model.ModeDeep, model.ScaleEnterprise) // target 0.95, cap 8
	files := []model.FileRecord{{Path: "a.go", Status: model.FileAnalyzed}}
	insights := []model.FileInsight{{Path: "a.go", PurposeSummary: "partial"}}

	first := c.Evaluate(1, files, insights, fakeCounter{})
	require.True(t, first.Continue)

	second := c.Evaluate(2, files, insights, fakeCounter{})
	assert.True(t, second.NoProgress)
	assert.False(t, second.Continue)
}
