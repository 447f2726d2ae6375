package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doculoom/engine/internal/model"
)

func TestPreflightForecastWeightsCoreFilesHeavier(t *testing.T) {
	tiers := TierCounts{
		model.TierLeaf: 10,
		model.TierCore: 10,
	}
	agents := AgentCounts{Characterization: 7, TopDown: 4, Domains: 5, RefinementTurns: 2}

	f := PreflightForecast(tiers, agents, 1000)

	// Core files iterate 4x per spec §4.6 against leaf's 1x, and carry a
	// larger per-tier output baseline, so bottom-up spend is dominated by
	// the core count even though tier counts are equal.
	assert.Greater(t, f[model.PhaseBottomUp], int64(0))
	leafSpend := int64(10) * 1 * (1000 + 500)
	coreSpend := int64(10) * 4 * (1000 + 5000)
	assert.Greater(t, coreSpend, leafSpend)
	assert.Equal(t, leafSpend+coreSpend, f[model.PhaseBottomUp])
	assert.Equal(t, int64(7)*(1000+800), f[model.PhaseCharacterization])
	assert.Equal(t, int64(4)*(1000+2000), f[model.PhaseTopDown])
}

func TestPreflightForecastTotalSumsAllPhases(t *testing.T) {
	tiers := TierCounts{model.TierStandard: 3}
	agents := AgentCounts{Characterization: 7, TopDown: 4, Domains: 2, RefinementTurns: 1}
	f := PreflightForecast(tiers, agents, 500)

	var want int64
	for _, v := range f {
		want += v
	}
	assert.Equal(t, want, f.Total())
}

func TestEstimatorCountsRealEncodingWhenAvailable(t *testing.T) {
	e := NewEstimator("gpt-4")
	n := e.Count("hello world, this is a short passage of text")
	assert.Greater(t, n, 0)
}
