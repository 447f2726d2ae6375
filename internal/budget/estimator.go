package budget

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/doculoom/engine/internal/model"
)

// charsPerTokenFallback is the approximate characters-per-token ratio used
// only when a real tokenizer encoding can't be loaded for the configured
// model. This is the one place this package falls back to a heuristic
// instead of a library call — grounded in the teacher's
// pkg/mcp/tokens.go EstimateTokens, which uses this same ratio throughout
// (that file has no tokenizer dependency available to it at all).
const charsPerTokenFallback = 4

// Estimator counts tokens for budget reservations, preferring tiktoken-go's
// real BPE tokenizer and falling back to a char-count heuristic only if the
// requested encoding can't be resolved (e.g. an unrecognized model name).
type Estimator struct {
	mu       sync.Mutex
	encoding *tiktoken.Tiktoken // nil if unavailable
}

// NewEstimator builds an Estimator for the given model name. modelName may
// be empty, in which case the estimator always uses the fallback heuristic.
func NewEstimator(modelName string) *Estimator {
	e := &Estimator{}
	if modelName == "" {
		return e
	}
	enc, err := tiktoken.EncodingForModel(modelName)
	if err == nil {
		e.encoding = enc
	}
	return e
}

// Count returns the estimated token count for text.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	e.mu.Lock()
	enc := e.encoding
	e.mu.Unlock()
	if enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + charsPerTokenFallback - 1) / charsPerTokenFallback
}

// perTierBaseline mirrors spec §4.6's per-tier output-token budgets, used as
// the seed for the pre-flight forecast before any real prompt text exists.
var perTierBaseline = map[model.Tier]int64{
	model.TierLeaf:      500,
	model.TierStandard:  1200,
	model.TierImportant: 3000,
	model.TierCore:      5000,
}

// TierCounts is the number of discovered files per tier, used to forecast
// Bottom-Up spend before Phase 3 starts.
type TierCounts map[model.Tier]int

// AgentCounts is the number of agents invoked per phase, used to forecast
// Characterization/Top-Down/Consolidation spend.
type AgentCounts struct {
	Characterization int // fixed at 7 per spec §4.5, kept configurable for tests
	TopDown          int // fixed at 4
	Domains          int // phase 5 domain count estimate
	RefinementTurns  int // expected refinement iterations
}

// Forecast is the pre-flight estimator's per-phase projection (spec §4.1
// "Pre-flight estimator").
type Forecast map[model.Phase]int64

// PreflightForecast produces a per-phase token forecast from file counts and
// agent counts so `generate` can refuse start-up before any token is
// spent (spec §4.1, §4.5's budget pre-check).
func PreflightForecast(tiers TierCounts, agents AgentCounts, avgPromptTokens int64) Forecast {
	f := make(Forecast, 7)

	f[model.PhaseCharacterization] = int64(agents.Characterization) * (avgPromptTokens + 800)

	var bottomUp int64
	for tier, count := range tiers {
		iterations := iterationsForTier(tier)
		bottomUp += int64(count) * int64(iterations) * (avgPromptTokens + perTierBaseline[tier])
	}
	f[model.PhaseBottomUp] = bottomUp

	f[model.PhaseTopDown] = int64(agents.TopDown) * (avgPromptTokens + 2000)
	f[model.PhaseConsolidation] = int64(agents.Domains) * (avgPromptTokens + 1500)
	f[model.PhaseRefinement] = int64(agents.RefinementTurns) * (avgPromptTokens + 1500)

	return f
}

// Total sums every phase's forecast, the number `generate` compares
// against G before start-up.
func (f Forecast) Total() int64 {
	var sum int64
	for _, v := range f {
		sum += v
	}
	return sum
}

// iterationsForTier returns the deep-research iteration count per tier
// (spec §4.6).
func iterationsForTier(t model.Tier) int {
	switch t {
	case model.TierLeaf, model.TierStandard:
		return 1
	case model.TierImportant:
		return 3
	case model.TierCore:
		return 4
	default:
		return 1
	}
}
