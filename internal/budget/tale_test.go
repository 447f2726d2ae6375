package budget

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doculoom/engine/internal/model"
)

func newTestTALE() *TALE {
	partitions := map[model.Phase]float64{
		model.PhaseCharacterization: 0.05,
		model.PhaseBottomUp:         0.50,
		model.PhaseTopDown:          0.10,
		model.PhaseConsolidation:    0.20,
		model.PhaseRefinement:       0.15,
	}
	return New(1_000_000, 0.05, partitions, model.EnforcementHard, nil)
}

// TestReallocation is scenario S1 from spec §8: global=1,000,000,
// characterization uses 10,000/50,000, then reallocate(1->3).
func TestReallocation(t *testing.T) {
	tale := newTestTALE()

	h, err := tale.Reserve(model.PhaseCharacterization, 10_000)
	require.NoError(t, err)
	require.NoError(t, tale.Commit(h, 6_000, 4_000))

	require.NoError(t, tale.MarkTerminal(model.PhaseCharacterization))
	moved, err := tale.Reallocate(model.PhaseCharacterization, model.PhaseBottomUp)
	require.NoError(t, err)
	assert.Equal(t, int64(40_000), moved) // 50,000 limit - 10,000 consumed

	remaining, err := tale.Remaining(model.PhaseCharacterization)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	snap := tale.Snapshot()
	assert.Equal(t, int64(540_000), snap.Phases[model.PhaseBottomUp].Limit)
	assert.Equal(t, int64(10_000), snap.GlobalConsumed)
}

func TestReserveHardModeRejectsOverspend(t *testing.T) {
	tale := newTestTALE()
	_, err := tale.Reserve(model.PhaseCharacterization, 100_000)
	require.ErrorIs(t, err, ErrPhaseExceeded)

	remaining, err := tale.Remaining(model.PhaseCharacterization)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), remaining) // untouched by the rejected reservation
}

func TestReallocateRequiresTerminalSource(t *testing.T) {
	tale := newTestTALE()
	_, err := tale.Reallocate(model.PhaseCharacterization, model.PhaseBottomUp)
	require.ErrorIs(t, err, ErrPhaseNotTerminal)
}

func TestReallocateIsIdempotentOnceDrained(t *testing.T) {
	tale := newTestTALE()
	require.NoError(t, tale.MarkTerminal(model.PhaseCharacterization))

	first, err := tale.Reallocate(model.PhaseCharacterization, model.PhaseBottomUp)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), first)

	second, err := tale.Reallocate(model.PhaseCharacterization, model.PhaseBottomUp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second)
}

func TestThresholdEventsFireOnce(t *testing.T) {
	var mu sync.Mutex
	var events []ThresholdEvent
	partitions := map[model.Phase]float64{model.PhaseCharacterization: 1.0}
	tale := New(100_000, 0, partitions, model.EnforcementSoft, func(e ThresholdEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})

	_, err := tale.Reserve(model.PhaseCharacterization, 76_000)
	require.NoError(t, err)
	_, err = tale.Reserve(model.PhaseCharacterization, 1_000)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1) // warning fires once, not re-fired by the second reserve
	assert.Equal(t, ThresholdWarning, events[0].Level)
}

func TestConcurrentReserveNeverExceedsLimit(t *testing.T) {
	tale := newTestTALE()
	var wg sync.WaitGroup
	successes := make(chan int64, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h, err := tale.Reserve(model.PhaseCharacterization, 1_000); err == nil {
				successes <- h.Estimated
			}
		}()
	}
	wg.Wait()
	close(successes)

	var total int64
	for v := range successes {
		total += v
	}
	assert.LessOrEqual(t, total, int64(50_000))
}

func TestEstimatorFallsBackWithoutEncoding(t *testing.T) {
	e := NewEstimator("")
	assert.Equal(t, 3, e.Count("abcdefghij")) // 10 chars / 4 per token, rounded up
}
