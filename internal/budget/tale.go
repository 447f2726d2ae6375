// Package budget implements TALE — Token Allocation for LLM Efficiency — the
// global token budget partitioned across phases with dynamic forward
// reallocation (spec §4.1). Every counter is a sync/atomic int64; there is
// no lock on the hot path, matching spec §5's "BudgetState ... atomic
// compare-and-swap; no lock."
package budget

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/doculoom/engine/internal/model"
)

// Errors returned by TALE operations (spec §7).
var (
	ErrPhaseExceeded  = errors.New("budget: phase envelope exceeded")
	ErrGlobalExceeded = errors.New("budget: global budget exhausted")
	ErrUnknownPhase   = errors.New("budget: unknown phase")
	ErrPhaseNotTerminal = errors.New("budget: source phase has not reached a terminal state")
)

// ThresholdLevel names the warning tiers spec §4.1 requires.
type ThresholdLevel string

const (
	ThresholdWarning  ThresholdLevel = "warning"  // 75% per-phase utilization
	ThresholdCritical ThresholdLevel = "critical" // 90% per-phase utilization
)

const (
	warningUtilization  = 0.75
	criticalUtilization = 0.90
)

// ThresholdEvent is emitted when a phase crosses a utilization threshold.
type ThresholdEvent struct {
	Phase   model.Phase
	Level   ThresholdLevel
	Used    int64
	Limit   int64
}

// phaseCounter holds one phase's atomic limit/consumed pair plus whether the
// phase has been marked terminal (all remaining allowance transferred away
// by reallocate, spec §4.1 "source phase is immediately marked fully
// consumed").
type phaseCounter struct {
	limit    atomic.Int64
	consumed atomic.Int64
	terminal atomic.Bool
	warned   atomic.Bool // 75% event already emitted this phase
	critical atomic.Bool // 90% event already emitted this phase
}

// Handle is returned by Reserve and must be passed to Commit exactly once.
type Handle struct {
	Phase     model.Phase
	Estimated int64
}

// TALE is the token budget for one session.
type TALE struct {
	mode  model.EnforcementMode
	onThreshold func(ThresholdEvent)

	global         atomic.Int64 // full global budget G; phase limits partition this directly
	globalConsumed atomic.Int64
	reserve        atomic.Int64 // G * reserveFraction, reported by Snapshot; no phase's limit includes it and nothing draws from it
	reserveConsumed atomic.Int64

	mu     sync.RWMutex // guards the phases map's structure only (not its counters)
	phases map[model.Phase]*phaseCounter
}

// New builds a TALE from global budget G, a reserve fraction, an initial
// phase partitioning (fractions of G), and an enforcement mode. The reserve
// amount (G * reserveFraction) is recorded and reported by Snapshot, but no
// operation draws from it, and Reserve checks global consumption against
// the full G. Per the worked example in spec §8 scenario S1, phase fractions
// are taken against the full G, not G-reserve. onThreshold may be nil.
func New(globalBudget int64, reserveFraction float64, partitions map[model.Phase]float64, mode model.EnforcementMode, onThreshold func(ThresholdEvent)) *TALE {
	reserve := int64(float64(globalBudget) * reserveFraction)

	t := &TALE{
		mode:        mode,
		onThreshold: onThreshold,
		phases:      make(map[model.Phase]*phaseCounter, len(partitions)),
	}
	t.global.Store(globalBudget)
	t.reserve.Store(reserve)

	for phase, frac := range partitions {
		pc := &phaseCounter{}
		pc.limit.Store(int64(float64(globalBudget) * frac))
		t.phases[phase] = pc
	}
	return t
}

func (t *TALE) counter(phase model.Phase) (*phaseCounter, error) {
	t.mu.RLock()
	pc, ok := t.phases[phase]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
	return pc, nil
}

// Reserve optimistically deducts estimatedTokens from phase's envelope
// (spec §4.1 reserve). In hard mode a reservation that would push the phase
// over its limit fails with ErrPhaseExceeded; in soft mode it is logged by
// the caller (via onThreshold) and drawn from global instead, up to global
// exhaustion.
func (t *TALE) Reserve(phase model.Phase, estimatedTokens int64) (*Handle, error) {
	pc, err := t.counter(phase)
	if err != nil {
		return nil, err
	}

	newConsumed := pc.consumed.Add(estimatedTokens)
	if newConsumed > pc.limit.Load() {
		if t.mode == model.EnforcementHard {
			pc.consumed.Add(-estimatedTokens)
			return nil, fmt.Errorf("%w: phase %s at %d/%d", ErrPhaseExceeded, phase, newConsumed, pc.limit.Load())
		}
		// Soft mode: draw the overage from global.
	}

	if t.globalConsumed.Add(estimatedTokens) > t.global.Load() {
		t.globalConsumed.Add(-estimatedTokens)
		pc.consumed.Add(-estimatedTokens)
		return nil, fmt.Errorf("%w: requested %d, %d remaining", ErrGlobalExceeded, estimatedTokens, t.global.Load()-t.globalConsumed.Load())
	}

	t.checkThresholds(phase, pc)
	return &Handle{Phase: phase, Estimated: estimatedTokens}, nil
}

// Commit reconciles a reservation against the actual token usage, returning
// any surplus to the phase envelope (spec §4.1 commit).
func (t *TALE) Commit(h *Handle, actualInput, actualOutput int64) error {
	pc, err := t.counter(h.Phase)
	if err != nil {
		return err
	}
	actual := actualInput + actualOutput
	delta := actual - h.Estimated
	pc.consumed.Add(delta)
	t.globalConsumed.Add(delta)
	t.checkThresholds(h.Phase, pc)
	return nil
}

// Reallocate transfers the remaining allowance of a terminal source phase to
// a target phase's limit, atomically (spec §4.1 reallocate). The source is
// marked fully consumed for the transferred amount so it can never be
// double-spent (spec §8 property 5).
func (t *TALE) Reallocate(from, to model.Phase) (int64, error) {
	src, err := t.counter(from)
	if err != nil {
		return 0, err
	}
	dst, err := t.counter(to)
	if err != nil {
		return 0, err
	}
	if !src.terminal.Load() {
		return 0, fmt.Errorf("%w: %s", ErrPhaseNotTerminal, from)
	}

	for {
		limit := src.limit.Load()
		consumed := src.consumed.Load()
		remaining := limit - consumed
		if remaining <= 0 {
			return 0, nil
		}
		if !src.consumed.CompareAndSwap(consumed, limit) {
			continue // lost race, retry with fresh values
		}
		dst.limit.Add(remaining)
		return remaining, nil
	}
}

// MarkTerminal marks a phase as having reached its terminal state, making it
// eligible as a Reallocate source.
func (t *TALE) MarkTerminal(phase model.Phase) error {
	pc, err := t.counter(phase)
	if err != nil {
		return err
	}
	pc.terminal.Store(true)
	return nil
}

// Remaining returns a phase's unspent allowance.
func (t *TALE) Remaining(phase model.Phase) (int64, error) {
	pc, err := t.counter(phase)
	if err != nil {
		return 0, err
	}
	r := pc.limit.Load() - pc.consumed.Load()
	if r < 0 {
		return 0, nil
	}
	return r, nil
}

// Utilization returns consumed/limit in [0,1] for a phase.
func (t *TALE) Utilization(phase model.Phase) (float64, error) {
	pc, err := t.counter(phase)
	if err != nil {
		return 0, err
	}
	limit := pc.limit.Load()
	if limit <= 0 {
		return 1, nil
	}
	return float64(pc.consumed.Load()) / float64(limit), nil
}

// Snapshot returns the current BudgetState for checkpointing/status.
func (t *TALE) Snapshot() model.BudgetState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	phases := make(map[model.Phase]*model.PhaseBudget, len(t.phases))
	for phase, pc := range t.phases {
		phases[phase] = &model.PhaseBudget{
			Phase:    phase,
			Limit:    pc.limit.Load(),
			Consumed: pc.consumed.Load(),
		}
	}
	return model.BudgetState{
		Global:          t.global.Load(),
		GlobalConsumed:  t.globalConsumed.Load(),
		ReserveBuffer:   t.reserve.Load(),
		ReserveConsumed: t.reserveConsumed.Load(),
		Mode:            t.mode,
		Phases:          phases,
	}
}

func (t *TALE) checkThresholds(phase model.Phase, pc *phaseCounter) {
	if t.onThreshold == nil {
		return
	}
	limit := pc.limit.Load()
	if limit <= 0 {
		return
	}
	consumed := pc.consumed.Load()
	util := float64(consumed) / float64(limit)

	if util >= criticalUtilization && pc.critical.CompareAndSwap(false, true) {
		t.onThreshold(ThresholdEvent{Phase: phase, Level: ThresholdCritical, Used: consumed, Limit: limit})
		return
	}
	if util >= warningUtilization && pc.warned.CompareAndSwap(false, true) {
		t.onThreshold(ThresholdEvent{Phase: phase, Level: ThresholdWarning, Used: consumed, Limit: limit})
	}
}
