// Package model holds the data types shared across the pipeline: sessions,
// file records, agent outputs, and the insight documents each phase produces.
package model

import (
	"sync"
	"time"
)

// Mode selects how aggressively the pipeline analyzes a project.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeStandard Mode = "standard"
	ModeDeep     Mode = "deep"
)

// Scale buckets a project by size, driving iteration caps and blueprint depth.
type Scale string

const (
	ScaleSmall      Scale = "small"
	ScaleMedium     Scale = "medium"
	ScaleLarge      Scale = "large"
	ScaleEnterprise Scale = "enterprise"
)

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Phase identifies a pipeline stage. PhaseBlueprint (5.5) is tracked
// distinctly from PhaseConsolidation (5) per the spec's resolution of the
// "5 vs 6 phases" ambiguity: the
// blueprint step gets its own checkpoint slot.
type Phase string

const (
	PhaseCharacterization Phase = "characterization"
	PhaseDiscovery        Phase = "discovery"
	PhaseBottomUp         Phase = "bottom_up"
	PhaseTopDown          Phase = "top_down"
	PhaseConsolidation    Phase = "consolidation"
	PhaseBlueprint        Phase = "blueprint" // phase 5.5
	PhaseRefinement       Phase = "refinement"
)

// PhaseOrder is the strict sequential order phases execute in. The scheduler
// never reorders this; see spec §9 "Open question" on phase numbering.
var PhaseOrder = []Phase{
	PhaseCharacterization,
	PhaseDiscovery,
	PhaseBottomUp,
	PhaseTopDown,
	PhaseConsolidation,
	PhaseBlueprint,
	PhaseRefinement,
}

// Session is the top-level unit of work: one documentation run over one
// project root. Mutation rights belong exclusively to the scheduler (spec §3
// Ownership); callers elsewhere should treat a *Session as read-only.
type Session struct {
	ID                string
	ProjectRoot       string
	Status            SessionStatus
	CurrentPhase      Phase
	Mode              Mode
	Scale             Scale
	QualityTarget     float64
	QualityHistory    []QualityPoint
	RefinementTurn    int
	LastError         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time

	mu sync.RWMutex
}

// QualityPoint is one recorded quality score at the end of a refinement turn.
type QualityPoint struct {
	Turn      int
	Score     float64
	At        time.Time
	StopCause string // empty until refinement stops; e.g. "target_met", "cap_reached", "no_progress"
}

// NewSession creates a pending session for the given project root.
func NewSession(id, projectRoot string, mode Mode, scale Scale, qualityTarget float64) *Session {
	now := time.Now()
	return &Session{
		ID:            id,
		ProjectRoot:   projectRoot,
		Status:        SessionPending,
		CurrentPhase:  PhaseCharacterization,
		Mode:          mode,
		Scale:         scale,
		QualityTarget: qualityTarget,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetPhase advances the session's current phase. The caller (scheduler) is
// responsible for ensuring phases only move forward per spec §3 invariant
// "last_completed_phase monotonically increases".
func (s *Session) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentPhase = p
	s.UpdatedAt = time.Now()
}

// SetStatus updates session status.
func (s *Session) SetStatus(status SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	s.UpdatedAt = time.Now()
	if status == SessionCompleted || status == SessionFailed {
		now := time.Now()
		s.CompletedAt = &now
	}
}

// SetError records a fatal error and marks the session failed.
func (s *Session) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastError = err.Error()
	s.Status = SessionFailed
	s.UpdatedAt = time.Now()
}

// RecordQuality appends a refinement-turn quality score.
func (s *Session) RecordQuality(turn int, score float64, stopCause string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QualityHistory = append(s.QualityHistory, QualityPoint{
		Turn: turn, Score: score, At: time.Now(), StopCause: stopCause,
	})
	s.RefinementTurn = turn
	s.UpdatedAt = time.Now()
}

// Snapshot returns a copy safe to read without holding the session's lock.
func (s *Session) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		ID:             s.ID,
		ProjectRoot:    s.ProjectRoot,
		Status:         s.Status,
		CurrentPhase:   s.CurrentPhase,
		Mode:           s.Mode,
		Scale:          s.Scale,
		QualityTarget:  s.QualityTarget,
		QualityHistory: append([]QualityPoint(nil), s.QualityHistory...),
		RefinementTurn: s.RefinementTurn,
		LastError:      s.LastError,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		CompletedAt:    s.CompletedAt,
	}
}
