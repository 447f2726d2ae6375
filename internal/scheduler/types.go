// Package scheduler implements the Phase Scheduler (spec §4.5): the driver
// that advances a session through the pipeline's six phases (plus 5.5) with
// fan-out inside each phase and a checkpoint barrier between them.
package scheduler

import (
	"context"

	"github.com/doculoom/engine/internal/bottomup"
	"github.com/doculoom/engine/internal/checkpoint"
	"github.com/doculoom/engine/internal/model"
	"github.com/doculoom/engine/internal/provider"
	"github.com/doculoom/engine/internal/registry"
)

// TokenCounter estimates token cost, satisfied by *budget.Estimator.
type TokenCounter interface {
	Count(text string) int
}

// Parallelism bounds fan-out within each phase (spec §5
// "buffer_unordered(N)"), mirroring internal/config.ParallelismConfig
// without this package importing config directly.
type Parallelism struct {
	CharacterizationTurn int
	BottomUpPerTier      int
	TopDown              int
	ConsolidationDomains int
}

// FileRecordStore durably tracks per-file discovery/analysis state (spec §6
// `files` table), satisfied by *database.FileStore. Nil disables durable
// file tracking and the content-hash skip feature (spec §12) that depends
// on it.
type FileRecordStore interface {
	Upsert(ctx context.Context, sessionID string, f model.FileRecord) error
	UpsertMany(ctx context.Context, sessionID string, files []model.FileRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]model.FileRecord, error)
}

// FileInsightRecordStore durably tracks published FileInsights (spec §6
// `file_insights` table), satisfied by *database.FileInsightStore. It
// extends bottomup.InsightPersister with the lookup RunBottomUp needs to
// rehydrate already-analyzed files on resume.
type FileInsightRecordStore interface {
	bottomup.InsightPersister
	ListBySession(ctx context.Context, sessionID string) (map[string]model.FileInsight, error)
}

// PriorSessionLookup finds the most recent completed session for a project
// root, satisfied by *database.Client. Used by Phase 2's content-hash skip
// (spec §12) to locate the session whose files/file_insights rows a new run
// can reuse.
type PriorSessionLookup interface {
	LatestCompletedSessionForRoot(ctx context.Context, projectRoot string) (string, bool, error)
}

// AgentOutputRecorder durably records one agent's output (spec §6
// `agent_outputs` table), satisfied by *database.AgentOutputStore.
type AgentOutputRecorder interface {
	Save(ctx context.Context, sessionID string, out model.AgentOutput) error
}

// DomainInsightRecorder durably records a phase's synthesized domains (spec
// §6 `domain_insights` table), satisfied by *database.DomainInsightStore.
type DomainInsightRecorder interface {
	SaveAll(ctx context.Context, sessionID string, domains []model.DomainInsight) error
}

// Deps bundles every component the Scheduler drives. Gateway, Registry,
// Checkpoints, Counter, Analyzer and Parallelism are required; the store
// fields are optional (nil disables the durable feature they back) so
// existing callers and tests that leave them unset keep working.
type Deps struct {
	Gateway     *provider.Gateway
	Registry    *registry.Registry
	Checkpoints *checkpoint.Manager
	Counter     TokenCounter
	Analyzer    *bottomup.Analyzer
	Parallelism Parallelism

	// IgnorePatterns configures Phase 2's discovery walk.
	IgnorePatterns []string

	// Files, FileInsights and PriorSessions back the `files`/`file_insights`
	// tables and the content-hash skip feature (spec §6, §12). Nil disables
	// durable per-file persistence and incremental re-runs.
	Files         FileRecordStore
	FileInsights  FileInsightRecordStore
	PriorSessions PriorSessionLookup

	// AgentOutputs and DomainInsights back the `agent_outputs` and
	// `domain_insights` tables (spec §6). Nil disables durable persistence
	// of those phases' outputs without affecting the in-memory pipeline.
	AgentOutputs   AgentOutputRecorder
	DomainInsights DomainInsightRecorder
}

// Scheduler drives one session's pipeline run.
type Scheduler struct {
	deps Deps
}

// New builds a Scheduler over the given dependencies.
func New(deps Deps) *Scheduler {
	return &Scheduler{deps: deps}
}
