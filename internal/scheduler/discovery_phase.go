package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doculoom/engine/internal/discovery"
	"github.com/doculoom/engine/internal/model"
)

// centralityThreshold is how many distinct importers make a file "central"
// per spec §4.5 Phase 2's Important rule ("named by the dependency agent as
// central"). The spec doesn't give a number; a file imported widely enough
// to be load-bearing for several others is a reasonable proxy.
const centralityThreshold = 3

// RunDiscovery implements Phase 2 (spec §4.5): walk the project, honoring
// ignore rules, and assign each file a tier.
//
// When Deps.PriorSessions, Deps.Files and Deps.FileInsights are all set,
// RunDiscovery also implements the incremental re-run content-hash skip
// (spec §12): any file whose content hash matches the same path in the
// project's most recently completed session is marked already-analyzed and
// its prior FileInsight is carried forward — both to the Insight Registry
// (so it is available as child context) and durably under sessionID — so
// Phase 3 never re-issues that file's LLM calls.
func (s *Scheduler) RunDiscovery(ctx context.Context, sessionID, projectRoot string, profile *model.ProjectProfile) ([]model.FileRecord, error) {
	discovered, err := discovery.Walk(projectRoot, discovery.Options{IgnorePatterns: s.deps.IgnorePatterns})
	if err != nil {
		return nil, fmt.Errorf("discovery: walk %s: %w", projectRoot, err)
	}

	priorHashes, priorInsights := s.priorSessionState(ctx, projectRoot)

	central := centralFiles(profile)
	records := make([]model.FileRecord, 0, len(discovered))
	for _, df := range discovered {
		tier := discovery.AssignTier(df, profile, central)
		rec := model.FileRecord{
			Path:        df.Path,
			Language:    df.Language,
			LineCount:   df.LineCount,
			ContentHash: df.ContentHash,
			Imports:     df.Imports,
			Tier:        tier,
			Status:      model.FileDiscovered,
		}

		if priorHash, ok := priorHashes[df.Path]; ok && priorHash == df.ContentHash {
			if insight, ok := priorInsights[df.Path]; ok {
				rec.Status = model.FileAnalyzed
				s.carryOverInsight(ctx, sessionID, rec, insight)
			}
		}

		records = append(records, rec)
	}
	return records, nil
}

// priorSessionState loads the content hashes and published insights from
// projectRoot's most recently completed session, if any durable store is
// configured. Absence of any piece (no prior session, no stores wired) is
// not an error: every file simply analyzes fresh.
func (s *Scheduler) priorSessionState(ctx context.Context, projectRoot string) (map[string]string, map[string]model.FileInsight) {
	if s.deps.PriorSessions == nil || s.deps.Files == nil || s.deps.FileInsights == nil {
		return nil, nil
	}

	priorID, ok, err := s.deps.PriorSessions.LatestCompletedSessionForRoot(ctx, projectRoot)
	if err != nil || !ok {
		if err != nil {
			slog.Warn("scheduler: prior session lookup failed, analyzing every file", "project_root", projectRoot, "error", err)
		}
		return nil, nil
	}

	priorFiles, err := s.deps.Files.ListBySession(ctx, priorID)
	if err != nil {
		slog.Warn("scheduler: prior file list failed, analyzing every file", "session_id", priorID, "error", err)
		return nil, nil
	}
	hashes := make(map[string]string, len(priorFiles))
	for _, f := range priorFiles {
		hashes[f.Path] = f.ContentHash
	}

	insights, err := s.deps.FileInsights.ListBySession(ctx, priorID)
	if err != nil {
		slog.Warn("scheduler: prior file insight list failed, analyzing every file", "session_id", priorID, "error", err)
		return hashes, nil
	}
	return hashes, insights
}

// carryOverInsight publishes a reused FileInsight to the Registry (so
// higher tiers can still reference it as child context) and persists it
// under the new session, so Phase 3's own rehydration sees it too. The
// file_insights row's foreign key requires a matching files row to exist
// first, so rec is upserted under sessionID before the insight is saved.
func (s *Scheduler) carryOverInsight(ctx context.Context, sessionID string, rec model.FileRecord, insight model.FileInsight) {
	if s.deps.Registry != nil {
		if err := s.deps.Registry.Publish(insight); err != nil {
			slog.Warn("scheduler: carry-over insight publish failed", "path", insight.Path, "error", err)
			return
		}
	}
	if err := s.deps.Files.Upsert(ctx, sessionID, rec); err != nil {
		slog.Warn("scheduler: carry-over file record persist failed", "path", rec.Path, "session_id", sessionID, "error", err)
		return
	}
	if err := s.deps.FileInsights.Save(ctx, sessionID, insight); err != nil {
		slog.Warn("scheduler: carry-over insight persist failed", "path", insight.Path, "session_id", sessionID, "error", err)
	}
}

// centralFiles derives the "named as central" set from the dependency
// agent's map: any path imported by at least centralityThreshold distinct
// other files.
func centralFiles(profile *model.ProjectProfile) map[string]struct{} {
	if profile == nil {
		return nil
	}
	importCount := make(map[string]int)
	for _, imports := range profile.DependencyMap {
		for _, imp := range imports {
			importCount[imp]++
		}
	}
	central := make(map[string]struct{})
	for path, count := range importCount {
		if count >= centralityThreshold {
			central[path] = struct{}{}
		}
	}
	return central
}
