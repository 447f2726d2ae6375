package scheduler

import (
	"context"
	"log/slog"

	"github.com/doculoom/engine/internal/bottomup"
	"github.com/doculoom/engine/internal/model"
)

// RunBottomUp implements Phase 3's tier-ordered driver (spec §4.5, §5):
// strict tier order Leaf -> Standard -> Important -> Core, each tier a hard
// barrier, each completed tier's failures given one best-effort retry pass
// at reduced context before moving on.
//
// When Deps.FileInsights is set, RunBottomUp first rehydrates any file
// already durably published for sessionID (spec §8 property 4, scenario
// S2): those files are skipped entirely rather than re-issuing their LLM
// calls, whether they were carried over from content-hash skip (spec §12)
// or simply survived an earlier crash mid-tier in this same session.
func (s *Scheduler) RunBottomUp(ctx context.Context, sessionID string, files []model.FileRecord, profile *model.ProjectProfile) ([]model.FileInsight, []bottomup.FailedFile, []model.FileRecord) {
	if s.deps.FileInsights != nil {
		s.deps.Analyzer.BindSession(sessionID, s.deps.FileInsights)
	}

	var rehydrated map[string]model.FileInsight
	if s.deps.FileInsights != nil {
		if existing, err := s.deps.FileInsights.ListBySession(ctx, sessionID); err != nil {
			slog.Warn("scheduler: rehydrate file insights failed, analyzing every file", "session_id", sessionID, "error", err)
		} else {
			rehydrated = existing
		}
	}

	statusByPath := make(map[string]model.FileRecord, len(files))
	for _, f := range files {
		statusByPath[f.Path] = f
	}

	var allInsights []model.FileInsight
	byTier := make(map[model.Tier][]model.FileRecord)
	for _, f := range files {
		if insight, ok := rehydrated[f.Path]; ok {
			allInsights = append(allInsights, insight)
			rec := statusByPath[f.Path]
			rec.Status = model.FileAnalyzed
			statusByPath[f.Path] = rec
			continue
		}
		byTier[f.Tier] = append(byTier[f.Tier], f)
	}

	var allFailed []bottomup.FailedFile

	for _, tier := range model.Tiers {
		tierFiles := byTier[tier]
		if len(tierFiles) == 0 {
			continue
		}

		insights, failed := s.deps.Analyzer.AnalyzeTier(ctx, tier, tierFiles, profile)
		if len(failed) > 0 {
			retried, stillFailed := s.deps.Analyzer.RetryFailed(ctx, tier, tierFiles, profile, failed)
			insights = append(insights, retried...)
			failed = stillFailed
		}

		markStatus(statusByPath, insights, failed)
		allInsights = append(allInsights, insights...)
		allFailed = append(allFailed, failed...)
	}

	updated := make([]model.FileRecord, 0, len(statusByPath))
	for _, f := range files {
		updated = append(updated, statusByPath[f.Path])
	}
	if s.deps.Files != nil {
		if err := s.deps.Files.UpsertMany(ctx, sessionID, updated); err != nil {
			slog.Warn("scheduler: durable file status persist failed", "session_id", sessionID, "error", err)
		}
	}
	return allInsights, allFailed, updated
}

func markStatus(statusByPath map[string]model.FileRecord, insights []model.FileInsight, failed []bottomup.FailedFile) {
	for _, in := range insights {
		rec := statusByPath[in.Path]
		rec.Status = model.FileAnalyzed
		statusByPath[in.Path] = rec
	}
	for _, f := range failed {
		rec := statusByPath[f.Path]
		rec.Status = model.FileFailed
		rec.ErrCategory = string(f.Category)
		statusByPath[f.Path] = rec
	}
}
