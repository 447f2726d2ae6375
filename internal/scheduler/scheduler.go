package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/doculoom/engine/internal/checkpoint"
	"github.com/doculoom/engine/internal/model"
)

// Run drives session through every pipeline phase (spec §4.5), resuming
// from the last completed phase found in the checkpoint store, and commits
// a checkpoint after each phase barrier. Cancellation of ctx discards the
// in-flight phase's partial work and leaves the session paused, resumable
// from the last successful checkpoint (spec §5 "Cancellation").
func (s *Scheduler) Run(ctx context.Context, session *model.Session) error {
	cp, err := s.deps.Checkpoints.Load(ctx, session.ID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		cp = &model.PipelineCheckpoint{SessionID: session.ID}
	} else if err != nil {
		return fmt.Errorf("scheduler: load checkpoint: %w", err)
	}

	session.SetStatus(model.SessionRunning)
	startIdx := phaseIndex(cp.LastCompletedPhase) + 1

	for i := startIdx; i < len(model.PhaseOrder); i++ {
		phase := model.PhaseOrder[i]
		session.SetPhase(phase)

		if err := ctx.Err(); err != nil {
			session.SetStatus(model.SessionPaused)
			return err
		}

		if err := s.runPhase(ctx, session, cp, phase); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				session.SetStatus(model.SessionPaused)
				return err
			}
			session.SetError(err)
			return err
		}

		cp.LastCompletedPhase = phase
		if err := s.deps.Checkpoints.Save(ctx, cp); err != nil {
			session.SetError(err)
			return fmt.Errorf("scheduler: save checkpoint after %s: %w", phase, err)
		}
	}

	session.SetStatus(model.SessionCompleted)
	return nil
}

func (s *Scheduler) runPhase(ctx context.Context, session *model.Session, cp *model.PipelineCheckpoint, phase model.Phase) error {
	switch phase {
	case model.PhaseCharacterization:
		if cp.ProjectProfile != nil {
			return nil
		}
		profile, err := s.RunCharacterization(ctx, session.ID, session.ProjectRoot)
		if err != nil {
			return err
		}
		cp.ProjectProfile = profile
		return nil

	case model.PhaseDiscovery:
		if len(cp.FileList) > 0 {
			return nil
		}
		records, err := s.RunDiscovery(ctx, session.ID, session.ProjectRoot, cp.ProjectProfile)
		if err != nil {
			return err
		}
		cp.FileList = records
		if s.deps.Files != nil {
			if err := s.deps.Files.UpsertMany(ctx, session.ID, records); err != nil {
				return fmt.Errorf("scheduler: persist discovered files: %w", err)
			}
		}
		return nil

	case model.PhaseBottomUp:
		if len(cp.FileInsights) > 0 {
			return nil
		}
		insights, _, updated := s.RunBottomUp(ctx, session.ID, cp.FileList, cp.ProjectProfile)
		cp.FileInsights = insights
		cp.FileList = updated
		return nil

	case model.PhaseTopDown:
		if len(cp.ProjectInsights) > 0 {
			return nil
		}
		out, err := s.RunTopDown(ctx, session.ID, cp.FileInsights, cp.ProjectProfile)
		if err != nil {
			return err
		}
		cp.ProjectInsights = out
		return nil

	case model.PhaseConsolidation:
		if len(cp.DomainInsights) > 0 {
			return nil
		}
		domains, err := s.RunConsolidation(ctx, session.ID, session.Scale, cp.FileInsights)
		if err != nil {
			return err
		}
		cp.DomainInsights = domains
		return nil

	case model.PhaseBlueprint:
		if cp.Blueprint != nil {
			return nil
		}
		blueprint, err := s.RunBlueprint(ctx, session.Scale, cp.ProjectProfile, cp.DomainInsights)
		if err != nil {
			return err
		}
		cp.Blueprint = blueprint
		return nil

	case model.PhaseRefinement:
		result, err := s.RunRefinement(ctx, session, cp.FileList, cp.FileInsights, cp.DomainInsights)
		if err != nil {
			return err
		}
		cp.FileInsights = result.Insights
		cp.DomainInsights = result.Domains
		return nil

	default:
		return fmt.Errorf("scheduler: unknown phase %q", phase)
	}
}

// phaseIndex returns p's position in model.PhaseOrder, or -1 if p is the
// zero Phase (no phase completed yet) or otherwise unrecognized.
func phaseIndex(p model.Phase) int {
	for i, candidate := range model.PhaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}
