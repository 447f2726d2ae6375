// Package bottomup implements Phase 3 (spec §4.5, §4.6): the tier-ordered
// bottom-up file analyzer. Within a tier, files are analyzed concurrently
// up to a configured degree of parallelism; the tier boundary is a hard
// barrier, matching spec §5's "strict tier order... barrier between
// tiers." Concurrency is bounded with golang.org/x/sync/errgroup and
// semaphore, the same pairing other_examples/specvital-worker uses for its
// own phase-bounded fan-out.
package bottomup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/doculoom/engine/internal/model"
	"github.com/doculoom/engine/internal/provider"
	"github.com/doculoom/engine/internal/registry"
)

// defaultChildContextBudget bounds, in estimated tokens, how much lower-tier
// context GetChildContexts may hand to one higher-tier call (spec §4.3).
const defaultChildContextBudget = 2000

// FailedFile records a per-file terminal failure (spec §4.6 failure
// policy): the tier completes regardless, and a best-effort retry pass
// runs afterward.
type FailedFile struct {
	Path     string
	Category provider.Category
	Err      error
}

// InsightPersister durably records a FileInsight the moment it publishes to
// the Insight Registry (spec §6 `file_insights` table), independent of the
// Phase 3 checkpoint barrier. A crash mid-tier still leaves every
// already-published file resumable by path instead of re-issuing its LLM
// calls (spec §8 property 4, scenario S2). Satisfied by
// *database.FileInsightStore via BindSession; nil disables persistence
// (the zero value, used throughout this package's tests).
type InsightPersister interface {
	Save(ctx context.Context, sessionID string, fi model.FileInsight) error
}

// Analyzer drives one tier's worth of per-file generate() calls through
// the Provider Gateway, publishing each completed FileInsight to the
// Insight Registry before the tier is considered done.
type Analyzer struct {
	gateway     *provider.Gateway
	registry    *registry.Registry
	counter     registry.TokenCounter
	builder     PromptBuilder
	concurrency int64
	childBudget int

	sessionID string
	persister InsightPersister
}

// NewAnalyzer builds an Analyzer. concurrency is the tier's configured
// degree of parallelism (spec §4.5 Phase 3); it must be >= 1.
func NewAnalyzer(gw *provider.Gateway, reg *registry.Registry, counter registry.TokenCounter, builder PromptBuilder, concurrency int64) *Analyzer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Analyzer{
		gateway:     gw,
		registry:    reg,
		counter:     counter,
		builder:     builder,
		concurrency: concurrency,
		childBudget: defaultChildContextBudget,
	}
}

// BindSession attaches the current session id and its durable insight
// persister, so every Publish this Analyzer performs from here on is also
// written through to storage. Called once at the start of Phase 3;
// persister may be nil to disable durable per-file persistence.
func (a *Analyzer) BindSession(sessionID string, persister InsightPersister) {
	a.sessionID = sessionID
	a.persister = persister
}

// publish records insight in the Insight Registry and, if a persister is
// bound, durably too. Returns an error only on registry publish failure;
// a persistence failure is logged here as a warning and does not fail the
// file (the registry copy still serves the rest of this run).
func (a *Analyzer) publish(ctx context.Context, insight model.FileInsight) error {
	if err := a.registry.Publish(insight); err != nil {
		return err
	}
	if a.persister != nil {
		if err := a.persister.Save(ctx, a.sessionID, insight); err != nil {
			slog.Warn("bottomup: durable insight persist failed, resume may re-analyze this file",
				"path", insight.Path, "session_id", a.sessionID, "error", err)
		}
	}
	return nil
}

// AnalyzeTier analyzes every file in files concurrently (bounded by
// Analyzer's configured concurrency) and returns completed insights plus
// any per-file terminal failures. It does not retry; callers run
// RetryFailed separately once the tier's first pass completes.
func (a *Analyzer) AnalyzeTier(ctx context.Context, tier model.Tier, files []model.FileRecord, profile *model.ProjectProfile) ([]model.FileInsight, []FailedFile) {
	sem := semaphore.NewWeighted(a.concurrency)
	g, gCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	insights := make([]model.FileInsight, 0, len(files))
	var failed []FailedFile

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			insight, err := a.analyzeFile(gCtx, file, tier, profile, reducedContext(false))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, FailedFile{Path: file.Path, Category: categoryOf(err), Err: err})
				return nil // per-file failure does not abort the tier
			}
			insights = append(insights, insight)
			if pubErr := a.publish(gCtx, insight); pubErr != nil {
				failed = append(failed, FailedFile{Path: file.Path, Err: pubErr})
			}
			return nil
		})
	}

	_ = g.Wait() // only ctx cancellation propagates here; per-file errors are collected above

	return insights, failed
}

// RetryFailed implements spec §4.6's "single best-effort retry pass... at
// reduced context": each previously failed file is retried once more with
// child-context disabled, to shrink the prompt and sidestep the kind of
// failure a too-large context window can cause.
func (a *Analyzer) RetryFailed(ctx context.Context, tier model.Tier, files []model.FileRecord, profile *model.ProjectProfile, failures []FailedFile) ([]model.FileInsight, []FailedFile) {
	byPath := make(map[string]model.FileRecord, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}

	var insights []model.FileInsight
	var stillFailed []FailedFile
	for _, fail := range failures {
		file, ok := byPath[fail.Path]
		if !ok {
			continue
		}
		insight, err := a.analyzeFile(ctx, file, tier, profile, reducedContext(true))
		if err != nil {
			stillFailed = append(stillFailed, FailedFile{Path: file.Path, Category: categoryOf(err), Err: err})
			continue
		}
		insights = append(insights, insight)
		if pubErr := a.publish(ctx, insight); pubErr != nil {
			stillFailed = append(stillFailed, FailedFile{Path: file.Path, Err: pubErr})
		}
	}
	return insights, stillFailed
}

type reducedContext bool

func (a *Analyzer) analyzeFile(ctx context.Context, file model.FileRecord, tier model.Tier, profile *model.ProjectProfile, reduced reducedContext) (model.FileInsight, error) {
	plan := iterationPlans[tier]
	if len(plan) == 0 {
		return a.singleShot(ctx, file, tier, profile, reduced)
	}
	return a.iterate(ctx, file, tier, profile, plan, reduced)
}

func (a *Analyzer) singleShot(ctx context.Context, file model.FileRecord, tier model.Tier, profile *model.ProjectProfile, reduced reducedContext) (model.FileInsight, error) {
	childContext := a.childContextFor(file, tier, reduced)

	bc := BuildContext{File: file, Tier: tier, Profile: profile, ChildContext: childContext}
	budgetTokens := perCallBudget(tier)

	result, _, err := a.gateway.Generate(ctx, model.PhaseBottomUp, a.builder.Build(bc), budgetTokens, a.builder.Schema(tier, ""))
	if err != nil {
		return model.FileInsight{}, err
	}
	return insightFromResult(file, tier, nil, childContext, result), nil
}

func (a *Analyzer) iterate(ctx context.Context, file model.FileRecord, tier model.Tier, profile *model.ProjectProfile, plan []string, reduced reducedContext) (model.FileInsight, error) {
	var priors []model.ResearchIteration
	var aspects []string
	budgetTokens := perCallBudget(tier)

	var childContext []model.FileInsight
	var final map[string]interface{}

	for i, phase := range plan {
		if phase == "synthesizing" {
			childContext = a.childContextFor(file, tier, reduced)
		}
		bc := BuildContext{
			File:            file,
			Tier:            tier,
			Profile:         profile,
			IterationPhase:  phase,
			IterationIndex:  i,
			PriorIterations: priors,
			ChildContext:    childContext,
			AspectsCovered:  aspects,
		}

		result, _, err := a.gateway.Generate(ctx, model.PhaseBottomUp, a.builder.Build(bc), budgetTokens, a.builder.Schema(tier, phase))
		if err != nil {
			return model.FileInsight{}, fmt.Errorf("%s iteration %d: %w", phase, i, err)
		}

		aspects = append(aspects, stringSlice(result["aspects_covered"])...)
		priors = append(priors, model.ResearchIteration{
			Phase:          phase,
			AspectsCovered: stringSlice(result["aspects_covered"]),
			Output:         stringValue(result["purpose_summary"]),
		})
		if phase == "synthesizing" {
			final = result
		}
	}

	return insightFromResult(file, tier, priors, childContext, final), nil
}

// childContextFor fetches the lower-tier context bundle the Insight
// Registry exposes (spec §4.3). reduced disables it entirely, per §4.6's
// retry-at-reduced-context policy.
func (a *Analyzer) childContextFor(file model.FileRecord, tier model.Tier, reduced reducedContext) []model.FileInsight {
	if bool(reduced) || tier == model.TierLeaf {
		return nil
	}
	return a.registry.GetChildContexts(file.Path, tier, file.Imports, a.childBudget, a.counter)
}

func categoryOf(err error) provider.Category {
	var perr *provider.Error
	if errors.As(err, &perr) {
		return perr.Category
	}
	return provider.CategoryInternal
}
