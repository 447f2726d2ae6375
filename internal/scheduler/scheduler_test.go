package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doculoom/engine/internal/bottomup"
	"github.com/doculoom/engine/internal/budget"
	"github.com/doculoom/engine/internal/checkpoint"
	"github.com/doculoom/engine/internal/model"
	"github.com/doculoom/engine/internal/provider"
	"github.com/doculoom/engine/internal/registry"
)

// scriptedProvider returns a canned JSON response for every call; tests
// that need per-agent differentiation inspect the prompt text.
type scriptedProvider struct {
	mu       sync.Mutex
	byPrompt func(prompt string) string
	calls    int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, deadline time.Time) (provider.Response, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return provider.Response{Text: p.byPrompt(prompt), InputTokens: 5, OutputTokens: 5, Provider: "scripted"}, nil
}

func newTestDeps(t *testing.T, byPrompt func(string) string) Deps {
	t.Helper()
	partitions := map[model.Phase]float64{
		model.PhaseCharacterization: 0.2,
		model.PhaseDiscovery:        0.1,
		model.PhaseBottomUp:         0.2,
		model.PhaseTopDown:         0.2,
		model.PhaseConsolidation:    0.1,
		model.PhaseBlueprint:        0.1,
		model.PhaseRefinement:       0.1,
	}
	tale := budget.New(1_000_000, 0.0, partitions, model.EnforcementSoft, nil)
	p := &scriptedProvider{byPrompt: byPrompt}
	gw := provider.NewGateway([]provider.Provider{p}, tale, 5*time.Second)

	reg := registry.New()
	counter := budget.NewEstimator("")
	builder, err := bottomup.NewDefaultPromptBuilder()
	require.NoError(t, err)
	analyzer := bottomup.NewAnalyzer(gw, reg, counter, builder, 4)

	return Deps{
		Gateway:  gw,
		Registry: reg,
		Counter:  counter,
		Analyzer: analyzer,
		Parallelism: Parallelism{
			CharacterizationTurn: 3,
			BottomUpPerTier:      4,
			TopDown:              4,
			ConsolidationDomains: 2,
		},
	}
}

func TestRunCharacterizationAssemblesProfile(t *testing.T) {
	deps := newTestDeps(t, func(prompt string) string {
		return `{"organization_style": "layer_based", "dependency_map": {"a.go": ["b.go"]}, "entry_points": ["main.go"], "purposes": {"a.go": "does a"}, "technical_traits": ["go modules"], "terminology": {"tier": "analysis depth"}, "section_plan": ["overview"]}`
	})
	s := New(deps)

	profile, err := s.RunCharacterization(context.Background(), "sess-1", "/repo")
	require.NoError(t, err)
	assert.Equal(t, model.OrgLayerBased, profile.OrganizationStyle)
	assert.Equal(t, []string{"main.go"}, profile.EntryPoints)
	assert.Equal(t, []string{"overview"}, profile.SectionPlan)
}

func TestRunDiscoveryAssignsTiers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\nfunc main() {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "util"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util", "strings.go"), []byte("package util\n"), 0o644))

	deps := newTestDeps(t, func(string) string { return `{}` })
	s := New(deps)

	records, err := s.RunDiscovery(context.Background(), "sess-1", dir, &model.ProjectProfile{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	byPath := make(map[string]model.FileRecord, len(records))
	for _, r := range records {
		byPath[r.Path] = r
	}
	assert.Equal(t, model.TierCore, byPath["main.go"].Tier)
	assert.Equal(t, model.TierLeaf, byPath["util/strings.go"].Tier)
}

func TestRunBottomUpAnalyzesEveryTierAndMarksStatus(t *testing.T) {
	deps := newTestDeps(t, func(string) string {
		return `{"purpose_summary": "a file", "key_insights": ["does stuff"]}`
	})
	s := New(deps)

	files := []model.FileRecord{
		{Path: "util/strings.go", Tier: model.TierLeaf},
		{Path: "main.go", Tier: model.TierCore},
	}

	insights, failed, updated := s.RunBottomUp(context.Background(), "sess-1", files, &model.ProjectProfile{})
	assert.Empty(t, failed)
	assert.Len(t, insights, 2)
	for _, f := range updated {
		assert.Equal(t, model.FileAnalyzed, f.Status)
	}
}

func TestRunConsolidationBuildsDomainsAndDetectsGaps(t *testing.T) {
	deps := newTestDeps(t, func(prompt string) string {
		if containsSubstring(prompt, "domain grouper") {
			return `{"domain_labels": ["auth", "billing"], "domain_members": {"auth": ["a.go"], "billing": ["b.go"]}}`
		}
		return `{"description": "handles things", "sections": [{"title": "Overview", "body": "short"}]}`
	})
	s := New(deps)

	domains, err := s.RunConsolidation(context.Background(), "sess-1", model.ScaleSmall, []model.FileInsight{{Path: "a.go"}, {Path: "b.go"}})
	require.NoError(t, err)
	require.Len(t, domains, 2)

	gaps := DetectGaps(domains)
	assert.Len(t, gaps, 2) // thin body, no diagram, no cross-links
}

func TestRunBlueprintUsesScaleHierarchyDepth(t *testing.T) {
	deps := newTestDeps(t, func(string) string {
		return `{"base_sections": ["intro"], "per_domain_structure": {"auth": ["overview", "risks"]}}`
	})
	s := New(deps)

	bp, err := s.RunBlueprint(context.Background(), model.ScaleLarge, &model.ProjectProfile{}, []model.DomainInsight{{Label: "auth"}})
	require.NoError(t, err)
	assert.Equal(t, 3, bp.HierarchyDepth)
	assert.Equal(t, []string{"overview", "risks"}, bp.PerDomainStructure["auth"])
}

func TestRunRefinementStopsWhenTargetMet(t *testing.T) {
	deps := newTestDeps(t, func(string) string { return `{"updates": []}` })
	s := New(deps)

	session := model.NewSession("sess-1", "/repo", model.ModeFast, model.ScaleSmall, 0.60)
	files := []model.FileRecord{{Path: "a.go", Status: model.FileAnalyzed}}
	insights := []model.FileInsight{
		{Path: "a.go", PurposeSummary: "Handles configuration loading and validates every field at startup", Diagram: "graph TD\n A --> B"},
	}

	result, err := s.RunRefinement(context.Background(), session, files, insights, nil)
	require.NoError(t, err)
	require.Len(t, result.History, 1)
	assert.True(t, result.History[0].Met)
	assert.Equal(t, "target_met", session.Snapshot().QualityHistory[0].StopCause)
}

func TestSchedulerRunCompletesAllPhasesFromScratch(t *testing.T) {
	deps := newTestDeps(t, func(prompt string) string {
		switch {
		case containsSubstring(prompt, "domain grouper"):
			return `{"domain_labels": [], "domain_members": {}}`
		case containsSubstring(prompt, "blueprint agent"):
			return `{"base_sections": [], "per_domain_structure": {}}`
		case containsSubstring(prompt, "refinement agent"):
			return `{"updates": []}`
		default:
			return `{"purpose_summary": "a file", "key_insights": ["x"], "organization_style": "flat", "entry_points": [], "dependency_map": {}, "purposes": {}, "technical_traits": [], "terminology": {}, "section_plan": []}`
		}
	})
	store := newMemCheckpointStore()
	deps.Checkpoints = checkpoint.NewManager(store)
	s := New(deps)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	session := model.NewSession("sess-resume", dir, model.ModeFast, model.ScaleSmall, 0.10)
	require.NoError(t, s.Run(context.Background(), session))

	snap := session.Snapshot()
	assert.Equal(t, model.SessionCompleted, snap.Status)

	cp, err := store.Load(context.Background(), "sess-resume")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseRefinement, cp.LastCompletedPhase)
}

func TestSchedulerRunPausesOnCancellation(t *testing.T) {
	deps := newTestDeps(t, func(string) string { return `{}` })
	store := newMemCheckpointStore()
	deps.Checkpoints = checkpoint.NewManager(store)
	s := New(deps)

	session := model.NewSession("sess-cancel", "/repo", model.ModeFast, model.ScaleSmall, 0.10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, session)
	require.Error(t, err)
	assert.Equal(t, model.SessionPaused, session.Snapshot().Status)
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// memCheckpointStore is the same in-memory Store fake internal/checkpoint's
// own tests use, duplicated here since checkpoint's test helper is
// unexported.
type memCheckpointStore struct {
	mu   sync.Mutex
	byID map[string]*model.PipelineCheckpoint
}

func newMemCheckpointStore() *memCheckpointStore {
	return &memCheckpointStore{byID: make(map[string]*model.PipelineCheckpoint)}
}

func (s *memCheckpointStore) Save(_ context.Context, cp *model.PipelineCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *cp
	s.byID[cp.SessionID] = &dup
	return nil
}

func (s *memCheckpointStore) Load(_ context.Context, sessionID string) (*model.PipelineCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.byID[sessionID]
	if !ok {
		return nil, checkpoint.ErrNotFound
	}
	dup := *cp
	return &dup, nil
}

func (s *memCheckpointStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, sessionID)
	return nil
}
