package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/doculoom/engine/internal/model"
	"github.com/doculoom/engine/internal/provider"
)

// agentSpec is one named agent call within a fan-out turn.
type agentSpec struct {
	Name            string
	Prompt          string
	EstimatedTokens int64
}

// runAgents dispatches every spec concurrently against the gateway under
// phase's budget partition, bounded by concurrency (spec §5
// "buffer_unordered(N)"). A failure from any agent aborts the whole turn —
// unlike Phase 3's per-file isolation, Characterization/Top-Down/
// Consolidation agents feed a shared downstream artifact that cannot be
// assembled with a missing member.
func runAgents(ctx context.Context, gw *provider.Gateway, phase model.Phase, concurrency int, specs []agentSpec) (map[string]map[string]interface{}, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	g, gCtx := errgroup.WithContext(ctx)

	results := make(map[string]map[string]interface{}, len(specs))
	resultsCh := make(chan struct {
		name string
		out  map[string]interface{}
	}, len(specs))

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gCtx.Done():
				return gCtx.Err()
			}
			defer func() { <-sem }()

			out, _, err := gw.Generate(gCtx, phase, spec.Prompt, spec.EstimatedTokens, nil)
			if err != nil {
				return err
			}
			resultsCh <- struct {
				name string
				out  map[string]interface{}
			}{spec.Name, out}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(resultsCh)
	for r := range resultsCh {
		results[r.name] = r.out
	}
	return results, nil
}
