// Package registry implements the Insight Registry: a concurrent,
// publish-once store of completed FileInsights that supports
// directory-relationship and import-dependency queries, plus a
// token-bounded child-context selection used to build the prompt context
// for higher-tier files (spec §4.3).
package registry

import (
	"hash/fnv"
	"path"
	"sort"
	"sync"

	"github.com/doculoom/engine/internal/model"
)

// shardCount is the number of stripes in the concurrent map. A power of two
// so the hash-to-shard mapping is a cheap mask. Sized for the parallelism
// the bottom-up phase actually uses (spec §4.6's per-tier worker pools
// rarely exceed a few dozen goroutines), not for web-scale sharding.
const shardCount = 16

type shard struct {
	mu       sync.RWMutex
	insights map[string]*model.FileInsight
}

// Registry is the Insight Registry. Writes are publish-once: a path may be
// written exactly once, after which every shard's map entry is immutable,
// which is what makes reads wait-free in practice — a reader either finds
// nothing or finds a complete record, never a partially written one.
type Registry struct {
	shards [shardCount]*shard
}

// New builds an empty Registry.
func New() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{insights: make(map[string]*model.FileInsight)}
	}
	return r
}

func (r *Registry) shardFor(p string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(p))
	return r.shards[h.Sum32()&(shardCount-1)]
}

// Publish records fi under fi.Path. Returns ErrAlreadyPublished if that path
// already has an entry — the registry has no update path by design (spec
// §4.3 "writes are publish-once").
func (r *Registry) Publish(fi model.FileInsight) error {
	s := r.shardFor(fi.Path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.insights[fi.Path]; exists {
		return ErrAlreadyPublished
	}
	cp := fi
	s.insights[fi.Path] = &cp
	return nil
}

// Get returns the published insight for path, if any.
func (r *Registry) Get(p string) (*model.FileInsight, bool) {
	s := r.shardFor(p)
	s.mu.RLock()
	defer s.mu.RUnlock()
	fi, ok := s.insights[p]
	return fi, ok
}

// All returns a snapshot of every published insight. Used by directory-scan
// queries, which have no cheaper index than a linear pass over what is, in
// practice, a few thousand entries at most.
func (r *Registry) All() []*model.FileInsight {
	var out []*model.FileInsight
	for _, s := range r.shards {
		s.mu.RLock()
		for _, fi := range s.insights {
			out = append(out, fi)
		}
		s.mu.RUnlock()
	}
	return out
}

// ByImports resolves each of the given import paths to its published
// insight, skipping any that have not been analyzed yet or sit at or above
// maxTier (children must be strictly lower tier, spec §3).
func (r *Registry) ByImports(imports []string, maxTier model.Tier) []*model.FileInsight {
	out := make([]*model.FileInsight, 0, len(imports))
	for _, imp := range imports {
		fi, ok := r.Get(imp)
		if ok && fi.Tier < maxTier {
			out = append(out, fi)
		}
	}
	return out
}

// ByDirectory returns every published insight strictly below maxTier whose
// directory is the same as, or an ancestor of, targetPath's directory (spec
// §4.3 "by directory relationship").
func (r *Registry) ByDirectory(targetPath string, maxTier model.Tier) []*model.FileInsight {
	ancestors := ancestorDirs(path.Dir(targetPath))
	var out []*model.FileInsight
	for _, fi := range r.All() {
		if fi.Path == targetPath || fi.Tier >= maxTier {
			continue
		}
		if _, ok := ancestors[path.Dir(fi.Path)]; ok {
			out = append(out, fi)
		}
	}
	return out
}

// ancestorDirs returns dir and every directory above it up to ".", as a set.
func ancestorDirs(dir string) map[string]struct{} {
	set := map[string]struct{}{dir: {}}
	for dir != "." && dir != "/" {
		dir = path.Dir(dir)
		set[dir] = struct{}{}
	}
	return set
}

// TokenCounter estimates the token cost of a string. Satisfied by
// *internal/budget.Estimator without this package importing it, so the
// registry's selection logic stays independent of the budget package.
type TokenCounter interface {
	Count(text string) int
}

// GetChildContexts implements spec §4.3's get_child_contexts: imported
// files first, then directory-related files, each group ordered by higher
// confidence then shorter path, truncated once budgetTokens is reached.
func (r *Registry) GetChildContexts(targetPath string, tier model.Tier, imports []string, budgetTokens int, counter TokenCounter) []model.FileInsight {
	imported := r.ByImports(imports, tier)
	sortByConfidenceThenPath(imported)

	seen := make(map[string]struct{}, len(imported))
	for _, fi := range imported {
		seen[fi.Path] = struct{}{}
	}

	dirRelated := r.ByDirectory(targetPath, tier)
	filtered := dirRelated[:0:0]
	for _, fi := range dirRelated {
		if _, ok := seen[fi.Path]; !ok {
			filtered = append(filtered, fi)
		}
	}
	sortByConfidenceThenPath(filtered)

	var (
		out   []model.FileInsight
		spent int
	)
	for _, fi := range append(imported, filtered...) {
		cost := counter.Count(contextText(fi))
		if spent+cost > budgetTokens {
			break
		}
		out = append(out, *fi)
		spent += cost
	}
	return out
}

func sortByConfidenceThenPath(insights []*model.FileInsight) {
	sort.SliceStable(insights, func(i, j int) bool {
		if insights[i].Confidence != insights[j].Confidence {
			return insights[i].Confidence > insights[j].Confidence
		}
		return len(insights[i].Path) < len(insights[j].Path)
	})
}

// contextText is the string handed to the token counter for a candidate
// child insight: its purpose summary plus its key insights, which is what a
// prompt actually quotes back as context (spec §4.6's child-context bundle).
func contextText(fi *model.FileInsight) string {
	text := fi.PurposeSummary
	for _, k := range fi.KeyInsights {
		text += "\n" + k
	}
	return text
}
