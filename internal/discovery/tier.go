package discovery

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/doculoom/engine/internal/model"
)

// entryPointPatterns are the declared-entry-point globs spec §4.5 names
// (main.*, lib.*, index.*).
var entryPointPatterns = []string{"main.*", "lib.*", "index.*"}

var importantSegments = map[string]struct{}{"core": {}, "business": {}}
var leafSegments = map[string]struct{}{"util": {}, "helper": {}, "common": {}}

// AssignTier implements spec §4.5 Phase 2's tier rule, applied in the order
// the spec lists it (Core, then Important, then Leaf, else Standard) so the
// "most specific matching rule" tie-break falls out of evaluation order.
//
// centralFiles is the set of paths the characterization dependency agent
// named as central (spec §4.5 Phase 1 turn 1); it is nil-safe.
func AssignTier(file model.DiscoveredFile, profile *model.ProjectProfile, centralFiles map[string]struct{}) model.Tier {
	if isEntryPoint(file.Path) || isTopLevelExport(file.Path, profile) {
		return model.TierCore
	}
	if hasSegment(file.Path, importantSegments) || isCentral(file.Path, centralFiles) {
		return model.TierImportant
	}
	if hasSegment(file.Path, leafSegments) {
		return model.TierLeaf
	}
	return model.TierStandard
}

func isEntryPoint(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range entryPointPatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func isTopLevelExport(path string, profile *model.ProjectProfile) bool {
	if profile == nil {
		return false
	}
	for _, entry := range profile.EntryPoints {
		if entry == path {
			return true
		}
	}
	return false
}

func isCentral(path string, centralFiles map[string]struct{}) bool {
	if centralFiles == nil {
		return false
	}
	_, ok := centralFiles[path]
	return ok
}

var pathSegmentSplit = regexp.MustCompile(`[\\/]`)

func hasSegment(path string, segments map[string]struct{}) bool {
	for _, part := range pathSegmentSplit.Split(path, -1) {
		if _, ok := segments[strings.ToLower(part)]; ok {
			return true
		}
	}
	return false
}
