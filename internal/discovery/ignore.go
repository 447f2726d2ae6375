package discovery

import "github.com/bmatcuk/doublestar"

// defaultIgnorePatterns are applied before any project-supplied ignore list.
// Grounded on the doublestar glob matcher already present (indirectly) in
// the teacher's go.mod, promoted here to a direct dependency for exactly
// the glob-style ignore matching file discovery needs.
var defaultIgnorePatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/.venv/**",
	"**/venv/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/__pycache__/**",
	"**/*.min.js",
	"**/*.lock",
	"**/.DS_Store",
}

// ignoreSet compiles a combined list of default and caller-supplied glob
// patterns into something Matches can test a relative path against.
type ignoreSet struct {
	patterns []string
}

func newIgnoreSet(extra []string) *ignoreSet {
	patterns := make([]string, 0, len(defaultIgnorePatterns)+len(extra))
	patterns = append(patterns, defaultIgnorePatterns...)
	patterns = append(patterns, extra...)
	return &ignoreSet{patterns: patterns}
}

// Matches reports whether relPath (slash-separated, relative to the scan
// root) should be excluded from discovery.
func (s *ignoreSet) Matches(relPath string) bool {
	for _, p := range s.patterns {
		if ok, err := doublestar.Match(p, relPath); err == nil && ok {
			return true
		}
	}
	return false
}
