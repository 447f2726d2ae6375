package discovery

import "regexp"

// Import extraction is a narrow, language-aware regex scan, not a parser —
// the core's discover(root) contract (spec §6) only needs enough of the
// import graph to drive ProjectProfile's dependency map and the registry's
// ByImports query, not a faithful reconstruction of the module graph.
var importPatterns = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`(?m)^\s*(?:_ |[a-zA-Z0-9_]+ )?"([^"]+)"\s*$`),
	"python":     regexp.MustCompile(`(?m)^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`),
	"javascript": regexp.MustCompile(`(?m)(?:import\s+.*?from\s+['"]([^'"]+)['"]|require\(['"]([^'"]+)['"]\))`),
	"typescript": regexp.MustCompile(`(?m)(?:import\s+.*?from\s+['"]([^'"]+)['"]|require\(['"]([^'"]+)['"]\))`),
}

// extractImports returns the raw import targets found in content for the
// given language. Unrecognized languages yield no imports.
func extractImports(language, content string) []string {
	re, ok := importPatterns[language]
	if !ok {
		return nil
	}
	matches := re.FindAllStringSubmatch(content, -1)
	imports := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		for _, group := range m[1:] {
			if group == "" {
				continue
			}
			if _, dup := seen[group]; dup {
				continue
			}
			seen[group] = struct{}{}
			imports = append(imports, group)
		}
	}
	return imports
}
