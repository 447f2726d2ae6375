package discovery

import "path/filepath"

// languageByExt is a pragmatic extension-to-language table. It does not aim
// to be exhaustive, only to cover the languages a documentation pipeline
// commonly runs against.
var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".kt":    "kotlin",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".sql":   "sql",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".md":    "markdown",
}

// detectLanguage maps a file path's extension to a language tag, or "" for
// an extension this pipeline doesn't recognize as source.
func detectLanguage(path string) string {
	return languageByExt[filepath.Ext(path)]
}
