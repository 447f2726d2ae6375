package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalkDiscoversRecognizedFilesAndSkipsIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nimport (\n\t\"fmt\"\n)\n\nfunc main() { fmt.Println(\"hi\") }\n")
	writeFile(t, root, "internal/util/helper.go", "package util\n")
	writeFile(t, root, "vendor/thirdparty/thing.go", "package thirdparty\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, root, "README.md", "# hi\n")

	files, err := Walk(root, Options{})
	require.NoError(t, err)

	paths := make(map[string]bool)
	for _, f := range files {
		paths[f.Path] = true
	}
	assert.True(t, paths["main.go"])
	assert.True(t, paths["internal/util/helper.go"])
	assert.True(t, paths["README.md"])
	assert.False(t, paths["vendor/thirdparty/thing.go"])
	assert.False(t, paths["node_modules/pkg/index.js"])
}

func TestWalkComputesLineCountAndHash(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\nfunc main() {}\n")

	files, err := Walk(root, Options{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 2, files[0].LineCount)
	assert.Len(t, files[0].ContentHash, 64)
}

func TestWalkExtractsGoImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nimport (\n\t\"fmt\"\n\tfoo \"example.com/foo\"\n)\n\nfunc main() {}\n")

	files, err := Walk(root, Options{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Imports, "fmt")
	assert.Contains(t, files[0].Imports, "example.com/foo")
}

func TestWalkHonorsExtraIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "generated/schema.go", "package generated\n")
	writeFile(t, root, "main.go", "package main\n")

	files, err := Walk(root, Options{IgnorePatterns: []string{"**/generated/**"}})
	require.NoError(t, err)

	for _, f := range files {
		assert.NotContains(t, f.Path, "generated/")
	}
}

func TestDetectLanguageCoversCommonExtensions(t *testing.T) {
	assert.Equal(t, "go", detectLanguage("pkg/thing.go"))
	assert.Equal(t, "python", detectLanguage("script.py"))
	assert.Equal(t, "", detectLanguage("binary.exe"))
}
