// Package discovery implements the File Discovery boundary spec §1 names as
// out of scope for the core ("the core consumes a pre-computed file list")
// and spec §4.5 Phase 2's in-scope tier assignment. Walk satisfies the
// discover(root) contract from spec §6; AssignTier is the in-core logic a
// Phase Scheduler driver calls once per discovered file.
package discovery

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/doculoom/engine/internal/model"
)

// maxScanBytes caps how much of a file is read for line-count/hash/import
// extraction, so one enormous generated file can't stall discovery.
const maxScanBytes = 2 << 20 // 2 MiB

// Options configures a Walk call.
type Options struct {
	IgnorePatterns []string // extra glob patterns, in addition to the defaults
}

// Walk enumerates every non-ignored regular file under root and returns it
// as a model.DiscoveredFile with language, line count, content hash, and a
// best-effort import list populated. Paths are returned relative to root,
// slash-separated, and sorted for deterministic downstream ordering.
func Walk(root string, opts Options) ([]model.DiscoveredFile, error) {
	ignores := newIgnoreSet(opts.IgnorePatterns)

	var files []model.DiscoveredFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if ignores.Matches(rel + "/**") {
				return filepath.SkipDir
			}
			return nil
		}
		if ignores.Matches(rel) {
			return nil
		}

		lang := detectLanguage(rel)
		if lang == "" {
			return nil
		}

		df, scanErr := scanFile(path, rel, lang)
		if scanErr != nil {
			return scanErr
		}
		files = append(files, df)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func scanFile(path, rel, lang string) (model.DiscoveredFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.DiscoveredFile{}, err
	}
	defer f.Close()

	limited := io.LimitReader(f, maxScanBytes)
	content, err := io.ReadAll(limited)
	if err != nil {
		return model.DiscoveredFile{}, err
	}

	sum := sha256.Sum256(content)
	return model.DiscoveredFile{
		Path:        rel,
		Language:    lang,
		LineCount:   countLines(content),
		ContentHash: hex.EncodeToString(sum[:]),
		Imports:     extractImports(lang, string(content)),
	}, nil
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n
}
