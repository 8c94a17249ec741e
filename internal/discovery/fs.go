package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoPipelines indicates that no pipeline files were found during discovery.
var ErrNoPipelines = errors.New("no pipelines discovered")

// BackupSuffix marks the copies kept of rewritten files.
const BackupSuffix = ".bak"

var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
}

// Pipelines returns pipeline file paths relative to root. If explicit paths
// are provided they are validated and returned in the order given. Otherwise
// the tree is walked and files matching any include glob are returned sorted
// lexicographically.
func Pipelines(root string, explicit, include []string) ([]string, error) {
	if len(explicit) > 0 {
		return resolveExplicit(root, explicit)
	}
	for _, pattern := range include {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
	}

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		// Backups written by a previous migration are never pipelines.
		if strings.HasSuffix(d.Name(), BackupSuffix) {
			return nil
		}
		rel := mustRelOrClean(root, p)
		if matchesAny(filepath.ToSlash(rel), include) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", root, err)
	}
	if len(paths) == 0 {
		return nil, ErrNoPipelines
	}
	sort.Strings(paths)
	return paths, nil
}

// matchesAny reports whether rel matches one of the globs. A glob with a
// slash is matched against the whole relative path, one without against the
// base name so it applies at any depth.
func matchesAny(rel string, globs []string) bool {
	base := path.Base(rel)
	for _, g := range globs {
		target := base
		if strings.Contains(g, "/") {
			target = rel
		}
		if ok, _ := path.Match(g, target); ok {
			return true
		}
	}
	return false
}

func resolveExplicit(root string, explicit []string) ([]string, error) {
	seen := make(map[string]struct{})
	resolved := make([]string, 0, len(explicit))
	for _, input := range explicit {
		cleaned := input
		if !filepath.IsAbs(cleaned) {
			cleaned = filepath.Join(root, cleaned)
		}
		info, err := os.Stat(cleaned)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("pipeline %q not found", input)
			}
			return nil, fmt.Errorf("stat %q: %w", input, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("pipeline %q is a directory", input)
		}
		rel := mustRelOrClean(root, cleaned)
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}
		resolved = append(resolved, rel)
	}
	if len(resolved) == 0 {
		return nil, ErrNoPipelines
	}
	return resolved, nil
}

func mustRelOrClean(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.Clean(p)
	}
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return filepath.Clean(p)
	}
	return rel
}
