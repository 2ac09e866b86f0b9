// Package discover implements the reference discovery collaborator
// (spec.md §4.G phase 1 / §6): `discover_files(roots, include, exclude) →
// path[]`. It is an adapter over the root file package's Match (the
// teacher's filesystem-walking doublestar.Glob), not a from-scratch walker:
// discovery genuinely needs to touch the filesystem, unlike
// internal/classify's pure string matching against live-reported paths.
package discover

import (
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	rootfile "github.com/covlang/scriptcov/file"
)

// Files enumerates every path under roots matching any of include and none
// of exclude, per spec.md §6's discover_files contract. Results are
// deduplicated, sorted, and use forward slashes regardless of host OS.
func Files(roots, include, exclude []string) ([]string, error) {
	if len(roots) == 0 {
		roots = []string{"."}
	}

	if len(include) == 0 {
		include = []string{"**/*"}
	}

	patterns := make([]string, 0, len(roots)*len(include))
	for _, root := range roots {
		for _, inc := range include {
			patterns = append(patterns, filepath.ToSlash(filepath.Join(root, inc)))
		}
	}

	matches, err := rootfile.Match(patterns...)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(matches))

	out := make([]string, 0, len(matches))

	for _, m := range matches {
		m = filepath.ToSlash(m)
		if seen[m] {
			continue
		}

		if excluded(m, exclude) {
			continue
		}

		seen[m] = true

		out = append(out, m)
	}

	sort.Strings(out)

	return out, nil
}

func excluded(p string, exclude []string) bool {
	base := path.Base(p)

	for _, pat := range exclude {
		if ok, err := doublestar.Match(pat, p); err == nil && ok {
			return true
		}

		if ok, err := doublestar.Match(pat, base); err == nil && ok {
			return true
		}
	}

	return false
}
