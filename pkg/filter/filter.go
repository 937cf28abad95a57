// Package filter implements the pure inclusion decision for candidate
// paths: glob-suffix matching plus per-source and global exclusion.
// It holds no state and is safe for concurrent use.
package filter

import (
	"path/filepath"

	"github.com/Gavin1937/aggregate-linker/pkg/types"
)

// Included decides whether path (an absolute path under spec.BaseDir)
// should be linked into the root.
//
// Exclusion patterns are tested against both the bare file name and
// the full path, matching the original tool's behavior. Matching is
// case-sensitive here; case folding is the filesystem's business.
func Included(path string, spec types.SourceSpec, globalExcludes []string) bool {
	if spec.Disabled {
		return false
	}

	name := filepath.Base(path)

	for _, pat := range globalExcludes {
		if matchesEither(pat, name, path) {
			return false
		}
	}

	rel, err := filepath.Rel(spec.BaseDir, path)
	if err != nil {
		return false
	}
	ok, err := filepath.Match(spec.GlobSuffix, rel)
	if err != nil || !ok {
		return false
	}

	if spec.ExcludePattern != "" && matchesEither(spec.ExcludePattern, name, path) {
		return false
	}

	return true
}

func matchesEither(pattern, name, path string) bool {
	if ok, err := filepath.Match(pattern, name); err == nil && ok {
		return true
	}
	if ok, err := filepath.Match(pattern, path); err == nil && ok {
		return true
	}
	return false
}
