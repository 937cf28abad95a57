// Package reconcile translates filesystem observations about source
// files into link table operations: the startup/heal full scan and the
// per-event create/delete reconciliation.
package reconcile

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Gavin1937/aggregate-linker/pkg/errors"
	"github.com/Gavin1937/aggregate-linker/pkg/filter"
	"github.com/Gavin1937/aggregate-linker/pkg/linktable"
	"github.com/Gavin1937/aggregate-linker/pkg/logging"
	"github.com/Gavin1937/aggregate-linker/pkg/types"
)

// ScanStats summarizes one full scan of a source.
type ScanStats struct {
	Created int
	Kept    int
	Skipped int
}

// Reconciler applies filter decisions against the link table. It is
// not safe for concurrent use; the engine drives it from a single
// goroutine.
type Reconciler struct {
	fs             types.FS
	table          *linktable.Table
	globalExcludes []string
	logger         zerolog.Logger
}

// New creates a Reconciler over the given table.
func New(fsys types.FS, table *linktable.Table, globalExcludes []string) *Reconciler {
	return &Reconciler{
		fs:             fsys,
		table:          table,
		globalExcludes: globalExcludes,
		logger:         logging.GetLogger("reconcile"),
	}
}

// Scan enumerates everything under spec.BaseDir matching the glob
// suffix, in lexicographic order, and claims a link for each candidate
// that passes filtering. Entries vanishing mid-scan are skipped
// silently; permission failures are logged and skipped.
func (r *Reconciler) Scan(spec types.SourceSpec) ScanStats {
	var stats ScanStats
	if spec.Disabled {
		return stats
	}

	for _, path := range r.expand(spec.BaseDir, spec.GlobSuffix) {
		if !filter.Included(path, spec, r.globalExcludes) {
			continue
		}
		result, ok := r.claim(spec, path)
		if !ok {
			continue
		}
		switch result {
		case types.ClaimCreated:
			stats.Created++
		case types.ClaimKeptExisting:
			stats.Kept++
		case types.ClaimSkippedConflict:
			stats.Skipped++
		}
	}

	r.logger.Debug().
		Str("source", spec.BaseDir).
		Int("created", stats.Created).
		Int("kept", stats.Kept).
		Int("skipped", stats.Skipped).
		Msg("scan complete")
	return stats
}

// FileCreated handles a create event for a path under a watched
// source.
func (r *Reconciler) FileCreated(spec types.SourceSpec, path string) {
	if !filter.Included(path, spec, r.globalExcludes) {
		return
	}
	r.claim(spec, path)
}

// FileDeleted handles a delete event for a path under a watched
// source. The link is released only if this source owns it; a
// coinciding name claimed by another source stays put.
func (r *Reconciler) FileDeleted(spec types.SourceSpec, path string) {
	r.table.Release(filepath.Base(path), spec.BaseDir)
}

// claim stats the candidate (it may have vanished since it was
// observed) and claims its name. Returns ok=false when the candidate
// was skipped without a claim result.
func (r *Reconciler) claim(spec types.SourceSpec, path string) (types.ClaimResult, bool) {
	if _, err := r.fs.Lstat(path); err != nil {
		// Vanished between observation and linking.
		return 0, false
	}

	result, err := r.table.Claim(filepath.Base(path), spec.BaseDir, path)
	if err != nil {
		if errors.IsCode(err, errors.ErrSymlinkCreate) {
			r.logger.Warn().Err(err).Str("path", path).Msg("cannot link candidate, skipping")
		} else {
			r.logger.Error().Err(err).Str("path", path).Msg("claim failed")
		}
		return 0, false
	}
	return result, true
}

// expand resolves the glob suffix component by component below base,
// returning matching paths in lexicographic order. Unreadable
// directories contribute nothing.
func (r *Reconciler) expand(base, suffix string) []string {
	parts := strings.Split(suffix, string(filepath.Separator))
	dirs := []string{base}

	for i, part := range parts {
		last := i == len(parts)-1
		var next []string
		for _, dir := range dirs {
			entries, err := r.fs.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				ok, err := filepath.Match(part, e.Name())
				if err != nil || !ok {
					continue
				}
				if !last && !e.IsDir() {
					continue
				}
				next = append(next, filepath.Join(dir, e.Name()))
			}
		}
		dirs = next
	}

	sort.Strings(dirs)
	return dirs
}
