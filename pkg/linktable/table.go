// Package linktable is the in-memory record of every symlink the
// engine owns in the unified root, and the single place where the
// collision policy is enforced. All claim and release operations on a
// table serialize on one mutex, so two sources can never race for the
// same link name.
package linktable

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Gavin1937/aggregate-linker/pkg/errors"
	"github.com/Gavin1937/aggregate-linker/pkg/logging"
	"github.com/Gavin1937/aggregate-linker/pkg/types"
)

// Table owns the LinkEntry records for one root directory. Entries and
// the on-disk symlinks are mutated in pairs: an entry exists exactly
// when the engine created (or adopted) the corresponding symlink.
type Table struct {
	mu       sync.Mutex
	fs       types.FS
	root     string
	entries  map[string]types.LinkEntry
	reporter types.Reporter
	logger   zerolog.Logger
}

// New creates an empty table for the given root directory.
func New(fsys types.FS, root string, reporter types.Reporter) *Table {
	if reporter == nil {
		reporter = types.NopReporter{}
	}
	return &Table{
		fs:       fsys,
		root:     root,
		entries:  make(map[string]types.LinkEntry),
		reporter: reporter,
		logger:   logging.GetLogger("linktable"),
	}
}

// Claim tries to take ownership of name in the root, pointing at
// target. First match wins: an existing symlink is never disturbed,
// whatever it points at, and a regular file or directory is never
// touched (reported as a conflict).
//
// An existing symlink that already points at target is adopted into
// the table, so an engine restarted over its previous run's links
// re-owns them.
func (t *Table) Claim(name, sourceDir, target string) (types.ClaimResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	linkPath := filepath.Join(t.root, name)

	info, err := t.fs.Lstat(linkPath)
	if err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			if dst, rerr := t.fs.Readlink(linkPath); rerr == nil && dst == target {
				t.entries[name] = types.LinkEntry{Name: name, SourceDir: sourceDir, Target: target}
				t.logger.Debug().Str("name", name).Str("target", target).Msg("adopted existing link")
			}
			return types.ClaimKeptExisting, nil
		}
		t.logger.Warn().Str("name", name).Msg("root entry exists and is not a link, skipping")
		t.reporter.ConflictSkipped(name)
		return types.ClaimSkippedConflict, nil
	}
	if !stderrors.Is(err, fs.ErrNotExist) {
		return types.ClaimSkippedConflict, errors.Wrapf(err, errors.ErrInternal, "cannot stat %s", linkPath)
	}

	if err := t.fs.Symlink(target, linkPath); err != nil {
		return types.ClaimSkippedConflict, errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot create link %s", name)
	}

	t.entries[name] = types.LinkEntry{Name: name, SourceDir: sourceDir, Target: target}
	t.logger.Info().Str("name", name).Str("target", target).Msg("link created")
	t.reporter.LinkCreated(name, target)
	return types.ClaimCreated, nil
}

// Release removes the entry for name if it is owned by sourceDir. The
// on-disk symlink is unlinked only when it is still a symlink pointing
// at the recorded target; a manually replaced or already-gone entry is
// left alone. An empty sourceDir skips the ownership check (used for
// shutdown cleanup).
func (t *Table) Release(name, sourceDir string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.releaseLocked(name, sourceDir)
}

// ReleaseSource releases every entry owned by sourceDir, in sorted
// name order, and returns the number of entries released.
func (t *Table) ReleaseSource(sourceDir string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	released := 0
	for _, name := range t.sortedNamesLocked() {
		if t.entries[name].SourceDir == sourceDir && t.releaseLocked(name, sourceDir) {
			released++
		}
	}
	return released
}

// ReleaseAll releases every entry in the table (shutdown cleanup).
// Failures are logged, not fatal; the count of released entries is
// returned.
func (t *Table) ReleaseAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	released := 0
	for _, name := range t.sortedNamesLocked() {
		if t.releaseLocked(name, "") {
			released++
		}
	}
	return released
}

func (t *Table) releaseLocked(name, sourceDir string) bool {
	entry, ok := t.entries[name]
	if !ok {
		return false
	}
	if sourceDir != "" && entry.SourceDir != sourceDir {
		return false
	}

	// The entry leaves the table either way: if the disk no longer
	// holds our symlink, ownership of the name is already lost.
	delete(t.entries, name)

	linkPath := filepath.Join(t.root, name)
	info, err := t.fs.Lstat(linkPath)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		t.logger.Debug().Str("name", name).Msg("link already gone or replaced, nothing to remove")
		return true
	}
	if dst, err := t.fs.Readlink(linkPath); err != nil || dst != entry.Target {
		t.logger.Debug().Str("name", name).Msg("link target mismatch, leaving disk entry alone")
		return true
	}

	if err := t.fs.Remove(linkPath); err != nil {
		t.logger.Warn().Err(err).Str("name", name).Msg("failed to remove link")
		return true
	}

	t.logger.Info().Str("name", name).Msg("link removed")
	t.reporter.LinkRemoved(name)
	return true
}

// Owner returns the entry for name, if the table holds one.
func (t *Table) Owner(name string) (types.LinkEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[name]
	return entry, ok
}

// Len returns the number of owned entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) sortedNamesLocked() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
