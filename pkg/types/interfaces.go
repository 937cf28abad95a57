package types

import "io/fs"

// FS abstracts the filesystem operations aggregate-linker performs,
// allowing tests to substitute implementations. The OS-backed
// implementation lives in pkg/filesystem.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	MkdirAll(path string, perm fs.FileMode) error
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)
	Remove(name string) error
}

// Reporter receives structured notifications about engine actions for
// human-readable presentation. The terminal implementation lives in
// pkg/ui; NopReporter is for tests and quiet operation.
type Reporter interface {
	LinkCreated(name, target string)
	LinkRemoved(name string)
	ConflictSkipped(name string)
	HealStarted(sourceDir string)
	HealCompleted(sourceDir string, created int)
	SpecDisabled(pattern, reason string)
}

// NopReporter discards all notifications.
type NopReporter struct{}

func (NopReporter) LinkCreated(string, string)  {}
func (NopReporter) LinkRemoved(string)          {}
func (NopReporter) ConflictSkipped(string)      {}
func (NopReporter) HealStarted(string)          {}
func (NopReporter) HealCompleted(string, int)   {}
func (NopReporter) SpecDisabled(string, string) {}
