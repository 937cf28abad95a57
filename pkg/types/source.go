package types

// SourceSpec describes one configured source: the directory to watch
// and the pattern its candidates must match. Derived once from the
// configured PATH glob at load time and immutable afterwards.
type SourceSpec struct {
	// Pattern is the raw configured PATH value, kept for reporting.
	Pattern string

	// BaseDir is the deepest wildcard-free directory of Pattern; it is
	// the directory that gets watched.
	BaseDir string

	// GlobSuffix is the remainder of Pattern below BaseDir. A pattern
	// with no wildcard addresses a literal directory, whose direct
	// children all qualify (GlobSuffix "*").
	GlobSuffix string

	// ExcludePattern rejects otherwise-included candidates of this
	// source. Empty means no per-source exclusion.
	ExcludePattern string

	// Disabled marks a spec whose pattern failed validation at load.
	// Disabled specs are never scanned or watched.
	Disabled       bool
	DisabledReason string
}

// LinkEntry records one symlink the engine created and owns inside the
// root. The link table is its sole owner.
type LinkEntry struct {
	Name      string
	SourceDir string
	Target    string
}

// ClaimResult is the outcome of claiming a link name in the root.
type ClaimResult int

const (
	// ClaimCreated: the name was free and the symlink was created.
	ClaimCreated ClaimResult = iota

	// ClaimKeptExisting: the name is already a symlink; it is left
	// untouched (first match wins).
	ClaimKeptExisting

	// ClaimSkippedConflict: the name is occupied by a regular file or
	// directory the engine does not own; nothing is touched.
	ClaimSkippedConflict
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimCreated:
		return "created"
	case ClaimKeptExisting:
		return "kept-existing"
	case ClaimSkippedConflict:
		return "skipped-conflict"
	default:
		return "unknown"
	}
}
