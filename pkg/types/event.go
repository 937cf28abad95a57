package types

// EventType classifies a filesystem change event.
type EventType int

const (
	EventCreated EventType = iota
	EventDeleted
	EventModified
	EventRenamed
)

// String returns a human-readable representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDeleted:
		return "deleted"
	case EventModified:
		return "modified"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one filesystem change as observed by an EventSource.
// Path is absolute. IsDir reflects the entry's type at event time; for
// a deleted path it is false (the entry can no longer be inspected) and
// the engine classifies it by whether the path names a watched source.
type Event struct {
	Type  EventType
	Path  string
	IsDir bool
}

// EventSource is the abstract stream of filesystem events the engine
// consumes. The fsnotify-backed implementation lives in pkg/watcher;
// tests substitute their own.
type EventSource interface {
	// Add starts delivering events for the direct children of dir
	// (non-recursive) and for dir itself.
	Add(dir string) error

	// Remove stops watching dir. Removing a path that is not watched
	// is not an error.
	Remove(dir string) error

	// Events returns the event channel. It is closed by Close.
	Events() <-chan Event

	// Errors returns the channel of watch-mechanism errors.
	Errors() <-chan error

	// Close stops the source and closes both channels.
	Close() error
}
