// Package types defines the shared types used across aggregate-linker:
// the filesystem event model consumed by the engine, the source
// specification derived from configuration, the link ownership record,
// and the interfaces (FS, EventSource, Reporter) that decouple the
// reconciliation core from the OS and the presentation layer.
package types
