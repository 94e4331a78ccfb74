// Package jobs persists pipeline jobs as a single JSON index document and
// exposes helpers for driving their lifecycle.
//
// The Store owns the canonical copy of every job. All reads and mutations go
// through it under one mutex, and every mutation rewrites the whole index via
// an atomic temp-file rename before any change notification fires, so
// observers never learn about state that a crash could lose. Callers always
// receive deep snapshots, never live references.
//
// Treat this package as the single source of truth for job semantics; when
// you add statuses or fields, extend the enums here and keep AppendLog's
// bounded buffer intact.
package jobs
