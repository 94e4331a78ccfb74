// Package daemon wires the job store, worker queue, artifact manager, and
// inbox watcher into one background process guarded by a file lock, and
// exposes the operations the IPC surface forwards to.
package daemon
