// Package preflight provides readiness checks for the directories, binaries,
// and services the daemon depends on.
//
// The checks run in two contexts:
//   - The daemon runs them once at startup and logs failures without
//     refusing to start; missing binaries can be fetched later.
//   - The CLI "murmur status" command renders individual check results so
//     the operator can see what is missing before submitting work.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
