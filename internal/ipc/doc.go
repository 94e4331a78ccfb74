// Package ipc exposes daemon control over JSON-RPC on a Unix domain
// socket. The server registers a single "Murmur" service; the client
// wraps each method with a typed call. Request and response payloads
// are plain structs so the CLI and daemon stay wire-compatible without
// a shared schema step.
package ipc
