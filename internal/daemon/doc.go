// Package daemon coordinates the long-running newsreel process and its HTTP
// surface.
//
// It wires configuration, queue storage, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon also owns the HTTP API: manual story submission, queue listing,
// per-job inspection, image retry, and the status and health endpoints served
// on the configured bind address.
//
// Keep orchestration logic here: individual workflow lanes live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
