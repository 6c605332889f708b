// Package store provides the SQLite-backed reference entity repository.
//
// The repository is a host collaborator: the effect core never imports
// it and reaches it only through the persist, spawn and despawn
// capabilities bound by Store.Bind. The CLI runner and the conformance
// harness use it as their concrete persistence; library consumers are
// free to bind entirely different handlers.
//
// Entity props are stored as canonical JSON. All ordering uses a
// logical write counter (seq), never wall-clock timestamps, so listing
// is deterministic across runs.
//
// Database configuration:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
