// Package store implements the durable local session cache: the last known
// session plus its identity, serialized as JSON under a single well-known
// storage slot.
//
// # Design
//
// The slot lives behind the [KV] port so the cache is unit-testable against
// [MemoryKV] and deployable against [RedisKV]. Losing the cached session is
// always recoverable (the user re-authenticates), so the store degrades to
// "no session" instead of propagating corruption: a payload that is not valid
// JSON or lacks its required fields is cleared on load and never surfaced.
//
// # Architecture boundaries
//
// Only the session coordinator calls this package, and only this package
// touches the storage slot. No other component may write to it.
//
// # What this package must NOT do
//
//   - Return a partially populated session.
//   - Let a failing Clear propagate; clearing is itself failure recovery.
//   - Validate sessions against the backend; that is the coordinator's job.
package store
