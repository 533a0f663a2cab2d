// Package ssokit provides the client-side SSO session layer for embedded
// game clients: it exchanges a one-time portal token for a verified identity
// and a locally cached session, enforces role- and game-scoped authorization,
// and keeps the session alive through background renewal.
//
// The package is designed around explicit dependency injection: the remote
// session gateway, the storage port, the clock, and the audit sink are all
// supplied through [Builder], so tests substitute fakes without any global
// state.
//
// # Architecture boundaries
//
// ssokit is the public surface. It exposes [Coordinator], [Builder],
// [Config], and value types (State, ValidationResponse aliases, audit
// aliases). Token signing lives in claims/, role comparison in role/, the
// local cache in store/, and transport in gateway/; the coordinator is the
// only component that composes them.
//
// # What this package must NOT do
//
//   - Let an internal error escape a public Coordinator method; every
//     failure maps onto a typed response or the error state field.
//   - Touch the storage slot except through store/.
//   - Mutate coordinator state after Close; stale in-flight responses are
//     discarded by epoch.
package ssokit
