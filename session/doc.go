// Package session defines the domain model shared across the SSO client:
// the verified [Identity] asserted by the login portal and the server-tracked
// [Session] record mirrored locally.
//
// # Architecture boundaries
//
// This package holds data shapes only. Persistence lives in store/, transport
// in gateway/, and lifecycle orchestration in the root ssokit package.
//
// # What this package must NOT do
//
//   - Perform I/O or talk to Redis/HTTP.
//   - Import any sibling package other than role/.
package session
