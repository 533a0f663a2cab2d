// Package claims implements the signed-claims codec: it turns a verified
// identity plus authorization snapshot into a compact three-segment token,
// and verifies such tokens including signature, issuer/audience, expiry, and
// schema-version checks.
//
// # Design
//
// Generation derives; verification trusts-but-checks. [Manager.Generate] is
// the only place capability flags and allowed-game lists are computed (from
// the role hierarchy in package role), so a caller can never smuggle its own
// permissions into a token. [Manager.Verify] re-derives nothing: it
// authenticates exactly what generation embedded and hands the typed claims
// back unchanged.
//
// Signing keys are scoped per environment through the token header's kid
// field, so a staging token can never verify against production key material.
//
// # Architecture boundaries
//
// This package knows nothing about sessions, storage, or the coordinator.
// Its only dependencies are package role, package session (for the identity
// shape), and github.com/golang-jwt/jwt/v5.
//
// # What this package must NOT do
//
//   - Accept caller-supplied permissions or allowed_games values.
//   - Perform network or storage I/O.
//   - Panic on malformed input; every expected failure maps to a typed error.
package claims
