// Package role models the fixed permission hierarchy used by the SSO session
// layer: host < org_admin < super_admin, plus per-game access grants.
//
// # Design
//
// Role is a closed type. Rank lookups on unknown roles return -1, and every
// comparison in this package treats an unknown role as a hard deny. Game
// access is deliberately independent of rank: it is a plain membership test
// over the identity's game grants.
//
// # Architecture boundaries
//
// This package owns role comparison and capability derivation. It performs no
// I/O and imports nothing outside the standard library, so both the claims
// codec and the session coordinator can depend on it freely.
//
// # What this package must NOT do
//
//   - Accept caller-supplied capability flags. [Derive] is the only source of
//     [Capabilities]; trusting external flags would break the token trust
//     boundary.
//   - Grant anything for a role outside the known set.
package role
