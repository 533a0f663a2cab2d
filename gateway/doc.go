// Package gateway defines the remote session service surface the coordinator
// depends on, plus two implementations: [HTTPGateway], the JSON-over-HTTP
// client used against the real portal backend, and [RedisGateway], a complete
// Redis-backed session service used as the reference backend for integration
// tests and self-hosted deployments.
//
// # Failure shapes
//
// Every operation distinguishes a typed refusal (the service answered and
// said no: response with Valid/Success false and an error code) from a
// transport failure (the service could not be reached: a non-nil error
// wrapping [ErrNetwork]). The coordinator treats both as unauthenticated but
// reports them differently.
//
// # What this package must NOT do
//
//   - Touch the local session slot; that belongs to store/.
//   - Hold coordinator state; implementations are stateless per call apart
//     from their backing connection.
package gateway
