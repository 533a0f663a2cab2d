package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/launchdeck/ssokit/session"
)

var (
	// ErrNetwork is an exported constant or variable used by the session layer.
	ErrNetwork = errors.New("session gateway unreachable")
	// ErrSessionInvalid is an exported constant or variable used by the session layer.
	ErrSessionInvalid = errors.New("session invalid")
)

// Well-known error codes carried in typed refusals.
const (
	CodeInvalidToken    = "invalid_token"
	CodeSessionNotFound = "session_not_found"
	CodeSessionExpired  = "session_expired"
	CodeSessionRevoked  = "session_revoked"
)

// ClientContext carries best-effort client metadata gathered at login time.
// Every field may be empty; the backend records what it gets.
type ClientContext struct {
	IPAddress   string            `json:"ip_address,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	GameContext map[string]string `json:"game_context,omitempty"`
}

// ValidationResponse defines a public type used by ssokit APIs.
//
// ValidationResponse is the typed answer shape for authenticate and validate.
// Valid true carries user and session; Valid false carries a machine error
// code and a human-readable message.
type ValidationResponse struct {
	Valid   bool              `json:"valid"`
	User    *session.Identity `json:"user,omitempty"`
	Session *session.Session  `json:"session,omitempty"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`

	// StorageWarning is set client-side when the exchange succeeded but the
	// local session cache write failed, so the session will not survive a
	// restart. Backends never send it.
	StorageWarning string `json:"-"`
}

// ExtendResponse defines a public type used by ssokit APIs.
type ExtendResponse struct {
	Valid   bool             `json:"valid"`
	Session *session.Session `json:"session,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// RevokeResponse defines a public type used by ssokit APIs.
type RevokeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthStatus defines a public type used by ssokit APIs.
type HealthStatus struct {
	Healthy        bool          `json:"healthy"`
	Latency        time.Duration `json:"latency_ns"`
	ActiveSessions int           `json:"active_sessions,omitempty"`
}

// Gateway is the remote session service surface. The coordinator treats it
// as an opaque, possibly-failing dependency and must handle every failure
// shape each method documents.
type Gateway interface {
	// Authenticate exchanges a one-time token for a server-tracked session.
	Authenticate(ctx context.Context, token string, client ClientContext) (*ValidationResponse, error)
	// Validate checks whether a session id is still live server-side.
	Validate(ctx context.Context, sessionID string) (*ValidationResponse, error)
	// Extend pushes the session expiry out by the given number of hours.
	Extend(ctx context.Context, sessionID string, hours int) (*ExtendResponse, error)
	// Revoke destroys the session server-side; reason is recorded for audit.
	Revoke(ctx context.Context, sessionID, reason string) (*RevokeResponse, error)
	// ListActive returns the live sessions for a user.
	ListActive(ctx context.Context, userID string) ([]*session.Session, error)
	// Health reports backend reachability.
	Health(ctx context.Context) (*HealthStatus, error)
}
