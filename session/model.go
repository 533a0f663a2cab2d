package session

import (
	"time"

	"github.com/launchdeck/ssokit/role"
)

// Identity defines a public type used by ssokit APIs.
//
// Identity is owned by the backend; the client only ever holds a copy
// attached to a session and treats it as immutable once issued.
type Identity struct {
	ID               string            `json:"id"`
	Email            string            `json:"email"`
	FullName         string            `json:"full_name,omitempty"`
	Role             role.Role         `json:"role"`
	Games            []role.GameGrant  `json:"games,omitempty"`
	OrganizationType string            `json:"organization_type,omitempty"`
	DistrictInfo     map[string]string `json:"district_info,omitempty"`
	SchoolInfo       map[string]string `json:"school_info,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Session defines a public type used by ssokit APIs.
//
// Session mirrors the server-tracked session record. It is created by the
// gateway on successful authentication, mutated only through extension, and
// destroyed by revocation or natural expiry.
type Session struct {
	SessionID       string            `json:"session_id"`
	UserID          string            `json:"user_id"`
	Email           string            `json:"email"`
	PermissionLevel role.Role         `json:"permission_level"`
	ExpiresAt       time.Time         `json:"expires_at"`
	CreatedAt       time.Time         `json:"created_at"`
	LastActivity    time.Time         `json:"last_activity"`
	IsActive        bool              `json:"is_active"`
	GameContext     map[string]string `json:"game_context,omitempty"`
}

// Expired reports whether the session's expiry is at or before now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.After(now)
}

// RemainingLifetime returns the time left until expiry, clamped at zero.
func (s *Session) RemainingLifetime(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clone returns a deep copy so coordinator state snapshots never alias
// caller-visible maps.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.GameContext = cloneStringMap(s.GameContext)
	return &out
}

// Clone returns a deep copy of the identity.
func (id *Identity) Clone() *Identity {
	if id == nil {
		return nil
	}
	out := *id
	if len(id.Games) > 0 {
		out.Games = make([]role.GameGrant, len(id.Games))
		copy(out.Games, id.Games)
	}
	out.DistrictInfo = cloneStringMap(id.DistrictInfo)
	out.SchoolInfo = cloneStringMap(id.SchoolInfo)
	out.Metadata = cloneStringMap(id.Metadata)
	return &out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
