package ssokit

import (
	"io"

	internalaudit "github.com/launchdeck/ssokit/internal/audit"

	"github.com/launchdeck/ssokit/gateway"
	"github.com/launchdeck/ssokit/role"
	"github.com/launchdeck/ssokit/session"
)

// Identity is the verified identity asserted by the login portal.
//
//	See package session for the field contract.
type Identity = session.Identity

// Session is the server-tracked session record mirrored locally.
type Session = session.Session

// Role is the closed role type used for permission comparisons.
type Role = role.Role

const (
	// RoleHost is an exported constant or variable used by the session layer.
	RoleHost = role.Host
	// RoleOrgAdmin is an exported constant or variable used by the session layer.
	RoleOrgAdmin = role.OrgAdmin
	// RoleSuperAdmin is an exported constant or variable used by the session layer.
	RoleSuperAdmin = role.SuperAdmin
)

// ValidationResponse is the typed answer shape returned by [Coordinator.Login].
type ValidationResponse = gateway.ValidationResponse

// ClientContext carries best-effort client metadata gathered at login time.
type ClientContext = gateway.ClientContext

// AuditEvent is a structured audit record emitted by the coordinator.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the coordinator's audit
// dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// Audit event types emitted by the coordinator.
const (
	// EventLoginSuccess is an exported constant or variable used by the session layer.
	EventLoginSuccess = "login_success"
	// EventLoginFailure is an exported constant or variable used by the session layer.
	EventLoginFailure = "login_failure"
	// EventLogout is an exported constant or variable used by the session layer.
	EventLogout = "logout"
	// EventSessionValidated is an exported constant or variable used by the session layer.
	EventSessionValidated = "session_validated"
	// EventSessionInvalidated is an exported constant or variable used by the session layer.
	EventSessionInvalidated = "session_invalidated"
	// EventSessionRenewed is an exported constant or variable used by the session layer.
	EventSessionRenewed = "session_renewed"
)
