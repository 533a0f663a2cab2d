package ssokit

import (
	"errors"

	"github.com/launchdeck/ssokit/claims"
	"github.com/launchdeck/ssokit/gateway"
	"github.com/launchdeck/ssokit/store"
)

var (
	// ErrNoActiveSession is an exported constant or variable used by the session layer.
	ErrNoActiveSession = errors.New("no active session")
	// ErrCoordinatorClosed is an exported constant or variable used by the session layer.
	ErrCoordinatorClosed = errors.New("coordinator closed")
)

// Re-exported component errors so callers have a single taxonomy to match
// against with errors.Is.
var (
	// ErrTokenMalformed is an exported constant or variable used by the session layer.
	ErrTokenMalformed = claims.ErrMalformed
	// ErrSignatureInvalid is an exported constant or variable used by the session layer.
	ErrSignatureInvalid = claims.ErrSignatureInvalid
	// ErrTokenExpired is an exported constant or variable used by the session layer.
	ErrTokenExpired = claims.ErrExpired
	// ErrInvalidIdentity is an exported constant or variable used by the session layer.
	ErrInvalidIdentity = claims.ErrInvalidIdentity
	// ErrInsufficientPermissions is an exported constant or variable used by the session layer.
	ErrInsufficientPermissions = claims.ErrInsufficientPermissions
	// ErrStorageUnavailable is an exported constant or variable used by the session layer.
	ErrStorageUnavailable = store.ErrUnavailable
	// ErrStorageQuotaExceeded is an exported constant or variable used by the session layer.
	ErrStorageQuotaExceeded = store.ErrQuotaExceeded
	// ErrNetwork is an exported constant or variable used by the session layer.
	ErrNetwork = gateway.ErrNetwork
	// ErrSessionInvalid is an exported constant or variable used by the session layer.
	ErrSessionInvalid = gateway.ErrSessionInvalid
)
