package ssokit

import (
	"errors"
	"time"

	"github.com/launchdeck/ssokit/claims"
)

// Config defines a public type used by ssokit APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	Claims  claims.Config
	Session SessionConfig
	Renewal RenewalConfig
	Client  ClientConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by ssokit APIs.
type SessionConfig struct {
	// StorageKey names the single storage slot; empty selects the package
	// default.
	StorageKey string
	// DefaultExtendHours is the extension length used by background renewal
	// and by Extend calls that pass zero.
	DefaultExtendHours int
}

/*
====================================
RENEWAL CONFIG
====================================
*/

// RenewalConfig defines a public type used by ssokit APIs.
type RenewalConfig struct {
	Enabled bool
	// Interval is the wall-clock cadence of the renewal check.
	Interval time.Duration
	// Threshold is the remaining-lifetime floor below which the session is
	// extended.
	Threshold time.Duration
}

/*
====================================
CLIENT CONTEXT CONFIG
====================================
*/

// ClientConfig defines a public type used by ssokit APIs.
type ClientConfig struct {
	// IPLookupURL is the best-effort client IP echo endpoint. Empty disables
	// the lookup; login proceeds with the fallback value.
	IPLookupURL   string
	LookupTimeout time.Duration
	UserAgent     string
	// GameContext is attached to every authenticate call, e.g.
	// {game, version, entry_point}.
	GameContext map[string]string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by ssokit APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by ssokit APIs.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the development-friendly preset: renewal on a
// 30-minute cadence with a 2-hour threshold, audit and metrics off.
func DefaultConfig() Config {
	return Config{
		Claims: claims.Config{
			DefaultTTL:   8 * time.Hour,
			RoleTokenTTL: 2 * time.Hour,
		},
		Session: SessionConfig{
			DefaultExtendHours: 8,
		},
		Renewal: RenewalConfig{
			Enabled:   true,
			Interval:  30 * time.Minute,
			Threshold: 2 * time.Hour,
		},
		Client: ClientConfig{
			LookupTimeout: 3 * time.Second,
			UserAgent:     "ssokit-client/1.0",
		},
	}
}

// ProductionPreset returns [DefaultConfig] with audit and metrics enabled
// and a non-blocking audit buffer.
func ProductionPreset() Config {
	cfg := DefaultConfig()
	cfg.Audit = AuditConfig{
		Enabled:    true,
		BufferSize: 256,
		DropIfFull: true,
	}
	cfg.Metrics = MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	}
	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.Renewal.Enabled {
		if cfg.Renewal.Interval <= 0 {
			return errors.New("renewal interval must be positive")
		}
		if cfg.Renewal.Threshold <= 0 {
			return errors.New("renewal threshold must be positive")
		}
	}
	if cfg.Session.DefaultExtendHours < 0 {
		return errors.New("default extend hours must not be negative")
	}
	if cfg.Client.LookupTimeout < 0 {
		return errors.New("lookup timeout must not be negative")
	}
	return nil
}
