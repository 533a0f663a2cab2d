package internaldefs

import (
	ssokit "github.com/launchdeck/ssokit"
)

// CounterDef defines a public type used by ssokit APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   ssokit.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by ssokit APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   ssokit.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session coordinator.
var CounterDefs = []CounterDef{
	{ID: ssokit.MetricLoginSuccess, Name: "ssokit_login_success_total", Help: "Successful login exchanges."},
	{ID: ssokit.MetricLoginFailure, Name: "ssokit_login_failure_total", Help: "Failed login exchanges."},
	{ID: ssokit.MetricLoginCoalesced, Name: "ssokit_login_coalesced_total", Help: "Duplicate login calls coalesced into an in-flight exchange."},
	{ID: ssokit.MetricLogout, Name: "ssokit_logout_total", Help: "Logout operations."},
	{ID: ssokit.MetricRevokeFailed, Name: "ssokit_revoke_failed_total", Help: "Best-effort revoke calls that failed."},
	{ID: ssokit.MetricSessionValidated, Name: "ssokit_session_validated_total", Help: "Sessions accepted by backend re-validation."},
	{ID: ssokit.MetricSessionInvalidated, Name: "ssokit_session_invalidated_total", Help: "Sessions rejected by the backend and cleaned up locally."},
	{ID: ssokit.MetricSessionExtended, Name: "ssokit_session_extended_total", Help: "Successful session extensions."},
	{ID: ssokit.MetricExtendFailed, Name: "ssokit_extend_failed_total", Help: "Failed session extensions."},
	{ID: ssokit.MetricRenewalTriggered, Name: "ssokit_renewal_triggered_total", Help: "Background renewal attempts."},
	{ID: ssokit.MetricStorageSaveFailed, Name: "ssokit_storage_save_failed_total", Help: "Session cache writes that failed."},
}

// HistogramDefs is an exported constant or variable used by the session coordinator.
var HistogramDefs = []HistogramDef{
	{ID: ssokit.MetricLoginLatency, Name: "ssokit_login_latency_seconds", Help: "Login exchange latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session coordinator.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the session coordinator.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
