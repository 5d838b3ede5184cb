package internaldefs

import (
	gsnauth "github.com/7L7K/gsnauth"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   gsnauth.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   gsnauth.MetricID
	Name string
	Help string
}

// CounterDefs maps every engine counter to its exposition name. Both
// exporters read this list so names never drift between them.
var CounterDefs = []CounterDef{
	{ID: gsnauth.MetricLoginSuccess, Name: "gsnauth_login_success_total", Help: "Successful login attempts."},
	{ID: gsnauth.MetricLoginFailure, Name: "gsnauth_login_failure_total", Help: "Failed login attempts."},
	{ID: gsnauth.MetricLoginRateLimited, Name: "gsnauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: gsnauth.MetricRefreshSuccess, Name: "gsnauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: gsnauth.MetricRefreshLost, Name: "gsnauth_refresh_lost_total", Help: "Refresh attempts that lost a benign rotation race."},
	{ID: gsnauth.MetricRefreshInvalid, Name: "gsnauth_refresh_invalid_total", Help: "Refresh attempts with invalid, expired, or revoked tokens."},
	{ID: gsnauth.MetricRefreshReuseDetected, Name: "gsnauth_refresh_reuse_detected_total", Help: "Detected refresh token replays."},
	{ID: gsnauth.MetricLogout, Name: "gsnauth_logout_total", Help: "Single-family logout operations."},
	{ID: gsnauth.MetricLogoutAll, Name: "gsnauth_logout_all_total", Help: "Logout-all operations."},
	{ID: gsnauth.MetricCSRFRejected, Name: "gsnauth_csrf_rejected_total", Help: "Requests rejected by CSRF validation."},
	{ID: gsnauth.MetricStoreUnavailable, Name: "gsnauth_store_unavailable_total", Help: "Operations failed closed on store unavailability."},
	{ID: gsnauth.MetricWhoamiAuthenticated, Name: "gsnauth_whoami_authenticated_total", Help: "Whoami probes answered with a valid session."},
	{ID: gsnauth.MetricWhoamiAnonymous, Name: "gsnauth_whoami_anonymous_total", Help: "Whoami probes answered anonymous."},
}

// HistogramDefs lists the exported histograms.
var HistogramDefs = []HistogramDef{
	{ID: gsnauth.MetricVerifyLatency, Name: "gsnauth_verify_latency_seconds", Help: "Access token verification latency histogram."},
}

// HistogramBounds are the upper bucket bounds matching the engine's
// fixed histogram layout.
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

// HistogramBoundSuffix holds metric-name-safe spellings of the bounds
// for backends without native histogram support.
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

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// both exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
