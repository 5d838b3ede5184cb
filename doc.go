// Package gsnauth manages browser session credentials: short-lived JWT
// access tokens, rotating refresh-token families with replay detection,
// cookie attribute policy, and double-submit CSRF validation.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// gsnauth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Session, WhoamiResult, MetricsSnapshot). Flow
// orchestration, randomness, and rate limiting live under internal/ and
// are never exported. The token, cookie, csrf, and refresh sub-packages
// are importable on their own for hosts that only need one concern.
//
// # What this package must NOT do
//
//   - Store or hash passwords; credential verification is delegated to the
//     host through [CredentialVerifier].
//   - Expose Redis clients or key layouts in its public API.
//   - Import any sub-package that re-imports gsnauth (no import cycles).
//
// # Performance contract
//
// VerifyAccess is the hot path: no Redis round-trips, one allocation for
// the returned claims. Login, Refresh, and Logout are allowed one Redis
// round-trip each.
package gsnauth
