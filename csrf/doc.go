// Package csrf gates mutating requests with double-submit validation,
// branching on same-site versus cross-site cookie mode.
//
// Same-site mode requires a matching cookie+header pair. Cross-site mode
// (samesite=none) additionally requires an explicit intent header, because
// browsers may not reliably resend the CSRF cookie right after a redirect;
// its missing-material failures are 400s (caller-fixable request shape),
// deliberately distinct from the 403 forgery signals.
//
// The validator only classifies — it has no side effects.
package csrf
