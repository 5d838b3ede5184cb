// Package rate provides the Redis-backed login attempt counters and the pure
// backoff curve behind them.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit, keyed by
// identity and by IP per time window. The counter lives in the store, not in
// the process, so backoff state survives restarts and is shared across
// instances.
//
// # What this package must NOT do
//
//   - Sleep or touch transport — Delay is a pure function the host schedules.
//   - Be imported outside the gsnauth module.
package rate
