// Package refresh is the persisted, atomically-updatable source of truth for
// refresh-family state.
//
// # Record model
//
// One Redis hash per family holds the subject, the current sequence id, the
// previously consumed sequence id, a revocation flag, and rotation
// timestamps. A refresh token is redeemable only while its sequence id equals
// the record's current sequence.
//
// # Consumption semantics
//
// TryConsume is a single Lua script, so concurrent redemptions of the same
// sequence serialize at the store: exactly one observes Won. Presenting the
// immediately-previous sequence within the configured retry grace is Lost
// (benign concurrent-tab race); any other stale sequence is Reused and
// revokes the whole family inside the same script.
//
// # Architecture boundaries
//
// This package owns family persistence and the consume decision. Token
// decoding, pair minting, and error surfacing are handled by the rotation
// flow and the Engine.
//
// # What this package must NOT do
//
//   - Parse or mint tokens.
//   - Grant anything when Redis is unavailable — failures always fail closed.
package refresh
