// Package internal contains helper utilities that are intentionally private
// to gsnauth, including secure generation of family, sequence, CSRF, and
// session-marker material.
//
// # Sub-packages
//
//   - flows — pure-function flow orchestrators for every Engine operation
//   - rate — Redis-backed login attempt counters and the pure backoff curve
//
// # What this package must NOT do
//
//   - Export types that appear in the public gsnauth API.
//   - Be imported by any package outside the gsnauth module.
package internal
