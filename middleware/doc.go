// Package middleware exposes HTTP middleware adapters built on top of
// gsnauth.Engine.
//
//   - [Guard] — access-token enforcement, cookie first then bearer header.
//   - [RequireScope] — scope check layered inside a Guard chain.
//   - [CSRF] — double-submit validation for mutating requests.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// the Engine.
package middleware
