// Package flows contains pure-function orchestrators for every Engine
// operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, RunWhoami) accepts a
// typed dependency struct and returns a result without side-effects beyond
// those dependencies. This keeps the Engine type thin and lets every branch
// be unit tested with mock dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate the refresh store, token codec, rate limiter,
// audit dispatcher, and metrics. They do NOT own any of these resources —
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import gsnauth (to avoid import cycles).
//   - Perform I/O directly — all I/O is mediated through dependencies.
package flows
