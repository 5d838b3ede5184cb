package rate

import "errors"

// ErrRateLimited means the identity or IP has exhausted its attempt budget
// for the current window.
var ErrRateLimited = errors.New("rate limited")

// ErrStoreUnavailable wraps Redis failures; callers fail closed.
var ErrStoreUnavailable = errors.New("counter store unavailable")
