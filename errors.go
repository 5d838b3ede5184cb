package gsnauth

import "errors"

var (
	// ErrUnauthorized covers every access-token verification failure.
	// Callers are told nothing about whether the token was malformed,
	// expired, or forged.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials covers unknown identifier and wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited means the attempt budget for this identifier
	// (or client IP) is exhausted for the current window.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshInvalid means the presented refresh token could not be
	// decoded or names an unknown or expired family.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse means replay was detected and the family revoked.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrRefreshLost means a concurrent caller rotated first. The client
	// should retry with its freshest stored token.
	ErrRefreshLost = errors.New("refresh token superseded by concurrent rotation")
	// ErrCSRFRejected means the double-submit check failed.
	ErrCSRFRejected = errors.New("csrf validation failed")
	// ErrStoreUnavailable means Redis was unreachable; state-changing
	// operations fail closed.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is returned when a method is called on an engine
	// missing a required dependency, e.g. Login without a verifier.
	ErrEngineNotReady = errors.New("engine not initialized")
)
