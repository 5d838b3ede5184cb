package flows

import (
	"context"
	"time"
)

// LoginFailureKind classifies login flow failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	// LoginFailureCredentials covers unknown identity and wrong secret;
	// callers present both identically.
	LoginFailureCredentials
	LoginFailureRateLimited
	LoginFailureStore
	LoginFailureIssue
)

// LoginResult carries the freshly minted session material or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	Subject      string
	Scopes       []string
	FamilyID     string
	AccessToken  string
	RefreshToken string
}

// FamilyCreator is the store surface the login flow needs. CreateFamily
// returns the new family and first sequence identifiers.
type FamilyCreator interface {
	CreateFamily(ctx context.Context, subject string, scopes []string, ttl time.Duration) (string, string, error)
}

// LoginLimiter gates and records login attempts per identity (and
// optionally per client IP). A nil limiter disables throttling.
type LoginLimiter interface {
	CheckLogin(ctx context.Context, identity, clientIP string) error
	IncrementLogin(ctx context.Context, identity, clientIP string) error
	ResetLogin(ctx context.Context, identity, clientIP string) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	// VerifyCredentials is host-supplied: it returns the canonical subject
	// and granted scopes, or an error on bad credentials.
	VerifyCredentials func(ctx context.Context, identity, secret string) (string, []string, error)
	IssuePair         func(subject string, scopes []string, familyID, sequenceID string) (string, string, error)
	RefreshTTL        time.Duration
	Store             FamilyCreator
	Limiter           LoginLimiter
	ClientIP          string
}

// RunLogin verifies credentials under the attempt limiter, opens a new
// refresh family, and mints the first token pair. Limiter counters reset
// only on success.
func RunLogin(ctx context.Context, identity, secret string, deps LoginDeps) LoginResult {
	if deps.Limiter != nil {
		if err := deps.Limiter.CheckLogin(ctx, identity, deps.ClientIP); err != nil {
			return LoginResult{Failure: LoginFailureRateLimited, Err: err}
		}
	}

	subject, scopes, err := deps.VerifyCredentials(ctx, identity, secret)
	if err != nil {
		if deps.Limiter != nil {
			// Best effort: a failed increment must not mask the credential error.
			_ = deps.Limiter.IncrementLogin(ctx, identity, deps.ClientIP)
		}
		return LoginResult{Failure: LoginFailureCredentials, Err: err}
	}

	familyID, sequenceID, err := deps.Store.CreateFamily(ctx, subject, scopes, deps.RefreshTTL)
	if err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err, Subject: subject}
	}

	access, refreshed, err := deps.IssuePair(subject, scopes, familyID, sequenceID)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Subject: subject, FamilyID: familyID}
	}

	if deps.Limiter != nil {
		_ = deps.Limiter.ResetLogin(ctx, identity, deps.ClientIP)
	}

	return LoginResult{
		Subject:      subject,
		Scopes:       scopes,
		FamilyID:     familyID,
		AccessToken:  access,
		RefreshToken: refreshed,
	}
}
