package flows

import (
	"context"

	"github.com/7L7K/gsnauth/token"
)

// FamilyRevoker is the store surface the logout flows need.
type FamilyRevoker interface {
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeAllForSubject(ctx context.Context, subject string) (int, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	VerifyRefresh func(string) (*token.Claims, error)
	Store         FamilyRevoker
}

// LogoutResult reports what the best-effort logout managed to do.
type LogoutResult struct {
	// Revoked is true when a family was identified and the revocation
	// write succeeded.
	Revoked  bool
	FamilyID string
	Subject  string
	// RevokedCount is how many families RunLogoutAll touched.
	RevokedCount int
	// Err records a store failure; an undecodable token is not an error
	// for RunLogout.
	Err error
}

// RunLogout revokes the refresh family named by the presented token.
// Logout never fails from the caller's perspective: a missing or garbage
// token still clears client state, and a store error is reported but the
// caller proceeds to clear cookies regardless.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	if refreshToken == "" {
		return LogoutResult{}
	}
	claims, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return LogoutResult{}
	}
	if err := deps.Store.RevokeFamily(ctx, claims.FamilyID); err != nil {
		return LogoutResult{FamilyID: claims.FamilyID, Subject: claims.Subject, Err: err}
	}
	return LogoutResult{Revoked: true, FamilyID: claims.FamilyID, Subject: claims.Subject}
}

// RunLogoutAll revokes every live family for the subject of the presented
// refresh token. Unlike RunLogout this requires a decodable token, since
// the blast radius is every device.
func RunLogoutAll(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return LogoutResult{Err: err}
	}
	n, err := deps.Store.RevokeAllForSubject(ctx, claims.Subject)
	if err != nil {
		return LogoutResult{Subject: claims.Subject, Err: err}
	}
	return LogoutResult{Revoked: true, Subject: claims.Subject, RevokedCount: n}
}
