package gsnauth

import "context"

// Session is the full credential bundle minted by Login and Refresh.
// AccessToken and RefreshToken go into HttpOnly cookies; CSRFToken and
// SessionMarker go into JS-readable cookies.
type Session struct {
	Subject       string
	Scopes        []string
	FamilyID      string
	AccessToken   string
	RefreshToken  string
	CSRFToken     string
	SessionMarker string
}

// WhoamiSource names where the deciding access token came from.
type WhoamiSource string

const (
	WhoamiSourceCookie  WhoamiSource = "cookie"
	WhoamiSourceHeader  WhoamiSource = "header"
	WhoamiSourceMissing WhoamiSource = "missing"
)

// WhoamiResult is returned by [Engine.Whoami]. Whoami is a probe and
// always produces a result; an invalid token simply yields
// Authenticated == false.
type WhoamiResult struct {
	Authenticated bool
	Subject       string
	Scopes        []string
	Source        WhoamiSource
	// SessionMarkerOnly hints that the session expired but the client
	// still holds cookies worth refreshing.
	SessionMarkerOnly bool
}

// CredentialVerifier is the interface callers must implement to integrate
// gsnauth with their user database. Verify returns the canonical subject
// and granted scopes, or an error for unknown identity or wrong secret.
// Password hashing and storage stay on the caller's side of this line.
type CredentialVerifier interface {
	Verify(ctx context.Context, identifier, secret string) (subject string, scopes []string, err error)
}

// CredentialVerifierFunc adapts a function to [CredentialVerifier].
type CredentialVerifierFunc func(ctx context.Context, identifier, secret string) (string, []string, error)

func (f CredentialVerifierFunc) Verify(ctx context.Context, identifier, secret string) (string, []string, error) {
	return f(ctx, identifier, secret)
}
