package flows

import (
	"github.com/7L7K/gsnauth/token"
)

// Source names where the access token that decided a whoami came from.
type Source string

const (
	SourceCookie  Source = "cookie"
	SourceHeader  Source = "header"
	SourceMissing Source = "missing"
)

// WhoamiResult is always produced; whoami is a probe, not a gate.
type WhoamiResult struct {
	Authenticated bool
	Subject       string
	Scopes        []string
	Source        Source
	// SessionMarkerOnly is set when no valid token was presented but the
	// non-HttpOnly marker cookie was, hinting at an expired session the
	// client could try to refresh.
	SessionMarkerOnly bool
	// Conflict is set when both cookie and header carried tokens and they
	// resolved to different subjects. Cookie wins; callers may want to log.
	Conflict bool
}

// WhoamiDeps captures whoami flow dependencies.
type WhoamiDeps struct {
	VerifyAccess func(string) (*token.Claims, error)
}

// RunWhoami resolves identity from the cookie token first, then the
// Authorization header token. It never returns an error: invalid tokens
// degrade to an unauthenticated result.
func RunWhoami(cookieToken, headerToken string, hasSessionMarker bool, deps WhoamiDeps) WhoamiResult {
	var cookieClaims, headerClaims *token.Claims
	if cookieToken != "" {
		if c, err := deps.VerifyAccess(cookieToken); err == nil {
			cookieClaims = c
		}
	}
	if headerToken != "" {
		if c, err := deps.VerifyAccess(headerToken); err == nil {
			headerClaims = c
		}
	}

	switch {
	case cookieClaims != nil:
		return WhoamiResult{
			Authenticated: true,
			Subject:       cookieClaims.Subject,
			Scopes:        cookieClaims.Scopes,
			Source:        SourceCookie,
			Conflict:      headerClaims != nil && headerClaims.Subject != cookieClaims.Subject,
		}
	case headerClaims != nil:
		return WhoamiResult{
			Authenticated: true,
			Subject:       headerClaims.Subject,
			Scopes:        headerClaims.Scopes,
			Source:        SourceHeader,
		}
	default:
		return WhoamiResult{
			Source:            SourceMissing,
			SessionMarkerOnly: hasSessionMarker,
		}
	}
}
