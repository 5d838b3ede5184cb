package gsnauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/7L7K/gsnauth/cookie"
	"github.com/7L7K/gsnauth/csrf"
	"github.com/7L7K/gsnauth/internal"
	"github.com/7L7K/gsnauth/internal/flows"
	"github.com/7L7K/gsnauth/internal/rate"
	"github.com/7L7K/gsnauth/refresh"
	"github.com/7L7K/gsnauth/token"
)

// Engine is the session credential manager. All methods are safe for
// concurrent use after [Builder.Build].
type Engine struct {
	config   Config
	codec    *token.Codec
	cookies  *cookie.Resolver
	csrf     *csrf.Validator
	store    *refresh.Store
	limiter  *rate.Limiter
	audit    *auditDispatcher
	metrics  *Metrics
	verifier CredentialVerifier
}

// Cookies exposes the attribute resolver for HTTP adapters.
func (e *Engine) Cookies() *cookie.Resolver {
	return e.cookies
}

// TokenTTLs reports the configured access and refresh lifetimes so HTTP
// adapters can align cookie Max-Age with token expiry.
func (e *Engine) TokenTTLs() (access, refresh time.Duration) {
	return e.config.Token.AccessTTL, e.config.Token.RefreshTTL
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed under DropIfFull.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login verifies credentials through the host-supplied
// [CredentialVerifier], opens a new refresh family, and mints the full
// cookie bundle.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*Session, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if e.verifier == nil {
		return nil, ErrEngineNotReady
	}

	deps := flows.LoginDeps{
		VerifyCredentials: e.verifier.Verify,
		IssuePair:         e.issuePair,
		RefreshTTL:        e.config.Token.RefreshTTL,
		Store:             e.store,
		ClientIP:          clientIPFromContext(ctx),
	}
	if e.limiter != nil {
		deps.Limiter = e.limiter
	}

	res := flows.RunLogin(ctx, identifier, secret, deps)
	switch res.Failure {
	case flows.LoginFailureNone:
		// fall through to minting below
	case flows.LoginFailureRateLimited:
		if storeErr := mapStoreErr(res.Err); storeErr != nil {
			e.metricInc(MetricStoreUnavailable)
			e.emitAudit(ctx, auditEventStoreUnavailable, false, "", "", storeErr, nil)
			return nil, storeErr
		}
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, ErrLoginRateLimited
	case flows.LoginFailureCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, ErrInvalidCredentials
	case flows.LoginFailureStore:
		e.metricInc(MetricStoreUnavailable)
		storeErr := mapStoreErr(res.Err)
		if storeErr == nil {
			storeErr = fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		}
		e.emitAudit(ctx, auditEventStoreUnavailable, false, res.Subject, "", storeErr, nil)
		return nil, storeErr
	default:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Subject, res.FamilyID, res.Err, nil)
		return nil, fmt.Errorf("login token issuance: %w", res.Err)
	}

	session, err := e.assembleSession(res.Subject, res.Scopes, res.FamilyID, res.AccessToken, res.RefreshToken)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.Subject, res.FamilyID, nil, nil)
	return session, nil
}

// Refresh rotates the presented refresh token. Exactly one concurrent
// caller per sequence wins; losers get [ErrRefreshLost] and replayed
// tokens revoke the whole family with [ErrRefreshReuse].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if e == nil || e.codec == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, flows.RefreshDeps{
		VerifyRefresh: e.verifyRefresh,
		IssuePair:     e.issuePair,
		RefreshTTL:    e.config.Token.RefreshTTL,
		Store:         e.store,
	})

	switch res.Failure {
	case flows.RefreshFailureNone:
		// fall through to minting below
	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, nil)
		return nil, ErrRefreshInvalid
	case flows.RefreshFailureLost:
		e.metricInc(MetricRefreshLost)
		e.emitAudit(ctx, auditEventRefreshLost, false, res.Subject, res.FamilyID, ErrRefreshLost, nil)
		return nil, ErrRefreshLost
	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuse, false, res.Subject, res.FamilyID, ErrRefreshReuse, func() map[string]string {
			return map[string]string{"sequence": res.SequenceID}
		})
		return nil, ErrRefreshReuse
	case flows.RefreshFailureStore:
		e.metricInc(MetricStoreUnavailable)
		storeErr := mapStoreErr(res.Err)
		if storeErr == nil {
			storeErr = fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		}
		e.emitAudit(ctx, auditEventStoreUnavailable, false, res.Subject, res.FamilyID, storeErr, nil)
		return nil, storeErr
	case flows.RefreshFailureIssue:
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.Subject, res.FamilyID, res.Err, nil)
		return nil, fmt.Errorf("refresh token issuance: %w", res.Err)
	default: // RefreshFailureNotFound
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.Subject, res.FamilyID, ErrRefreshInvalid, nil)
		return nil, ErrRefreshInvalid
	}

	session, err := e.assembleSession(res.Subject, res.Scopes, res.FamilyID, res.AccessToken, res.RefreshToken)
	if err != nil {
		e.metricInc(MetricRefreshInvalid)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.Subject, res.FamilyID, nil, nil)
	return session, nil
}

// Logout revokes the refresh family named by the presented token. It is
// best-effort: missing or garbage tokens are a no-op, and the caller
// clears cookies regardless of the returned error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogout(ctx, refreshToken, flows.LogoutDeps{
		VerifyRefresh: e.verifyRefresh,
		Store:         e.store,
	})
	if res.Err != nil {
		e.metricInc(MetricStoreUnavailable)
		storeErr := mapStoreErr(res.Err)
		if storeErr == nil {
			storeErr = fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		}
		e.emitAudit(ctx, auditEventStoreUnavailable, false, res.Subject, res.FamilyID, storeErr, nil)
		return storeErr
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, res.Subject, res.FamilyID, nil, func() map[string]string {
		if res.Revoked {
			return nil
		}
		return map[string]string{"note": "no revocable family"}
	})
	return nil
}

// LogoutAll revokes every live family for the subject of the presented
// token. Unlike Logout this requires a decodable refresh token.
func (e *Engine) LogoutAll(ctx context.Context, refreshToken string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogoutAll(ctx, refreshToken, flows.LogoutDeps{
		VerifyRefresh: e.verifyRefresh,
		Store:         e.store,
	})
	if res.Err != nil {
		if storeErr := mapStoreErr(res.Err); storeErr != nil {
			e.metricInc(MetricStoreUnavailable)
			e.emitAudit(ctx, auditEventStoreUnavailable, false, res.Subject, "", storeErr, nil)
			return storeErr
		}
		return ErrRefreshInvalid
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, res.Subject, "", nil, nil)
	return nil
}

// Whoami resolves identity from a cookie token and an Authorization
// header token, cookie first. It always produces a result.
func (e *Engine) Whoami(ctx context.Context, cookieToken, headerToken string, hasSessionMarker bool) WhoamiResult {
	if e == nil || e.codec == nil {
		return WhoamiResult{Source: WhoamiSourceMissing}
	}

	res := flows.RunWhoami(cookieToken, headerToken, hasSessionMarker, flows.WhoamiDeps{
		VerifyAccess: e.verifyAccess,
	})
	if res.Conflict {
		e.emitAudit(ctx, auditEventWhoamiTokenConflict, false, res.Subject, "", nil, nil)
	}
	if res.Authenticated {
		e.metricInc(MetricWhoamiAuthenticated)
	} else {
		e.metricInc(MetricWhoamiAnonymous)
	}

	return WhoamiResult{
		Authenticated:     res.Authenticated,
		Subject:           res.Subject,
		Scopes:            res.Scopes,
		Source:            WhoamiSource(res.Source),
		SessionMarkerOnly: res.SessionMarkerOnly,
	}
}

// VerifyAccess checks an access token and returns its claims. All
// verification failures surface as [ErrUnauthorized].
func (e *Engine) VerifyAccess(tokenStr string) (*token.Claims, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.verifyAccess(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

// CheckCSRF runs the double-submit gate for a mutating request. The
// returned error wraps both [ErrCSRFRejected] and the csrf package
// sentinel so adapters can map to precise response codes.
func (e *Engine) CheckCSRF(ctx context.Context, r *http.Request) error {
	if e == nil || e.csrf == nil {
		return nil
	}
	if err := e.csrf.Check(r); err != nil {
		e.metricInc(MetricCSRFRejected)
		e.emitAudit(ctx, auditEventCSRFRejected, false, "", "", ErrCSRFRejected, func() map[string]string {
			return map[string]string{"path": r.URL.Path, "reason": err.Error()}
		})
		return fmt.Errorf("%w: %w", ErrCSRFRejected, err)
	}
	return nil
}

func (e *Engine) verifyAccess(tokenStr string) (*token.Claims, error) {
	start := time.Now()
	claims, err := e.codec.Verify(tokenStr, token.TypeAccess)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	return claims, err
}

func (e *Engine) verifyRefresh(tokenStr string) (*token.Claims, error) {
	return e.codec.Verify(tokenStr, token.TypeRefresh)
}

// issuePair mints the access+refresh token pair for one rotation link.
func (e *Engine) issuePair(subject string, scopes []string, familyID, sequenceID string) (string, string, error) {
	accessClaims := token.Claims{
		Type:   token.TypeAccess,
		Scopes: scopes,
	}
	accessClaims.Subject = subject
	access, err := e.codec.Issue(accessClaims, e.config.Token.AccessTTL)
	if err != nil {
		return "", "", err
	}

	refreshClaims := token.Claims{
		Type:       token.TypeRefresh,
		FamilyID:   familyID,
		SequenceID: sequenceID,
	}
	refreshClaims.Subject = subject
	refreshed, err := e.codec.Issue(refreshClaims, e.config.Token.RefreshTTL)
	if err != nil {
		return "", "", err
	}

	return access, refreshed, nil
}

func (e *Engine) assembleSession(subject string, scopes []string, familyID, access, refreshToken string) (*Session, error) {
	csrfToken, err := internal.NewCSRFToken()
	if err != nil {
		return nil, fmt.Errorf("csrf token generation: %w", err)
	}
	marker, err := internal.NewSessionMarker()
	if err != nil {
		return nil, fmt.Errorf("session marker generation: %w", err)
	}

	return &Session{
		Subject:       subject,
		Scopes:        scopes,
		FamilyID:      familyID,
		AccessToken:   access,
		RefreshToken:  refreshToken,
		CSRFToken:     csrfToken,
		SessionMarker: marker,
	}, nil
}

// mapStoreErr converts subsystem store errors into the engine sentinel.
// Non-store errors pass through as nil so callers keep their own mapping.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, refresh.ErrStoreUnavailable) || errors.Is(err, rate.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
