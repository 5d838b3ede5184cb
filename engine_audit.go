package gsnauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventRefreshSuccess      = "refresh_success"
	auditEventRefreshLost         = "refresh_lost"
	auditEventRefreshInvalid      = "refresh_invalid"
	auditEventRefreshReuse        = "refresh_reuse_detected"
	auditEventLogout              = "logout"
	auditEventLogoutAll           = "logout_all"
	auditEventCSRFRejected        = "csrf_rejected"
	auditEventStoreUnavailable    = "store_unavailable"
	auditEventWhoamiTokenConflict = "whoami_token_conflict"
)

type auditErrorCode string

const (
	auditErrUnauthorized       auditErrorCode = "unauthorized"
	auditErrInvalidCredentials auditErrorCode = "invalid_credentials"
	auditErrRateLimited        auditErrorCode = "rate_limited"
	auditErrRefreshInvalid     auditErrorCode = "refresh_invalid"
	auditErrRefreshReuse       auditErrorCode = "refresh_reuse"
	auditErrRefreshLost        auditErrorCode = "refresh_lost"
	auditErrCSRF               auditErrorCode = "csrf_rejected"
	auditErrStoreUnavailable   auditErrorCode = "store_unavailable"
	auditErrInternal           auditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	familyID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   subject,
		FamilyID:  familyID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := classifyAuditError(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func classifyAuditError(err error) auditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRefreshReuse):
		return auditErrRefreshReuse
	case errors.Is(err, ErrRefreshLost):
		return auditErrRefreshLost
	case errors.Is(err, ErrRefreshInvalid):
		return auditErrRefreshInvalid
	case errors.Is(err, ErrCSRFRejected):
		return auditErrCSRF
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	default:
		return auditErrInternal
	}
}
