package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"

	gsnauth "github.com/7L7K/gsnauth"
	"github.com/7L7K/gsnauth/cookie"
	"github.com/7L7K/gsnauth/csrf"
)

// Handler is the HTTP surface of the session engine. Routes:
//
//	POST /login       mint a session, set cookies
//	POST /refresh     rotate the refresh token
//	POST /logout      best-effort revoke, clear cookies, always 204
//	POST /logout_all  revoke every family for the subject, 204
//	GET  /whoami      identity probe, always 200
type Handler struct {
	engine *gsnauth.Engine
	mux    *http.ServeMux
}

// New mounts the session routes on a fresh ServeMux.
func New(engine *gsnauth.Engine) *Handler {
	h := &Handler{
		engine: engine,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /login", h.handleLogin)
	h.mux.HandleFunc("POST /refresh", h.handleRefresh)
	h.mux.HandleFunc("POST /logout", h.handleLogout)
	h.mux.HandleFunc("POST /logout_all", h.handleLogoutAll)
	h.mux.HandleFunc("GET /whoami", h.handleWhoami)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("gsnauth: panic serving %s %s: %v", r.Method, r.URL.Path, rec)
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
		}
	}()
	h.mux.ServeHTTP(w, r)
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	Rotated     bool   `json:"rotated"`
	AccessToken string `json:"access_token,omitempty"`
}

type whoamiUser struct {
	ID string `json:"id"`
}

type whoamiResponse struct {
	IsAuthenticated bool        `json:"is_authenticated"`
	SessionReady    bool        `json:"session_ready"`
	User            *whoamiUser `json:"user,omitempty"`
	Source          string      `json:"source"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	ctx := gsnauth.WithClientIP(r.Context(), clientIP(r))
	session, err := h.engine.Login(ctx, req.Identifier, req.Secret)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	h.setSessionCookies(w, r, session)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": whoamiUser{ID: session.Subject},
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}

	tok := h.refreshTokenFrom(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no refresh token presented")
		return
	}

	ctx := gsnauth.WithClientIP(r.Context(), clientIP(r))
	session, err := h.engine.Refresh(ctx, tok)
	if err != nil {
		h.writeRefreshError(w, err)
		return
	}

	h.setSessionCookies(w, r, session)
	writeJSON(w, http.StatusOK, refreshResponse{
		Rotated:     true,
		AccessToken: session.AccessToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}

	ctx := gsnauth.WithClientIP(r.Context(), clientIP(r))
	// Revocation is best-effort: cookies are cleared no matter what the
	// store said, and the client always sees 204.
	_ = h.engine.Logout(ctx, h.refreshTokenFrom(r))

	h.clearSessionCookies(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}

	ctx := gsnauth.WithClientIP(r.Context(), clientIP(r))
	if err := h.engine.LogoutAll(ctx, h.refreshTokenFrom(r)); err != nil {
		if errors.Is(err, gsnauth.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "credential store unavailable")
			return
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
		return
	}

	h.clearSessionCookies(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWhoami(w http.ResponseWriter, r *http.Request) {
	names := h.engine.Cookies().Names()

	cookieToken, _ := cookie.ReadValue(r, names.Access)
	headerToken := bearerToken(r.Header.Get("Authorization"))
	_, hasMarker := cookie.ReadValue(r, names.SessionMarker)

	res := h.engine.Whoami(r.Context(), cookieToken, headerToken, hasMarker)

	resp := whoamiResponse{
		IsAuthenticated: res.Authenticated,
		SessionReady:    res.Authenticated || res.SessionMarkerOnly,
		Source:          string(res.Source),
	}
	if res.Authenticated {
		resp.User = &whoamiUser{ID: res.Subject}
	}
	writeJSON(w, http.StatusOK, resp)
}

// checkCSRF runs the double-submit gate and writes the envelope itself on
// rejection. Shape defects are 400, forgery signals 403.
func (h *Handler) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	err := h.engine.CheckCSRF(r.Context(), r)
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, csrf.ErrMissingIntent):
		writeError(w, http.StatusBadRequest, "missing_intent_header_cross_site", "cross-site requests must send X-Auth-Intent")
	case errors.Is(err, csrf.ErrMissingCrossSite):
		writeError(w, http.StatusBadRequest, "missing_csrf_cross_site", "cross-site requests must send the CSRF token header")
	case errors.Is(err, csrf.ErrInvalidFormat):
		writeError(w, http.StatusForbidden, "invalid_csrf_format", "malformed CSRF token")
	default:
		writeError(w, http.StatusForbidden, "invalid_csrf", "CSRF validation failed")
	}
	return false
}

func (h *Handler) writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gsnauth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, gsnauth.ErrLoginRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts")
	case errors.Is(err, gsnauth.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "credential store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (h *Handler) writeRefreshError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gsnauth.ErrRefreshReuse):
		writeError(w, http.StatusUnauthorized, "refresh_reused", "refresh token reuse detected")
	case errors.Is(err, gsnauth.ErrRefreshLost), errors.Is(err, gsnauth.ErrRefreshInvalid):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
	case errors.Is(err, gsnauth.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "credential store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// refreshTokenFrom prefers the cookie; a JSON body {refresh_token} is the
// non-browser fallback.
func (h *Handler) refreshTokenFrom(r *http.Request) string {
	names := h.engine.Cookies().Names()
	if v, ok := cookie.ReadValue(r, names.Refresh); ok && v != "" {
		return v
	}

	var req refreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	return req.RefreshToken
}

// setSessionCookies writes the full bundle under one resolved policy so
// the four cookies never disagree on attributes.
func (h *Handler) setSessionCookies(w http.ResponseWriter, r *http.Request, s *gsnauth.Session) {
	resolver := h.engine.Cookies()
	policy := resolver.Resolve(requestScheme(r))
	names := resolver.Names()

	accessTTL, refreshTTL := h.engine.TokenTTLs()
	policy.Set(w, names.Access, s.AccessToken, accessTTL, true)
	policy.Set(w, names.Refresh, s.RefreshToken, refreshTTL, true)
	policy.Set(w, names.CSRF, s.CSRFToken, refreshTTL, false)
	policy.Set(w, names.SessionMarker, s.SessionMarker, refreshTTL, true)
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	resolver := h.engine.Cookies()
	policy := resolver.Resolve(requestScheme(r))
	names := resolver.Names()

	policy.Clear(w, names.Access, true)
	policy.Clear(w, names.Refresh, true)
	policy.Clear(w, names.CSRF, false)
	policy.Clear(w, names.SessionMarker, true)
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) string {
	const bearer = "Bearer "
	if len(value) > len(bearer) && value[:len(bearer)] == bearer {
		return value[len(bearer):]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Code: code, Message: message})
}
