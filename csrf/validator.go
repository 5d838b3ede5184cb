package csrf

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/7L7K/gsnauth/internal"
)

var (
	// ErrInvalid is the forgery signal: absent or mismatched double-submit
	// evidence in same-site mode. Maps to 403.
	ErrInvalid = errors.New("invalid csrf")
	// ErrInvalidFormat means a presented token fails the shape check run
	// before any comparison. Maps to 403.
	ErrInvalidFormat = errors.New("invalid csrf format")
	// ErrMissingCrossSite means cross-site mode is active and the CSRF token
	// is absent. Caller-fixable; maps to 400, not 403.
	ErrMissingCrossSite = errors.New("missing csrf cross site")
	// ErrMissingIntent means cross-site mode is active and the explicit
	// intent header is absent. Caller-fixable; maps to 400.
	ErrMissingIntent = errors.New("missing intent header cross site")
)

// HeaderName is the double-submit header checked against the CSRF cookie.
const HeaderName = "X-CSRF-Token"

// IntentHeaderName must carry IntentRefresh on cross-site mutating requests.
const IntentHeaderName = "X-Auth-Intent"

// IntentRefresh is the only accepted intent value.
const IntentRefresh = "refresh"

// legacyHeaderName is the pre-cutover header alias, accepted only under the
// grace flag.
const legacyHeaderName = "X-CSRFToken"

// DefaultExemptPaths skip CSRF gating: token exchange, webhooks, OAuth
// callbacks, and compat redirects are driven by non-browser callers or by
// cross-origin redirects that cannot carry the header.
var DefaultExemptPaths = []string{
	"/v1/token",
	"/v1/webhook",
	"/oauth/callback",
	"/v1/compat/redirect",
}

// Config controls the validator.
type Config struct {
	Enabled bool
	// CrossSite switches to the stricter rules that samesite=none requires.
	CrossSite bool
	// LegacyHeaderGrace accepts the old header alias with a deprecation log.
	// Disabled before cutover.
	LegacyHeaderGrace bool
	CookieName        string
	ExemptPaths       []string
}

// Validator classifies mutating requests. It holds no mutable state and is
// safe for concurrent use.
type Validator struct {
	config Config
}

// New returns a Validator; zero-value fields get defaults.
func New(cfg Config) *Validator {
	if cfg.CookieName == "" {
		cfg.CookieName = "csrf_token"
	}
	if cfg.ExemptPaths == nil {
		cfg.ExemptPaths = DefaultExemptPaths
	}
	return &Validator{config: cfg}
}

// Check classifies the request. nil means the request passes the CSRF gate.
func (v *Validator) Check(r *http.Request) error {
	if !v.config.Enabled || !mutating(r.Method) || v.exempt(r.URL.Path) {
		return nil
	}

	header := r.Header.Get(HeaderName)
	if header == "" && v.config.LegacyHeaderGrace {
		if legacy := r.Header.Get(legacyHeaderName); legacy != "" {
			log.Print("gsnauth: deprecated " + legacyHeaderName + " header used; migrate to " + HeaderName)
			header = legacy
		}
	}

	cookieValue := ""
	if c, err := r.Cookie(v.config.CookieName); err == nil && c != nil {
		cookieValue = strings.TrimSpace(c.Value)
	}

	if v.config.CrossSite {
		return checkCrossSite(r, header, cookieValue)
	}
	return checkSameSite(header, cookieValue)
}

// CrossSite reports which rule set the validator applies.
func (v *Validator) CrossSite() bool {
	return v.config.CrossSite
}

func checkSameSite(header, cookieValue string) error {
	if header == "" || cookieValue == "" {
		return ErrInvalid
	}
	if !internal.ValidCSRFFormat(header) || !internal.ValidCSRFFormat(cookieValue) {
		return ErrInvalidFormat
	}
	if subtle.ConstantTimeCompare([]byte(header), []byte(cookieValue)) != 1 {
		return ErrInvalid
	}
	return nil
}

func checkCrossSite(r *http.Request, header, cookieValue string) error {
	if r.Header.Get(IntentHeaderName) != IntentRefresh {
		return ErrMissingIntent
	}
	if header == "" || cookieValue == "" {
		return ErrMissingCrossSite
	}
	if !internal.ValidCSRFFormat(header) || !internal.ValidCSRFFormat(cookieValue) {
		return ErrInvalidFormat
	}
	if subtle.ConstantTimeCompare([]byte(header), []byte(cookieValue)) != 1 {
		return ErrInvalid
	}
	return nil
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func (v *Validator) exempt(path string) bool {
	for _, p := range v.config.ExemptPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
