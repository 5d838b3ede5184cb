package cookie

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Env is the deployment mode the resolver derives defaults from.
type Env string

const (
	// EnvDev permits insecure cookies over plain http.
	EnvDev Env = "dev"
	// EnvProd forces Secure on every session cookie.
	EnvProd Env = "prod"
)

// SameSite is the configured same-site knob.
type SameSite string

const (
	SameSiteLax    SameSite = "lax"
	SameSiteStrict SameSite = "strict"
	// SameSiteNone activates cross-site cookie mode and with it the stricter
	// cross-site CSRF rules.
	SameSiteNone SameSite = "none"
)

// Names holds the cookie names used for one session.
type Names struct {
	Access        string
	Refresh       string
	CSRF          string
	SessionMarker string
}

// DefaultNames are the names used when the host does not override them.
var DefaultNames = Names{
	Access:        "access_token",
	Refresh:       "refresh_token",
	CSRF:          "csrf_token",
	SessionMarker: "session_marker",
}

// Config controls how session cookie attributes are resolved.
type Config struct {
	Env         Env
	SameSite    SameSite
	ForceSecure bool
	// Domain is omitted by default so cookies stay host-only.
	Domain string
	Names  Names
}

// Resolver derives a [Policy] from connection context. It holds no mutable
// state.
type Resolver struct {
	config Config
}

// NewResolver validates the config and returns a Resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	switch cfg.Env {
	case EnvDev, EnvProd:
	case "":
		cfg.Env = EnvDev
	default:
		return nil, errors.New("invalid cookie env")
	}
	switch cfg.SameSite {
	case SameSiteLax, SameSiteStrict, SameSiteNone:
	case "":
		cfg.SameSite = SameSiteLax
	default:
		return nil, errors.New("invalid samesite mode")
	}
	if cfg.SameSite == SameSiteNone && cfg.Env == EnvDev && !cfg.ForceSecure {
		return nil, errors.New("samesite=none requires secure cookies")
	}
	if cfg.Names == (Names{}) {
		cfg.Names = DefaultNames
	}
	return &Resolver{config: cfg}, nil
}

// CrossSite reports whether cookies are issued in cross-site mode
// (samesite=none), which switches the CSRF validator to its stricter rules.
func (r *Resolver) CrossSite() bool {
	return r.config.SameSite == SameSiteNone
}

// Names returns the configured cookie names.
func (r *Resolver) Names() Names {
	return r.config.Names
}

// Policy is the single attribute set applied to every session cookie in a
// response.
type Policy struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
	// Priority is written manually: net/http has no field for the eviction
	// priority attribute.
	Priority string
}

// Resolve computes the policy for a connection scheme ("http" or "https").
// Secure is true iff the connection is https or the environment forces it;
// samesite=none always implies Secure.
func (r *Resolver) Resolve(scheme string) Policy {
	secure := scheme == "https" || r.config.ForceSecure || r.config.Env == EnvProd
	if r.config.SameSite == SameSiteNone {
		secure = true
	}

	return Policy{
		Domain:   r.config.Domain,
		Path:     "/",
		Secure:   secure,
		SameSite: sameSiteMode(r.config.SameSite),
		Priority: "High",
	}
}

func sameSiteMode(s SameSite) http.SameSite {
	switch s {
	case SameSiteStrict:
		return http.SameSiteStrictMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Set writes one session cookie under the policy. httpOnly is false only for
// the CSRF cookie, which must stay script-readable for double-submit.
func (p Policy) Set(w http.ResponseWriter, name, value string, maxAge time.Duration, httpOnly bool) {
	p.write(w, &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: httpOnly,
	})
}

// Clear expires one session cookie using the same attributes it was set
// with, emitting Max-Age=0.
func (p Policy) Clear(w http.ResponseWriter, name string, httpOnly bool) {
	p.write(w, &http.Cookie{
		Name:     name,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: httpOnly,
	})
}

func (p Policy) write(w http.ResponseWriter, c *http.Cookie) {
	c.Domain = p.Domain
	c.Path = p.Path
	c.Secure = p.Secure
	c.SameSite = p.SameSite

	v := c.String()
	if v == "" {
		return
	}
	if p.Priority != "" {
		v += "; Priority=" + p.Priority
	}
	w.Header().Add("Set-Cookie", v)
}

// ReadValue returns the trimmed value of a request cookie when present.
func ReadValue(r *http.Request, name string) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil || c == nil {
		return "", false
	}
	value := strings.TrimSpace(c.Value)
	if value == "" {
		return "", false
	}
	return value, true
}
