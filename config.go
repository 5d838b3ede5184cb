package gsnauth

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/7L7K/gsnauth/cookie"
)

// Config is the full engine configuration. Instances are treated as
// immutable after [Builder.Build]; the builder clones what it keeps.
type Config struct {
	Token     TokenConfig
	Cookie    CookieConfig
	CSRF      CSRFConfig
	Refresh   RefreshConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds the process-wide HS256 secret and token lifetimes.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway tolerates clock skew at expiry checks only.
	Leeway time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig feeds the cookie attribute resolver.
type CookieConfig struct {
	Env         cookie.Env
	SameSite    cookie.SameSite
	ForceSecure bool
	// Domain is omitted by default so cookies stay host-only.
	Domain string
	Names  cookie.Names
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFConfig controls double-submit validation. Cross-site mode is not a
// knob here: it follows Cookie.SameSite == none.
type CSRFConfig struct {
	Enabled           bool
	LegacyHeaderGrace bool
	// ExemptPaths defaults to the token/webhook/callback set when nil.
	ExemptPaths []string
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig tunes the rotation family store.
type RefreshConfig struct {
	RedisPrefix string
	// RetryGrace is the window in which re-presenting the immediately
	// consumed sequence counts as a benign concurrent-tab race rather
	// than replay. Zero means strict: any stale presentation revokes the
	// family.
	RetryGrace time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the login attempt limiter.
type RateLimitConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxLoginAttempts int
	Window           time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:     "gsnauth",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     60 * time.Second,
		},
		Cookie: CookieConfig{
			Env:      cookie.EnvDev,
			SameSite: cookie.SameSiteLax,
			Names:    cookie.DefaultNames,
		},
		CSRF: CSRFConfig{
			Enabled:           true,
			LegacyHeaderGrace: false,
		},
		Refresh: RefreshConfig{
			RedisPrefix: "gsn",
			RetryGrace:  0,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			EnableIPThrottle: false,
			MaxLoginAttempts: 5,
			Window:           15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the baseline configuration. The token secret is
// intentionally absent and must be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	if cfg.CSRF.ExemptPaths != nil {
		out.CSRF.ExemptPaths = append([]string(nil), cfg.CSRF.ExemptPaths...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
ENVIRONMENT OVERRIDES
====================================
*/

type envSettings struct {
	TokenSecret       string         `env:"GSNAUTH_TOKEN_SECRET"`
	TokenIssuer       string         `env:"GSNAUTH_TOKEN_ISSUER"`
	AccessTTL         time.Duration  `env:"GSNAUTH_ACCESS_TTL"`
	RefreshTTL        time.Duration  `env:"GSNAUTH_REFRESH_TTL"`
	Leeway            *time.Duration `env:"GSNAUTH_TOKEN_LEEWAY"`
	CookieEnv         string         `env:"GSNAUTH_COOKIE_ENV"`
	CookieSameSite    string         `env:"GSNAUTH_COOKIE_SAMESITE"`
	CookieForceSecure *bool          `env:"GSNAUTH_COOKIE_FORCE_SECURE"`
	CookieDomain      string         `env:"GSNAUTH_COOKIE_DOMAIN"`
	CSRFEnabled       *bool          `env:"GSNAUTH_CSRF_ENABLED"`
	LegacyHeaderGrace *bool          `env:"GSNAUTH_CSRF_LEGACY_HEADER_GRACE"`
	RedisPrefix       string         `env:"GSNAUTH_REDIS_PREFIX"`
	RetryGrace        *time.Duration `env:"GSNAUTH_REFRESH_RETRY_GRACE"`
	RateLimitEnabled  *bool          `env:"GSNAUTH_RATE_LIMIT_ENABLED"`
	MaxLoginAttempts  int            `env:"GSNAUTH_MAX_LOGIN_ATTEMPTS"`
	RateLimitWindow   time.Duration  `env:"GSNAUTH_RATE_LIMIT_WINDOW"`
	AuditEnabled      *bool          `env:"GSNAUTH_AUDIT_ENABLED"`
	MetricsEnabled    *bool          `env:"GSNAUTH_METRICS_ENABLED"`
}

// ConfigFromEnv layers GSNAUTH_* environment variables over the defaults.
// Unset variables leave the default untouched.
func ConfigFromEnv() (Config, error) {
	cfg := defaultConfig()

	var s envSettings
	if err := env.Parse(&s); err != nil {
		return Config{}, err
	}

	if s.TokenSecret != "" {
		cfg.Token.Secret = []byte(s.TokenSecret)
	}
	if s.TokenIssuer != "" {
		cfg.Token.Issuer = s.TokenIssuer
	}
	if s.AccessTTL > 0 {
		cfg.Token.AccessTTL = s.AccessTTL
	}
	if s.RefreshTTL > 0 {
		cfg.Token.RefreshTTL = s.RefreshTTL
	}
	if s.Leeway != nil {
		cfg.Token.Leeway = *s.Leeway
	}
	if s.CookieEnv != "" {
		cfg.Cookie.Env = cookie.Env(s.CookieEnv)
	}
	if s.CookieSameSite != "" {
		cfg.Cookie.SameSite = cookie.SameSite(s.CookieSameSite)
	}
	if s.CookieForceSecure != nil {
		cfg.Cookie.ForceSecure = *s.CookieForceSecure
	}
	if s.CookieDomain != "" {
		cfg.Cookie.Domain = s.CookieDomain
	}
	if s.CSRFEnabled != nil {
		cfg.CSRF.Enabled = *s.CSRFEnabled
	}
	if s.LegacyHeaderGrace != nil {
		cfg.CSRF.LegacyHeaderGrace = *s.LegacyHeaderGrace
	}
	if s.RedisPrefix != "" {
		cfg.Refresh.RedisPrefix = s.RedisPrefix
	}
	if s.RetryGrace != nil {
		cfg.Refresh.RetryGrace = *s.RetryGrace
	}
	if s.RateLimitEnabled != nil {
		cfg.RateLimit.Enabled = *s.RateLimitEnabled
	}
	if s.MaxLoginAttempts > 0 {
		cfg.RateLimit.MaxLoginAttempts = s.MaxLoginAttempts
	}
	if s.RateLimitWindow > 0 {
		cfg.RateLimit.Window = s.RateLimitWindow
	}
	if s.AuditEnabled != nil {
		cfg.Audit.Enabled = *s.AuditEnabled
	}
	if s.MetricsEnabled != nil {
		cfg.Metrics.Enabled = *s.MetricsEnabled
	}

	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cross-field consistency. Build calls it; exported so
// hosts can validate configuration loaded from their own sources.
func (c *Config) Validate() error {
	// Token
	if len(c.Token.Secret) < 32 {
		return errors.New("Token Secret must be at least 32 bytes")
	}
	if c.Token.Issuer == "" {
		return errors.New("Token Issuer is required")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("Token AccessTTL must be shorter than RefreshTTL")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Cookie
	switch c.Cookie.Env {
	case cookie.EnvDev, cookie.EnvProd:
		// valid
	default:
		return errors.New("Cookie Env must be 'dev' or 'prod'")
	}
	switch c.Cookie.SameSite {
	case cookie.SameSiteLax, cookie.SameSiteStrict, cookie.SameSiteNone:
		// valid
	default:
		return errors.New("Cookie SameSite must be 'lax', 'strict', or 'none'")
	}
	if c.Cookie.SameSite == cookie.SameSiteNone && c.Cookie.Env == cookie.EnvDev && !c.Cookie.ForceSecure {
		return errors.New("Cookie SameSite none requires prod env or ForceSecure")
	}

	// Refresh
	if c.Refresh.RedisPrefix == "" {
		return errors.New("Refresh RedisPrefix is required")
	}
	if c.Refresh.RetryGrace < 0 {
		return errors.New("Refresh RetryGrace must be >= 0")
	}
	if c.Refresh.RetryGrace >= c.Token.RefreshTTL {
		return errors.New("Refresh RetryGrace must be shorter than RefreshTTL")
	}

	// Rate limiting
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxLoginAttempts <= 0 {
			return errors.New("RateLimit MaxLoginAttempts must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
