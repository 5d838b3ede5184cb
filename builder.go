package gsnauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/7L7K/gsnauth/cookie"
	"github.com/7L7K/gsnauth/csrf"
	"github.com/7L7K/gsnauth/internal/rate"
	"github.com/7L7K/gsnauth/refresh"
	"github.com/7L7K/gsnauth/token"
)

// Builder assembles an [Engine]. It allocates only; no I/O happens until
// engine methods run.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	verifier  CredentialVerifier
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the refresh store and login
// limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialVerifier sets the host-side credential check used by
// Login. Engines without one can still Refresh, Logout, and Whoami.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithAuditSink sets the sink the async dispatcher delivers to. Ignored
// unless Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A builder is
// single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		Secret: cfg.Token.Secret,
		Issuer: cfg.Token.Issuer,
		Leeway: cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	names := cfg.Cookie.Names
	if names == (cookie.Names{}) {
		names = cookie.DefaultNames
	}
	resolver, err := cookie.NewResolver(cookie.Config{
		Env:         cfg.Cookie.Env,
		SameSite:    cfg.Cookie.SameSite,
		ForceSecure: cfg.Cookie.ForceSecure,
		Domain:      cfg.Cookie.Domain,
		Names:       names,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		codec:   codec,
		cookies: resolver,
		store:   refresh.NewStore(b.redis, cfg.Refresh.RedisPrefix, cfg.Refresh.RetryGrace),
	}

	engine.csrf = csrf.New(csrf.Config{
		Enabled:           cfg.CSRF.Enabled,
		CrossSite:         resolver.CrossSite(),
		LegacyHeaderGrace: cfg.CSRF.LegacyHeaderGrace,
		CookieName:        names.CSRF,
		ExemptPaths:       cfg.CSRF.ExemptPaths,
	})

	if cfg.RateLimit.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.RateLimit.EnableIPThrottle,
			MaxLoginAttempts: cfg.RateLimit.MaxLoginAttempts,
			Window:           cfg.RateLimit.Window,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.verifier = b.verifier

	b.built = true

	return engine, nil
}
