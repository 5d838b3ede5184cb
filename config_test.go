package gsnauth

import (
	"testing"
	"time"

	"github.com/7L7K/gsnauth/cookie"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret
	return cfg
}

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.Token.Secret = []byte("short") }},
		{"missing issuer", func(c *Config) { c.Token.Issuer = "" }},
		{"zero access ttl", func(c *Config) { c.Token.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.Token.RefreshTTL = 0 }},
		{"access ttl >= refresh ttl", func(c *Config) { c.Token.AccessTTL = c.Token.RefreshTTL }},
		{"excessive leeway", func(c *Config) { c.Token.Leeway = 5 * time.Minute }},
		{"bad cookie env", func(c *Config) { c.Cookie.Env = "staging" }},
		{"bad samesite", func(c *Config) { c.Cookie.SameSite = "sorta" }},
		{"samesite none in dev", func(c *Config) {
			c.Cookie.SameSite = cookie.SameSiteNone
		}},
		{"missing redis prefix", func(c *Config) { c.Refresh.RedisPrefix = "" }},
		{"negative retry grace", func(c *Config) { c.Refresh.RetryGrace = -time.Second }},
		{"retry grace >= refresh ttl", func(c *Config) { c.Refresh.RetryGrace = c.Token.RefreshTTL }},
		{"zero login attempts", func(c *Config) { c.RateLimit.MaxLoginAttempts = 0 }},
		{"zero rate window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"zero audit buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("validate accepted bad config")
			}
		})
	}
}

func TestValidateSameSiteNoneWithForceSecure(t *testing.T) {
	cfg := validTestConfig()
	cfg.Cookie.SameSite = cookie.SameSiteNone
	cfg.Cookie.ForceSecure = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	cfg.Cookie.ForceSecure = false
	cfg.Cookie.Env = cookie.EnvProd
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate prod: %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GSNAUTH_TOKEN_SECRET", string(testSecret))
	t.Setenv("GSNAUTH_TOKEN_ISSUER", "example-issuer")
	t.Setenv("GSNAUTH_ACCESS_TTL", "5m")
	t.Setenv("GSNAUTH_COOKIE_SAMESITE", "strict")
	t.Setenv("GSNAUTH_CSRF_ENABLED", "false")
	t.Setenv("GSNAUTH_REFRESH_RETRY_GRACE", "10s")
	t.Setenv("GSNAUTH_RATE_LIMIT_ENABLED", "false")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}

	if string(cfg.Token.Secret) != string(testSecret) {
		t.Fatal("secret not loaded")
	}
	if cfg.Token.Issuer != "example-issuer" {
		t.Fatalf("issuer = %q", cfg.Token.Issuer)
	}
	if cfg.Token.AccessTTL != 5*time.Minute {
		t.Fatalf("access ttl = %v", cfg.Token.AccessTTL)
	}
	if cfg.Cookie.SameSite != cookie.SameSiteStrict {
		t.Fatalf("samesite = %v", cfg.Cookie.SameSite)
	}
	if cfg.CSRF.Enabled {
		t.Fatal("csrf still enabled")
	}
	if cfg.Refresh.RetryGrace != 10*time.Second {
		t.Fatalf("retry grace = %v", cfg.Refresh.RetryGrace)
	}
	if cfg.RateLimit.Enabled {
		t.Fatal("rate limit still enabled")
	}

	// Untouched fields keep their defaults.
	if cfg.Token.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("refresh ttl = %v", cfg.Token.RefreshTTL)
	}
	if cfg.Refresh.RedisPrefix != "gsn" {
		t.Fatalf("prefix = %q", cfg.Refresh.RedisPrefix)
	}
}

func TestConfigFromEnvDefaultsWhenUnset(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	want := DefaultConfig()
	if cfg.Token.Issuer != want.Token.Issuer || cfg.Token.AccessTTL != want.Token.AccessTTL {
		t.Fatalf("cfg = %+v", cfg.Token)
	}
	if !cfg.CSRF.Enabled || !cfg.RateLimit.Enabled {
		t.Fatal("default-on flags flipped")
	}
}

func TestCloneConfigIsolation(t *testing.T) {
	cfg := validTestConfig()
	cfg.CSRF.ExemptPaths = []string{"/hooks/stripe"}

	clone := cloneConfig(cfg)
	clone.Token.Secret[0] = 'X'
	clone.CSRF.ExemptPaths[0] = "/other"

	if cfg.Token.Secret[0] == 'X' {
		t.Fatal("secret aliased")
	}
	if cfg.CSRF.ExemptPaths[0] != "/hooks/stripe" {
		t.Fatal("exempt paths aliased")
	}
}
