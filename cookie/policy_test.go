package cookie

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func mustResolver(t *testing.T, cfg Config) *Resolver {
	t.Helper()
	r, err := NewResolver(cfg)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

func TestResolveSecureRules(t *testing.T) {
	cases := []struct {
		name   string
		cfg    Config
		scheme string
		secure bool
	}{
		{"dev http", Config{Env: EnvDev, SameSite: SameSiteLax}, "http", false},
		{"dev https", Config{Env: EnvDev, SameSite: SameSiteLax}, "https", true},
		{"dev http forced", Config{Env: EnvDev, SameSite: SameSiteLax, ForceSecure: true}, "http", true},
		{"prod http", Config{Env: EnvProd, SameSite: SameSiteLax}, "http", true},
		{"prod https", Config{Env: EnvProd, SameSite: SameSiteLax}, "https", true},
	}
	for _, tc := range cases {
		p := mustResolver(t, tc.cfg).Resolve(tc.scheme)
		if p.Secure != tc.secure {
			t.Fatalf("%s: secure = %v, want %v", tc.name, p.Secure, tc.secure)
		}
	}
}

func TestResolveHostOnlyByDefault(t *testing.T) {
	p := mustResolver(t, Config{Env: EnvProd}).Resolve("https")
	if p.Domain != "" {
		t.Fatalf("domain = %q, want host-only", p.Domain)
	}
	if p.Path != "/" {
		t.Fatalf("path = %q, want /", p.Path)
	}
}

func TestSameSiteNoneRequiresSecure(t *testing.T) {
	if _, err := NewResolver(Config{Env: EnvDev, SameSite: SameSiteNone}); err == nil {
		t.Fatal("expected samesite=none without secure to be rejected")
	}

	r := mustResolver(t, Config{Env: EnvProd, SameSite: SameSiteNone})
	if !r.CrossSite() {
		t.Fatal("expected samesite=none to report cross-site mode")
	}
	p := r.Resolve("http")
	if !p.Secure {
		t.Fatal("samesite=none must force Secure")
	}
	if p.SameSite != http.SameSiteNoneMode {
		t.Fatalf("samesite = %v, want none", p.SameSite)
	}
}

func TestSetIncludesPriority(t *testing.T) {
	p := mustResolver(t, Config{Env: EnvProd}).Resolve("https")

	rec := httptest.NewRecorder()
	p.Set(rec, "access_token", "v1", time.Minute, true)

	got := rec.Header().Get("Set-Cookie")
	for _, want := range []string{"access_token=v1", "Path=/", "HttpOnly", "Secure", "Priority=High", "Max-Age=60"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Set-Cookie %q missing %q", got, want)
		}
	}
}

func TestClearMatchesSetAttributes(t *testing.T) {
	p := mustResolver(t, Config{Env: EnvProd, SameSite: SameSiteStrict}).Resolve("https")

	set := httptest.NewRecorder()
	p.Set(set, "refresh_token", "v1", time.Hour, true)
	cleared := httptest.NewRecorder()
	p.Clear(cleared, "refresh_token", true)

	attrs := func(header string) string {
		// strip name=value and Max-Age; everything else must match
		parts := strings.Split(header, "; ")
		var kept []string
		for _, part := range parts[1:] {
			if strings.HasPrefix(part, "Max-Age=") {
				continue
			}
			kept = append(kept, part)
		}
		return strings.Join(kept, "; ")
	}

	setHeader := set.Header().Get("Set-Cookie")
	clearHeader := cleared.Header().Get("Set-Cookie")
	if attrs(setHeader) != attrs(clearHeader) {
		t.Fatalf("clear attributes %q do not match set attributes %q", clearHeader, setHeader)
	}
	if !strings.Contains(clearHeader, "Max-Age=0") {
		t.Fatalf("clear header %q missing Max-Age=0", clearHeader)
	}
}

func TestReadValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: " abc "})

	got, ok := ReadValue(req, "csrf_token")
	if !ok || got != "abc" {
		t.Fatalf("ReadValue = %q, %v", got, ok)
	}
	if _, ok := ReadValue(req, "missing"); ok {
		t.Fatal("expected missing cookie to report absent")
	}
}
