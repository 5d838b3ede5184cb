package gsnauth

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func allowAlice(_ context.Context, identifier, secret string) (string, []string, error) {
	if identifier == "alice" && secret == "correct-password-123" {
		return "user-1", []string{"read", "write"}, nil
	}
	return "", nil, errors.New("bad credentials")
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithCredentialVerifier(CredentialVerifierFunc(allowAlice)).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}

func TestLoginMintsFullSession(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	session, err := engine.Login(context.Background(), "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Subject != "user-1" {
		t.Fatalf("subject = %q", session.Subject)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("token pair missing")
	}
	if session.CSRFToken == "" || session.SessionMarker == "" {
		t.Fatal("script-readable material missing")
	}
	if session.FamilyID == "" {
		t.Fatal("family id missing")
	}

	claims, err := engine.VerifyAccess(session.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != "user-1" || len(claims.Scopes) != 2 {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	_, err := engine.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoginRateLimiting(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.MaxLoginAttempts = 3
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	// Budget exhausted: even correct credentials are refused.
	if _, err := engine.Login(ctx, "alice", "correct-password-123"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoginSuccessResetsAttemptBudget(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.MaxLoginAttempts = 3
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(ctx, "alice", "wrong")
	}
	if _, err := engine.Login(ctx, "alice", "correct-password-123"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Counter was reset; two more failures stay under budget.
	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("post-reset attempt %d: %v", i, err)
		}
	}
}

func TestRefreshReplayRevokesFamily(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := engine.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Fatal("refresh token not rotated")
	}
	if rotated.FamilyID != session.FamilyID {
		t.Fatalf("family changed: %q vs %q", rotated.FamilyID, session.FamilyID)
	}

	// Scopes survive rotation without a verifier round-trip.
	claims, err := engine.VerifyAccess(rotated.AccessToken)
	if err != nil {
		t.Fatalf("verify rotated access: %v", err)
	}
	if len(claims.Scopes) != 2 {
		t.Fatalf("scopes = %v", claims.Scopes)
	}

	if _, err := engine.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("replay err = %v", err)
	}

	// The replay killed the family: the rotated token is dead too.
	if _, err := engine.Refresh(ctx, rotated.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("post-replay err = %v", err)
	}
}

func TestRefreshGarbageToken(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	if _, err := engine.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("err = %v", err)
	}
}

func TestRefreshAccessTokenRejected(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// An access token cannot be redeemed as a refresh token.
	if _, err := engine.Refresh(ctx, session.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("err = %v", err)
	}
}

func TestRefreshStoreDownFailsClosed(t *testing.T) {
	engine, mr := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	mr.SetError("store down")
	if _, err := engine.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestLogoutRevokesFamilyBestEffort(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := engine.Logout(ctx, session.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := engine.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("refresh after logout err = %v", err)
	}

	// Garbage and empty tokens are quiet no-ops.
	if err := engine.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("garbage logout: %v", err)
	}
	if err := engine.Logout(ctx, ""); err != nil {
		t.Fatalf("empty logout: %v", err)
	}
}

func TestLogoutAllRevokesEveryFamily(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	first, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login 1: %v", err)
	}
	second, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login 2: %v", err)
	}

	if err := engine.LogoutAll(ctx, first.RefreshToken); err != nil {
		t.Fatalf("logout all: %v", err)
	}

	if _, err := engine.Refresh(ctx, second.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("other device refresh err = %v", err)
	}
}

func TestWhoamiPrecedence(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	res := engine.Whoami(ctx, session.AccessToken, "", false)
	if !res.Authenticated || res.Source != WhoamiSourceCookie || res.Subject != "user-1" {
		t.Fatalf("cookie result = %+v", res)
	}

	res = engine.Whoami(ctx, "", session.AccessToken, false)
	if !res.Authenticated || res.Source != WhoamiSourceHeader {
		t.Fatalf("header result = %+v", res)
	}

	res = engine.Whoami(ctx, "garbage", "", true)
	if res.Authenticated || res.Source != WhoamiSourceMissing || !res.SessionMarkerOnly {
		t.Fatalf("marker result = %+v", res)
	}
}

func TestEngineWithoutVerifier(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret
	engine, err := New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := engine.Login(context.Background(), "alice", "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuilderRejectsMisconfiguration(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	if _, err := New().WithConfig(DefaultConfig()).WithRedis(client).Build(); err == nil {
		t.Fatal("missing secret accepted")
	}

	cfg := DefaultConfig()
	cfg.Token.Secret = testSecret
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("missing redis accepted")
	}

	b := New().WithConfig(cfg).WithRedis(client)
	if _, err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("builder reuse accepted")
	}
}
