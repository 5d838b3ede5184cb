package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, Config{
		EnableIPThrottle: true,
		MaxLoginAttempts: 3,
		Window:           time.Minute,
	}), mr
}

func TestLimiterBudgetExhaustion(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "alice", "1.2.3.4"); err != nil {
			t.Fatalf("attempt %d rejected early: %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "alice", "1.2.3.4"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	if err := l.CheckLogin(ctx, "alice", "1.2.3.4"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Other identities from other IPs are unaffected.
	if err := l.CheckLogin(ctx, "bob", "5.6.7.8"); err != nil {
		t.Fatalf("unrelated identity limited: %v", err)
	}
}

func TestLimiterWindowExpiry(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.IncrementLogin(ctx, "alice", "")
	}
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected fresh window, got %v", err)
	}
}

func TestLimiterResetAfterSuccess(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.IncrementLogin(ctx, "alice", "1.2.3.4")
	}
	if err := l.ResetLogin(ctx, "alice", "1.2.3.4"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	n, err := l.LoginAttempts(ctx, "alice")
	if err != nil || n != 0 {
		t.Fatalf("attempts after reset = %d, %v", n, err)
	}
	if err := l.CheckLogin(ctx, "alice", "1.2.3.4"); err != nil {
		t.Fatalf("check after reset: %v", err)
	}
}
