package gsnauth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// A burst of clients redeeming the same refresh token must produce
// exactly one rotated session; everyone else loses or trips replay
// detection depending on who reaches the store first.
func TestRefreshConcurrencySingleWinner(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	session, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := engine.Refresh(ctx, session.RefreshToken)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrRefreshLost),
				errors.Is(err, ErrRefreshReuse),
				errors.Is(err, ErrRefreshInvalid):
				losers++
			default:
				t.Errorf("unexpected refresh error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("winners = %d, want 1", winners)
	}
	if losers != n-1 {
		t.Fatalf("losers = %d, want %d", losers, n-1)
	}
}

// With a retry grace window, a loser that arrives just behind the
// winner is reported as a lost race instead of token reuse, and the
// family survives.
func TestRefreshConcurrencyGraceKeepsFamilyAlive(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Refresh.RetryGrace = cfg.Token.RefreshTTL / 2
	})
	ctx := context.Background()

	session, err := engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := engine.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Replaying the consumed token inside the grace window is a lost
	// race, not reuse, so the rotated token still works.
	if _, err := engine.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrRefreshLost) {
		t.Fatalf("replay err = %v", err)
	}
	if _, err := engine.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("rotated token refresh: %v", err)
	}
}
