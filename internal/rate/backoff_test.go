package rate

import (
	"testing"
	"time"
)

func TestDelayFreeAttempts(t *testing.T) {
	for attempts := 0; attempts <= backoffFreeAttempts; attempts++ {
		if d := Delay(attempts, 0); d != 0 {
			t.Fatalf("Delay(%d, 0) = %v, want 0", attempts, d)
		}
	}
}

func TestDelayDoublesAndCaps(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{4, 500 * time.Millisecond},
		{5, time.Second},
		{6, 2 * time.Second},
		{7, 4 * time.Second},
		{12, 30 * time.Second},
		{100, 30 * time.Second},
	}
	for _, tc := range cases {
		if d := Delay(tc.attempts, 0); d != tc.want {
			t.Fatalf("Delay(%d, 0) = %v, want %v", tc.attempts, d, tc.want)
		}
	}
}

func TestDelayCreditsElapsedTime(t *testing.T) {
	if d := Delay(6, 1500*time.Millisecond); d != 500*time.Millisecond {
		t.Fatalf("Delay(6, 1.5s) = %v, want 500ms", d)
	}
	if d := Delay(6, time.Minute); d != 0 {
		t.Fatalf("Delay(6, 1m) = %v, want 0", d)
	}
}
