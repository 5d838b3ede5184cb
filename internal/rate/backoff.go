package rate

import "time"

const (
	// backoffFreeAttempts are accepted without delay.
	backoffFreeAttempts = 3
	backoffBase         = 500 * time.Millisecond
	backoffCap          = 30 * time.Second
)

// Delay returns how much longer a caller should wait before the next login
// attempt, given the attempt count in the current window and the time already
// elapsed since the last attempt. Pure function: the host owns scheduling.
func Delay(attempts int, elapsed time.Duration) time.Duration {
	if attempts <= backoffFreeAttempts {
		return 0
	}

	d := backoffBase
	for i := backoffFreeAttempts + 1; i < attempts; i++ {
		d *= 2
		if d >= backoffCap {
			d = backoffCap
			break
		}
	}

	if elapsed > 0 {
		d -= elapsed
	}
	if d < 0 {
		return 0
	}
	return d
}
