package retry

import (
	"math"
	"math/rand"
	"time"
)

// minBackoff is the floor applied after jitter so retries never spin.
const minBackoff = 100 * time.Millisecond

// Backoff returns the delay before retry number attempt (0-based):
// min(base * 2^attempt, max), with ±25% multiplicative jitter when enabled
// to spread synchronized retries, and never less than 100ms.
func Backoff(attempt int, base, max time.Duration, jitter bool) time.Duration {
	if base <= 0 {
		return minBackoff
	}
	scaled := float64(base) * math.Pow(2, float64(attempt))
	if max > 0 && scaled > float64(max) {
		scaled = float64(max)
	}
	delay := time.Duration(scaled)
	if jitter {
		spread := float64(delay) * 0.25
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	if delay < minBackoff {
		delay = minBackoff
	}
	return delay
}
