// Package retry implements the pure backoff function used to schedule a
// job's next attempt after a retryable failure.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Delay computes the backoff before the next attempt:
//
//	delay(attempts, base, cap) = min(cap, base^attempts) + U(0, 0.5*base)
//
// attempts is the number of attempts already made (0 for the first retry).
// base must be > 1, cap must be > 0. The jitter term prevents synchronized
// retry storms across jobs enqueued at the same instant.
func Delay(attempts int, base, maxCap float64) time.Duration {
	exp := math.Pow(base, float64(attempts))
	bounded := math.Min(maxCap, exp)
	jitter := rand.Float64() * 0.5 * base
	seconds := bounded + jitter
	return time.Duration(seconds * float64(time.Second))
}

// NextRunAt returns now shifted forward by Delay(attempts, base, maxCap).
func NextRunAt(now time.Time, attempts int, base, maxCap float64) time.Time {
	return now.Add(Delay(attempts, base, maxCap))
}
