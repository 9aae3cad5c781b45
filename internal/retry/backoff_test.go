package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelayNonNegative(t *testing.T) {
	for attempts := 0; attempts < 20; attempts++ {
		d := Delay(attempts, 2.0, 3600)
		require.GreaterOrEqual(t, d, time.Duration(0))
	}
}

func TestDelayFirstAttempt(t *testing.T) {
	// attempts=0 => base^0 = 1, so delay is in [1s, 1s+0.5*base).
	base := 2.0
	for i := 0; i < 50; i++ {
		d := Delay(0, base, 3600)
		require.GreaterOrEqual(t, d, time.Second)
		require.Less(t, d, time.Duration(1+0.5*base)*time.Second)
	}
}

func TestDelayBoundedByCap(t *testing.T) {
	base := 2.0
	maxCap := 10.0
	for i := 0; i < 50; i++ {
		d := Delay(30, base, maxCap)
		require.LessOrEqual(t, d, time.Duration(maxCap+0.5*base)*time.Second)
	}
}

func TestDelayMonotonicBelowCap(t *testing.T) {
	base := 2.0
	maxCap := 100000.0
	// Single Delay draws carry jitter, so this checks the growth trend of the
	// bounded exponential term that Delay adds the jitter to, recomputed by
	// boundedExp.
	prev := 0.0
	for attempts := 0; attempts < 10; attempts++ {
		cur := boundedExp(attempts, base, maxCap)
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func boundedExp(attempts int, base, maxCap float64) float64 {
	exp := 1.0
	for i := 0; i < attempts; i++ {
		exp *= base
	}
	if exp > maxCap {
		return maxCap
	}
	return exp
}
