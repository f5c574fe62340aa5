package orphan

import (
	"math/rand"
	"time"
)

// Sweeper retry delays. A delete that failed inline has already been retried
// for a few seconds, so the first sweep waits a little longer.
var retryDelays = []time.Duration{
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	1 * time.Hour,
	6 * time.Hour,
}

const (
	// DefaultMaxAttempts is the number of sweeper deletes before dead-lettering.
	DefaultMaxAttempts = 6

	// JitterFactor is the ±percentage of jitter applied to delays.
	JitterFactor = 0.2
)

// NextRetryDelay returns the delay after the given failed attempt with ±20% jitter.
// attemptCount is 0-indexed.
func NextRetryDelay(attemptCount int) time.Duration {
	if attemptCount < 0 {
		attemptCount = 0
	}
	if attemptCount >= len(retryDelays) {
		attemptCount = len(retryDelays) - 1
	}

	base := retryDelays[attemptCount]
	jitterRange := float64(base) * JitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange

	return time.Duration(float64(base) + jitter)
}

// NextRetryAt returns when the next attempt is due.
func NextRetryAt(now time.Time, attemptCount int) time.Time {
	return now.Add(NextRetryDelay(attemptCount))
}

// IsExhausted returns true if max attempts have been reached.
func IsExhausted(attemptCount, maxAttempts int) bool {
	return attemptCount >= maxAttempts
}

// GetRetryDelays returns the configured retry delays.
func GetRetryDelays() []time.Duration {
	return append([]time.Duration{}, retryDelays...)
}
