package iugu

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy calculates the delay before a retry. Implementations must
// be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the delay for the given retry. Attempt starts at 1
	// for the first retry.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff grows the delay geometrically and applies jitter so
// concurrent clients do not retry in lockstep.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval returns min(InitialInterval * Multiplier^(attempt-1), MaxInterval)
// scaled by a random factor in [1-JitterFactor, 1+JitterFactor].
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = 500 * time.Millisecond
	}
	maxInterval := e.MaxInterval
	if maxInterval == 0 {
		maxInterval = 10 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if e.JitterFactor > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.JitterFactor
	}
	if interval > float64(maxInterval) {
		interval = float64(maxInterval)
	}

	return time.Duration(interval)
}

// FixedBackoff waits the same interval between every retry.
type FixedBackoff struct {
	Interval time.Duration
}

// NextInterval always returns the configured interval.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy returns the retry policy used by the client unless
// overridden: short initial delay, doubled per attempt, 10% jitter.
func DefaultBackoffStrategy() BackoffStrategy {
	return ExponentialBackoff{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2,
		JitterFactor:    0.1,
	}
}
