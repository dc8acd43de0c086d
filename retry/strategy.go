// Package retry provides the exponential backoff policy used by the relay's
// retry scheduler, including jitter and the dead-letter threshold.
package retry

import (
	"fmt"
	"math"
	"time"
)

// Strategy defines how failed deliveries are retried.
//
// The schedule follows: backoff = min(BaseDelay * ExponentialBase^(attempt-1), MaxDelay),
// and each scheduled delay adds up to JitterRatio*backoff of random jitter.
//
// Example with defaults (1s base, 2.0 exponential, 60s max, 5 attempts):
//
//	Attempt 1: 1s
//	Attempt 2: 2s
//	Attempt 3: 4s
//	Attempt 4: 8s
//	Attempt 5: dead-letter
type Strategy struct {
	MaxAttempts     int           // Failed attempts before the message is dead-lettered
	BaseDelay       time.Duration // Backoff after the first failure
	MaxDelay        time.Duration // Backoff cap (jitter is added on top)
	ExponentialBase float64       // Backoff multiplier
	JitterRatio     float64       // Maximum jitter as a fraction of the backoff
}

// DefaultStrategy returns the relay's default retry strategy.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     5,
		BaseDelay:       time.Second,
		MaxDelay:        time.Minute,
		ExponentialBase: 2.0,
		JitterRatio:     0.2,
	}
}

// CalculateRetryDelay returns the backoff, without jitter, after the given
// number of failed attempts (1-based).
func (s Strategy) CalculateRetryDelay(attempt int) time.Duration {
	if s.BaseDelay <= 0 {
		return 0
	}
	if attempt <= 1 {
		return minDuration(s.BaseDelay, s.MaxDelay)
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attempt-1))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}

	return time.Duration(delay)
}

// Jitter returns the jitter to add to backoff for a random sample r in [0, 1).
func (s Strategy) Jitter(backoff time.Duration, r float64) time.Duration {
	if s.JitterRatio <= 0 || r <= 0 {
		return 0
	}
	return time.Duration(float64(backoff) * s.JitterRatio * r)
}

// NextDelay returns the full delay before the next attempt: backoff plus jitter.
func (s Strategy) NextDelay(attempt int, r float64) time.Duration {
	backoff := s.CalculateRetryDelay(attempt)
	return backoff + s.Jitter(backoff, r)
}

// ShouldDeadLetter reports whether a message with attemptCount failures must be
// dropped from the retry queue.
func (s Strategy) ShouldDeadLetter(attemptCount int) bool {
	return attemptCount >= s.MaxAttempts
}

// IsRetryable reports whether another attempt is allowed.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// GetRetrySchedule returns a human-readable description of the retry schedule.
//
// Example output:
//
//	Retry Schedule:
//	  Attempt 1: after 1s (+ up to 200ms jitter)
//	  ...
//	  Attempt 5: dead-letter
func (s Strategy) GetRetrySchedule() string {
	schedule := "Retry Schedule:\n"
	for i := 1; i <= s.MaxAttempts; i++ {
		if s.ShouldDeadLetter(i) {
			schedule += fmt.Sprintf("  Attempt %d: dead-letter\n", i)
			break
		}
		delay := s.CalculateRetryDelay(i)
		schedule += fmt.Sprintf("  Attempt %d: after %v (+ up to %v jitter)\n", i, delay, s.Jitter(delay, 1))
	}
	return schedule
}

func minDuration(a, b time.Duration) time.Duration {
	if b > 0 && b < a {
		return b
	}
	return a
}
