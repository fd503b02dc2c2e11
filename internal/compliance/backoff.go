package compliance

import (
	"time"
)

const (
	failureRetention = 24 * time.Hour
	failureWindow    = time.Hour
	successPrune     = 10 * time.Minute
	minDelay         = 0.1
)

// BackoffConfig controls the per-domain exponential backoff curve.
type BackoffConfig struct {
	BaseDelay  float64 // seconds
	MaxDelay   float64 // seconds
	Multiplier float64
}

// DefaultBackoffConfig mirrors the crawler defaults: 1s base, 5 minute cap,
// doubling per recent failure.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseDelay:  1.0,
		MaxDelay:   300.0,
		Multiplier: 2.0,
	}
}

// Backoff tracks recent failures for a single domain and derives a delay.
// It is process-local state, rebuilt from empty on restart, and must only be
// touched while holding the governor's lock.
type Backoff struct {
	cfg      BackoffConfig
	failures []time.Time // oldest first; pruned to the 24h retention window
}

// NewBackoff creates an empty backoff record for a domain.
func NewBackoff(cfg BackoffConfig) *Backoff {
	return &Backoff{cfg: cfg}
}

// Delay returns the recommended delay in seconds. With no failures inside the
// trailing hour it is the base delay; otherwise it grows exponentially with
// the in-window failure count, capped at MaxDelay, with jitter applied.
// jitter must be uniform in [0,1).
func (b *Backoff) Delay(now time.Time, jitter float64) float64 {
	recent := 0
	for _, ts := range b.failures {
		if now.Sub(ts) < failureWindow {
			recent++
		}
	}
	if recent == 0 {
		return b.cfg.BaseDelay
	}

	delay := b.cfg.BaseDelay
	for i := 0; i < recent; i++ {
		delay *= b.cfg.Multiplier
		if delay >= b.cfg.MaxDelay {
			delay = b.cfg.MaxDelay
			break
		}
	}

	// Jitter band 20% wide, centered on the raw delay.
	delay += delay * 0.2 * (jitter - 0.5)
	if delay < minDelay {
		delay = minDelay
	}
	return delay
}

// RecordFailure appends a failure timestamp and prunes entries older than the
// 24h retention window.
func (b *Backoff) RecordFailure(now time.Time) {
	b.failures = append(b.failures, now)
	b.prune(now.Add(-failureRetention))
}

// RecordSuccess forgives failures older than ten minutes. Failures inside the
// ten minute window stay on record, so one success during an active bad streak
// does not collapse the delay.
func (b *Backoff) RecordSuccess(now time.Time) {
	b.prune(now.Add(-successPrune))
}

// FailureCount returns the number of retained failure timestamps.
func (b *Backoff) FailureCount() int {
	return len(b.failures)
}

func (b *Backoff) prune(cutoff time.Time) {
	kept := b.failures[:0]
	for _, ts := range b.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.failures = kept
}
