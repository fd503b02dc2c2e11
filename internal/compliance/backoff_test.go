package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// midJitter is the jitter sample that makes the jitter term vanish.
const midJitter = 0.5

func TestBackoffDelay_NoFailures(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())
	now := time.Now()

	assert.InDelta(t, 1.0, b.Delay(now, midJitter), 1e-9)
}

func TestBackoffDelay_ExponentialGrowth(t *testing.T) {
	b := NewBackoff(BackoffConfig{BaseDelay: 1.0, MaxDelay: 300.0, Multiplier: 2.0})
	now := time.Now()

	expected := []float64{2.0, 4.0, 8.0, 16.0}
	for i, want := range expected {
		b.RecordFailure(now)
		got := b.Delay(now, midJitter)
		assert.InDelta(t, want, got, 1e-9, "after %d failures", i+1)
	}
}

func TestBackoffDelay_CappedAtMax(t *testing.T) {
	b := NewBackoff(BackoffConfig{BaseDelay: 1.0, MaxDelay: 10.0, Multiplier: 2.0})
	now := time.Now()

	for i := 0; i < 20; i++ {
		b.RecordFailure(now)
	}

	assert.InDelta(t, 10.0, b.Delay(now, midJitter), 1e-9)
}

func TestBackoffDelay_JitterBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{BaseDelay: 1.0, MaxDelay: 300.0, Multiplier: 2.0})
	now := time.Now()
	b.RecordFailure(now)

	// The jitter band is 20 percent wide, centered on the raw delay.
	assert.InDelta(t, 1.8, b.Delay(now, 0.0), 1e-9)
	assert.InDelta(t, 2.2, b.Delay(now, 1.0), 1e-9)
}

func TestBackoffDelay_FloorsTinyDelays(t *testing.T) {
	b := NewBackoff(BackoffConfig{BaseDelay: 0.05, MaxDelay: 300.0, Multiplier: 2.0})
	now := time.Now()
	b.RecordFailure(now)

	assert.Equal(t, 0.1, b.Delay(now, 0.0))
}

func TestBackoffDelay_OldFailuresOutsideWindow(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())
	start := time.Now()

	b.RecordFailure(start)
	b.RecordFailure(start)

	// Two hours later the trailing-hour window is empty again.
	later := start.Add(2 * time.Hour)
	assert.InDelta(t, 1.0, b.Delay(later, midJitter), 1e-9)
}

func TestBackoffRecordSuccess_ForgivesOldFailuresOnly(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())
	now := time.Now()

	b.RecordFailure(now.Add(-30 * time.Minute))
	b.RecordFailure(now.Add(-5 * time.Minute))
	b.RecordFailure(now.Add(-2 * time.Minute))

	b.RecordSuccess(now)

	// Only failures older than ten minutes are forgiven; the recent pair
	// keeps the delay curve where it was.
	assert.Equal(t, 2, b.FailureCount())
	assert.InDelta(t, 4.0, b.Delay(now, midJitter), 1e-9)
}

func TestBackoffRecordSuccess_QuietStreakResetsToBase(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())
	now := time.Now()

	b.RecordFailure(now.Add(-45 * time.Minute))
	b.RecordFailure(now.Add(-20 * time.Minute))

	b.RecordSuccess(now)

	assert.Equal(t, 0, b.FailureCount())
	assert.InDelta(t, 1.0, b.Delay(now, midJitter), 1e-9)
}

func TestBackoffRecordFailure_DropsExpiredHistory(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())
	start := time.Now()

	b.RecordFailure(start)
	b.RecordFailure(start.Add(25 * time.Hour))

	// The first failure aged out of the 24 hour retention.
	assert.Equal(t, 1, b.FailureCount())
}
