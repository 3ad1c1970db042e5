package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGetDelay(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		baseSecs float64
	}{
		{name: "no failures", failures: 0, baseSecs: 0},
		{name: "first failure", failures: 1, baseSecs: 60},
		{name: "second failure doubles", failures: 2, baseSecs: 120},
		{name: "third failure doubles again", failures: 3, baseSecs: 240},
		{name: "capped at an hour", failures: 10, baseSecs: 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &BackoffState{ConsecutiveFailures: tt.failures}
			delay := b.GetDelay().Seconds()

			if tt.baseSecs == 0 {
				assert.Zero(t, delay)
				return
			}
			// Jitter is +/-10% of the base delay.
			assert.GreaterOrEqual(t, delay, tt.baseSecs*0.9-1)
			assert.LessOrEqual(t, delay, tt.baseSecs*1.1+1)
		})
	}
}

func TestBackoffRecordFailureAndSuccess(t *testing.T) {
	b := &BackoffState{}

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, 2, b.ConsecutiveFailures)
	assert.True(t, b.LastFailureTime.Valid)
	assert.WithinDuration(t, time.Now(), b.LastFailureTime.Time, time.Minute)

	b.RecordSuccess()
	assert.Equal(t, 0, b.ConsecutiveFailures)
	assert.False(t, b.LastFailureTime.Valid)
}
