package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("partner", WithFailureThreshold(3), WithSuccessThreshold(2))

	assert.Equal(t, NoChange, b.RecordFailure())
	assert.Equal(t, NoChange, b.RecordFailure())
	assert.False(t, b.IsOpen())
	assert.Equal(t, Opened, b.RecordFailure())
	assert.True(t, b.IsOpen())
	assert.Equal(t, NoChange, b.RecordFailure(), "already open")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New("partner", WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, NoChange, b.RecordFailure())
	assert.False(t, b.IsOpen())
}

func TestBreakerClosesAfterConsecutiveSuccesses(t *testing.T) {
	b := New("partner", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	assert.Equal(t, NoChange, b.RecordSuccess())
	b.RecordFailure()
	assert.Equal(t, NoChange, b.RecordSuccess(), "a failure restarts the count")
	assert.Equal(t, Closed, b.RecordSuccess())
	assert.False(t, b.IsOpen())
}

func TestBreakerIgnoresInvalidThresholds(t *testing.T) {
	b := New("partner", WithFailureThreshold(0), WithSuccessThreshold(-1))
	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen())
	assert.Equal(t, Opened, b.RecordFailure())
	assert.Equal(t, "partner", b.Name())
}
