package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	assert.Equal(t, CircuitClosed, cb.State())
	ok, err := cb.Allow()
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestCircuitBreaker_TripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 3, ResetAfter: time.Minute})

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())

	ok, err := cb.Allow()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 3, ResetAfter: time.Minute})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, 2, cb.ConsecutiveFailures())
}

func TestCircuitBreaker_HalfOpenAfterReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 1, ResetAfter: 10 * time.Millisecond})

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// First request after the reset window probes the provider.
	ok, err := cb.Allow()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// Concurrent requests are held back while the probe is in flight.
	ok, err = cb.Allow()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCircuitBreaker_HalfOpenOutcomes(t *testing.T) {
	t.Run("probe success closes the circuit", func(t *testing.T) {
		cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 1, ResetAfter: 5 * time.Millisecond})
		cb.RecordFailure()
		time.Sleep(10 * time.Millisecond)

		ok, _ := cb.Allow()
		require.True(t, ok)
		cb.RecordSuccess()

		assert.Equal(t, CircuitClosed, cb.State())
		assert.Equal(t, 0, cb.ConsecutiveFailures())
	})

	t.Run("probe failure reopens the circuit", func(t *testing.T) {
		cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 1, ResetAfter: 5 * time.Millisecond})
		cb.RecordFailure()
		time.Sleep(10 * time.Millisecond)

		ok, _ := cb.Allow()
		require.True(t, ok)
		cb.RecordFailure()

		assert.Equal(t, CircuitOpen, cb.State())
	})
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute})
	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, 0, cb.ConsecutiveFailures())
}

func TestCircuitBreaker_DefaultsOnZeroConfig(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	for i := 0; i < DefaultCircuitBreakerConfig().Threshold-1; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, CircuitClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(42).String())
}
