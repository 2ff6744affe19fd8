package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		FailureThreshold:    3,
		OpenTimeout:         80 * time.Millisecond,
		HalfOpenMaxRequests: 1,
	}
}

func recordFailures(t *testing.T, bank *Bank, route string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		done, err := bank.Allow(route)
		require.NoError(t, err, "failure %d should still be allowed", i+1)
		done(false)
	}
}

func TestBank_UnseenRouteIsClosed(t *testing.T) {
	bank := NewBank(testConfig())
	assert.Equal(t, gobreaker.StateClosed, bank.State("10.0.0.1:8080"))

	done, err := bank.Allow("10.0.0.1:8080")
	require.NoError(t, err)
	done(true)
}

func TestBank_OpensAtThreshold(t *testing.T) {
	bank := NewBank(testConfig())
	const route = "10.0.0.1:8080"

	// N-1 failures keep the route available
	recordFailures(t, bank, route, 2)
	assert.Equal(t, gobreaker.StateClosed, bank.State(route))

	// failure N opens it
	recordFailures(t, bank, route, 1)
	assert.Equal(t, gobreaker.StateOpen, bank.State(route))

	_, err := bank.Allow(route)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBank_SuccessResetsConsecutiveCount(t *testing.T) {
	bank := NewBank(testConfig())
	const route = "10.0.0.1:8080"

	recordFailures(t, bank, route, 2)
	done, err := bank.Allow(route)
	require.NoError(t, err)
	done(true)

	// the streak restarted, two more failures must not open the route
	recordFailures(t, bank, route, 2)
	assert.Equal(t, gobreaker.StateClosed, bank.State(route))
}

func TestBank_HalfOpenSingleTrial(t *testing.T) {
	bank := NewBank(testConfig())
	const route = "10.0.0.2:3128"

	recordFailures(t, bank, route, 3)
	_, err := bank.Allow(route)
	require.ErrorIs(t, err, ErrOpen)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, bank.State(route))

	// exactly one trial passes
	done, err := bank.Allow(route)
	require.NoError(t, err)
	_, err2 := bank.Allow(route)
	assert.ErrorIs(t, err2, ErrOpen)

	// trial success closes the route again
	done(true)
	assert.Equal(t, gobreaker.StateClosed, bank.State(route))
}

func TestBank_HalfOpenFailureReopens(t *testing.T) {
	bank := NewBank(testConfig())
	const route = "10.0.0.2:3128"

	recordFailures(t, bank, route, 3)
	time.Sleep(100 * time.Millisecond)

	done, err := bank.Allow(route)
	require.NoError(t, err)
	done(false)

	assert.Equal(t, gobreaker.StateOpen, bank.State(route))
	_, err = bank.Allow(route)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBank_ResetAll(t *testing.T) {
	bank := NewBank(testConfig())

	recordFailures(t, bank, "a:1", 3)
	recordFailures(t, bank, "b:2", 3)
	assert.Equal(t, 2, bank.OpenCount())

	bank.ResetAll()

	assert.Equal(t, 0, bank.OpenCount())
	for _, route := range bank.Routes() {
		assert.Equal(t, gobreaker.StateClosed, bank.State(route))
	}
	done, err := bank.Allow("a:1")
	require.NoError(t, err)
	done(true)
}

func TestBank_ResetSingleRoute(t *testing.T) {
	bank := NewBank(testConfig())

	recordFailures(t, bank, "a:1", 3)
	recordFailures(t, bank, "b:2", 3)

	bank.Reset("a:1")

	assert.Equal(t, gobreaker.StateClosed, bank.State("a:1"))
	assert.Equal(t, gobreaker.StateOpen, bank.State("b:2"))
}

func TestBank_RecordHelpers(t *testing.T) {
	bank := NewBank(testConfig())
	const route = "direct"

	bank.RecordFailure(route)
	bank.RecordFailure(route)
	bank.RecordSuccess(route)
	assert.Equal(t, gobreaker.StateClosed, bank.State(route))

	bank.RecordFailure(route)
	bank.RecordFailure(route)
	bank.RecordFailure(route)
	assert.Equal(t, gobreaker.StateOpen, bank.State(route))

	// dropped while open, no panic and still open
	bank.RecordFailure(route)
	assert.Equal(t, gobreaker.StateOpen, bank.State(route))
}

func TestBank_RecordHelpersLeaveHalfOpenTrialAlone(t *testing.T) {
	bank := NewBank(testConfig())
	const route = "10.0.0.3:3128"

	recordFailures(t, bank, route, 3)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, gobreaker.StateHalfOpen, bank.State(route))

	// administrative reports neither settle the route nor take the trial slot
	bank.RecordSuccess(route)
	bank.RecordFailure(route)
	assert.Equal(t, gobreaker.StateHalfOpen, bank.State(route))

	done, err := bank.Allow(route)
	require.NoError(t, err, "the in-flight attempt still owns the trial")
	done(true)
	assert.Equal(t, gobreaker.StateClosed, bank.State(route))
}

func TestBank_ErrOpenIsWrapped(t *testing.T) {
	bank := NewBank(testConfig())
	recordFailures(t, bank, "x:1", 3)

	_, err := bank.Allow("x:1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOpen))
	assert.Contains(t, err.Error(), "x:1")
}
