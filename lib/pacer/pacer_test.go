package pacer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torviolento/fs.onedrivefs/fserrors"
)

func TestNewDefaults(t *testing.T) {
	p := New()
	assert.Equal(t, 10*time.Millisecond, p.minSleep)
	assert.Equal(t, 2*time.Second, p.maxSleep)
	assert.Equal(t, uint(2), p.decayConstant)
	assert.Equal(t, 3, p.retries)
	assert.Equal(t, p.minSleep, p.sleepTime)
}

func TestNewOptions(t *testing.T) {
	p := New(
		MinSleep(time.Millisecond),
		MaxSleep(time.Second),
		DecayConstant(4),
		Retries(7),
	)
	assert.Equal(t, time.Millisecond, p.minSleep)
	assert.Equal(t, time.Second, p.maxSleep)
	assert.Equal(t, uint(4), p.decayConstant)
	assert.Equal(t, 7, p.retries)
}

func TestCallSuccess(t *testing.T) {
	p := New(MinSleep(time.Microsecond))
	calls := 0
	err := p.Call(func() (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCallRetriesThenSucceeds(t *testing.T) {
	p := New(MinSleep(time.Microsecond), MaxSleep(time.Millisecond), Retries(5))
	calls := 0
	err := p.Call(func() (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCallExhaustsRetries(t *testing.T) {
	p := New(MinSleep(time.Microsecond), MaxSleep(time.Millisecond), Retries(3))
	calls := 0
	base := errors.New("still broken")
	err := p.Call(func() (bool, error) {
		calls++
		return true, base
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, base)
	// The exhausted error reports retriable so an outer layer can
	// still decide to start over.
	assert.True(t, fserrors.ShouldRetry(err))
}

// A callback may ask for a retry without supplying an error. Running
// out of retries then must still produce an error that formats without
// blowing up.
func TestCallExhaustsRetriesNilError(t *testing.T) {
	p := New(MinSleep(time.Microsecond), MaxSleep(time.Millisecond), Retries(3))
	calls := 0
	err := p.Call(func() (bool, error) {
		calls++
		return true, nil
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.NotEmpty(t, err.Error())
	assert.NotPanics(t, func() { _ = fmt.Sprintf("%v", err) })
}

func TestCallPermanentError(t *testing.T) {
	p := New(MinSleep(time.Microsecond), Retries(5))
	calls := 0
	base := errors.New("bad request")
	err := p.Call(func() (bool, error) {
		calls++
		return false, base
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, base)
	assert.False(t, fserrors.ShouldRetry(err))
}

func TestCallNoRetry(t *testing.T) {
	p := New(MinSleep(time.Microsecond))
	calls := 0
	err := p.CallNoRetry(func() (bool, error) {
		calls++
		return true, errors.New("would retry")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, fserrors.ShouldRetry(err))
}

func TestRetryAfterHintSetsSleep(t *testing.T) {
	p := New(MinSleep(time.Microsecond), MaxSleep(time.Minute), Retries(1))
	hint := 5 * time.Second
	_ = p.Call(func() (bool, error) {
		return true, RetryAfterError(errors.New("throttled"), hint)
	})
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, hint, p.sleepTime)
}

func TestRetryAfterHintCapped(t *testing.T) {
	p := New(MinSleep(time.Microsecond), MaxSleep(time.Millisecond), Retries(1))
	_ = p.Call(func() (bool, error) {
		return true, RetryAfterError(errors.New("throttled"), time.Hour)
	})
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, time.Millisecond, p.sleepTime)
}

func TestSleepDecaysOnSuccess(t *testing.T) {
	p := New(MinSleep(time.Microsecond), MaxSleep(time.Second), Retries(2))
	_ = p.Call(func() (bool, error) {
		return true, errors.New("transient")
	})
	p.mu.Lock()
	elevated := p.sleepTime
	p.mu.Unlock()
	assert.Greater(t, elevated, time.Microsecond)

	for i := 0; i < 100; i++ {
		require.NoError(t, p.Call(func() (bool, error) { return false, nil }))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, time.Microsecond, p.sleepTime)
}

func TestRetryAfterErrorWrapsNil(t *testing.T) {
	err := RetryAfterError(nil, time.Second)
	require.Error(t, err)
	assert.True(t, fserrors.ShouldRetry(err))
}
