package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func TestNew_ValidatesConfig(t *testing.T) {
	_, err := New(Config{MaxRetries: 100})
	require.Error(t, err)

	exec, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, exec)
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	exec, err := New(fastConfig(3))
	require.NoError(t, err)

	calls := 0
	err = exec.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	exec, err := New(fastConfig(3))
	require.NoError(t, err)

	calls := 0
	err = exec.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	exec, err := New(fastConfig(2))
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = exec.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "3 attempts")
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestDo_PermanentShortCircuits(t *testing.T) {
	exec, err := New(fastConfig(5))
	require.NoError(t, err)

	bad := errors.New("malformed claim")
	calls := 0
	err = exec.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(bad)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, bad)
	assert.Equal(t, 1, calls, "permanent errors must not be retried")
}

func TestDo_ContextCancellationAbortsBackoff(t *testing.T) {
	exec, err := New(Config{
		MaxRetries:     3,
		InitialBackoff: time.Hour, // cancellation must win, not the wait
		MaxBackoff:     time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err = exec.Do(ctx, func(context.Context) error {
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	exec, err := New(fastConfig(2), WithOnRetry(func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}))
	require.NoError(t, err)

	_ = exec.Do(context.Background(), func(context.Context) error {
		return errors.New("transient")
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_BackoffDoublingIsCapped(t *testing.T) {
	exec, err := New(Config{
		MaxRetries:     4,
		InitialBackoff: 2 * time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	require.NoError(t, err)

	// Schedule: 2ms, 4ms, then capped at 5ms twice. Total around 16ms;
	// without the cap the last two waits alone would be 24ms.
	start := time.Now()
	_ = exec.Do(context.Background(), func(context.Context) error {
		return errors.New("transient")
	})
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 14*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestIsPermanent(t *testing.T) {
	assert.False(t, IsPermanent(errors.New("plain")))
	assert.True(t, IsPermanent(Permanent(errors.New("bad"))))
	assert.True(t, IsPermanent(errorsJoinWrap(Permanent(errors.New("bad")))))
	assert.Nil(t, Permanent(nil))
}

// errorsJoinWrap buries a permanent error one level deeper to verify
// chain traversal.
func errorsJoinWrap(err error) error {
	return errors.Join(errors.New("outer"), err)
}
