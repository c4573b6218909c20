package retriever

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/Ayash-Bera/device-advisor/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPolicy never actually sleeps.
func recordingPolicy(delays *[]time.Duration) RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
	return p
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, 800*time.Millisecond, p.Delay(3))
	assert.Equal(t, 1600*time.Millisecond, p.Delay(4))
	assert.Equal(t, 2*time.Second, p.Delay(5))
	assert.Equal(t, 2*time.Second, p.Delay(12))
}

func TestRetryPolicy_RetriesServerErrors(t *testing.T) {
	var delays []time.Duration
	calls := 0

	err := recordingPolicy(&delays).Do(context.Background(), utils.NewTestLogger(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &statusError{Code: http.StatusServiceUnavailable}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, delays)
}

func TestRetryPolicy_Exhaustion(t *testing.T) {
	var delays []time.Duration
	calls := 0

	err := recordingPolicy(&delays).Do(context.Background(), utils.NewTestLogger(), "test", func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRetrievalTransport))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
}

func TestRetryPolicy_ClientErrorsFailFast(t *testing.T) {
	var delays []time.Duration
	calls := 0

	err := recordingPolicy(&delays).Do(context.Background(), utils.NewTestLogger(), "test", func(ctx context.Context) error {
		calls++
		return &statusError{Code: http.StatusBadRequest, Body: "bad filter"}
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRetrievalTransport))
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestRetryPolicy_RejectedCredentials(t *testing.T) {
	var delays []time.Duration

	err := recordingPolicy(&delays).Do(context.Background(), utils.NewTestLogger(), "test", func(ctx context.Context) error {
		return &statusError{Code: http.StatusForbidden, Body: "invalid api key"}
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestRetryPolicy_RateLimitedIsRetried(t *testing.T) {
	var delays []time.Duration
	calls := 0

	err := recordingPolicy(&delays).Do(context.Background(), utils.NewTestLogger(), "test", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &statusError{Code: http.StatusTooManyRequests}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicy_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	p := DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := p.Do(ctx, utils.NewTestLogger(), "test", func(ctx context.Context) error {
		calls++
		return errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
