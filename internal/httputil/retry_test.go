// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Use a tiny base delay so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

// countingCall fails with err for the first n calls and then succeeds.
func countingCall(calls *int32, n int32, err error) func(context.Context) error {
	return func(context.Context) error {
		if atomic.AddInt32(calls, 1) <= n {
			return err
		}
		return nil
	}
}

func TestRetry_ImmediateSuccess(t *testing.T) {
	var calls int32
	err := Retry(context.Background(), Policy{}, countingCall(&calls, 0, nil))
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetry_RateLimitedThenSuccess(t *testing.T) {
	var calls int32
	err := Retry(context.Background(), Policy{MaxRetries: 3}, countingCall(&calls, 2, ErrRateLimited))
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetry_ExhaustsRetries(t *testing.T) {
	var calls int32
	err := Retry(context.Background(), Policy{MaxRetries: 3}, countingCall(&calls, 100, ErrRateLimited))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	// 1 initial + 3 retries = 4 total calls.
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestRetry_DefaultMaxRetries(t *testing.T) {
	var calls int32
	err := Retry(context.Background(), Policy{}, countingCall(&calls, 100, ErrTransport))
	assert.ErrorIs(t, err, ErrTransport)
	// 1 initial + 3 default retries = 4 total calls.
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestRetry_NonRetryablePassesThrough(t *testing.T) {
	var calls int32
	boom := errors.New("boom")
	err := Retry(context.Background(), Policy{}, countingCall(&calls, 100, boom))
	assert.Equal(t, boom, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetry_BackoffDoubles(t *testing.T) {
	var stamps []time.Time
	_ = Retry(context.Background(), Policy{MaxRetries: 2, BaseDelay: 20 * time.Millisecond}, func(context.Context) error {
		stamps = append(stamps, time.Now())
		return ErrRateLimited
	})
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := Retry(ctx, Policy{MaxRetries: 5, BaseDelay: 500 * time.Millisecond}, func(context.Context) error {
		return ErrRateLimited
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		status  int
		check   func(t *testing.T, err error)
		wantNil bool
	}{
		{status: http.StatusOK, wantNil: true},
		{status: http.StatusTooManyRequests, check: func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrRateLimited)
		}},
		{status: http.StatusInternalServerError, check: func(t *testing.T, err error) {
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, 500, se.StatusCode)
			assert.Equal(t, "API responded with status 500", se.Error())
			assert.Equal(t, "oops", se.Body)
			assert.False(t, Retryable(err))
		}},
	}
	for _, tt := range tests {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			io.WriteString(w, "oops")
		}))
		resp, err := ts.Client().Get(ts.URL)
		require.NoError(t, err)
		got := CheckStatus(resp)
		resp.Body.Close()
		ts.Close()

		if tt.wantNil {
			assert.NoError(t, got)
			continue
		}
		tt.check(t, got)
	}
}

func TestStatusErrorBodyIsTruncated(t *testing.T) {
	resp := &http.Response{StatusCode: 502, Body: io.NopCloser(strings.NewReader(strings.Repeat("x", 5000)))}
	var se *StatusError
	require.True(t, errors.As(CheckStatus(resp), &se))
	assert.Len(t, se.Body, 1024)
}
