// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides retry and status helpers shared by the
// text-generation backends.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay is the backoff base used when a Policy leaves BaseDelay
// unset. Tests override this to avoid real sleeps.
var RetryBaseDelay = time.Second

const defaultMaxRetries = 3

var (
	// ErrRateLimited marks a call rejected with HTTP 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransport marks a call that failed before any response arrived.
	ErrTransport = errors.New("transport failure")
)

// StatusError reports a non-success HTTP status other than 429.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API responded with status %d", e.StatusCode)
}

// CheckStatus classifies a response: nil for 2xx, ErrRateLimited for 429,
// and a *StatusError otherwise. For non-2xx responses a prefix of the body is
// kept and the body is drained.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrRateLimited)
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

// Policy configures Retry.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt (default 3).
	MaxRetries int

	// BaseDelay is the first backoff; each retry doubles it (default RetryBaseDelay).
	BaseDelay time.Duration

	// Logger receives one line per retry. Nil disables logging.
	Logger *zap.Logger
}

// Retryable reports whether err is worth another attempt: rate limiting and
// transport failures are, everything else is not.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransport)
}

// Retry calls fn until it succeeds, fails with a non-retryable error, or the
// retries run out. The delay starts at BaseDelay and doubles each attempt:
// with the defaults 1 s, 2 s, 4 s. After the last retry the final error is
// returned wrapped, so errors.Is still sees ErrRateLimited or ErrTransport.
// If ctx is cancelled during a backoff wait, Retry returns ctx.Err().
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	base := p.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || !Retryable(err) {
			return err
		}
		if attempt >= maxRetries {
			return fmt.Errorf("giving up after %d retries: %w", maxRetries, err)
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * base
		log.Debug("retrying call",
			zap.Error(err),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
