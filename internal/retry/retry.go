// Package retry wraps fallible browser actions with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Action is any fallible operation the executor can drive.
type Action func(ctx context.Context) error

// Options controls a retry budget.
type Options struct {
	// MaxRetries is the number of retries after the initial attempt, so an
	// action runs at most MaxRetries+1 times.
	MaxRetries int
	// BaseDelay seeds the exponential backoff: base * 2^attempt plus jitter.
	BaseDelay time.Duration
	// Retryable reports whether a failure is worth retrying. A nil predicate
	// retries every error.
	Retryable func(error) bool
	// OnRetry is invoked before each backoff sleep with the zero-based
	// attempt index and the error that triggered the retry.
	OnRetry func(attempt int, err error)
	// Logger is optional; a nil logger disables retry logging.
	Logger *zap.Logger
}

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Backoff computes the delay before retry number attempt (zero-based):
// base * 2^attempt plus uniform jitter in [0, 10%) of the delay.
func Backoff(attempt int, base time.Duration) time.Duration {
	delay := base << uint(attempt)
	rngMu.Lock()
	jitter := time.Duration(rng.Float64() * 0.1 * float64(delay))
	rngMu.Unlock()
	return delay + jitter
}

// Do runs action until it succeeds or the retry budget is exhausted, sleeping
// an exponentially growing delay between attempts. The last failure is
// returned verbatim once the budget is spent; failures are never swallowed.
// A non-retryable error aborts immediately.
func Do(ctx context.Context, action Action, opts Options) error {
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		err := action(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if opts.Retryable != nil && !opts.Retryable(err) {
			return err
		}
		if attempt == opts.MaxRetries {
			break
		}

		delay := Backoff(attempt, opts.BaseDelay)
		if opts.Logger != nil {
			opts.Logger.Debug("Attempt failed, backing off",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", opts.MaxRetries+1),
				zap.Duration("delay", delay),
				zap.Error(err))
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

// Clicker abstracts a selector-addressed click so the fallback chain does not
// depend on a concrete browser driver.
type Clicker func(ctx context.Context, selector string) error

// ClickWithFallbacks tries the primary selector and then each fallback in
// order, spending the full retry budget on each before moving on. It returns
// the selector that finally clicked, or the last error once every selector's
// budget is exhausted.
func ClickWithFallbacks(ctx context.Context, click Clicker, primary string, fallbacks []string, opts Options) (string, error) {
	selectors := append([]string{primary}, fallbacks...)
	var lastErr error
	for _, sel := range selectors {
		sel := sel
		err := Do(ctx, func(ctx context.Context) error {
			return click(ctx, sel)
		}, opts)
		if err == nil {
			return sel, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if opts.Logger != nil {
			opts.Logger.Debug("Selector budget exhausted, trying next fallback",
				zap.String("selector", sel), zap.Error(err))
		}
	}
	return "", lastErr
}

// Safe runs fn and converts any failure into fallback. Use only where failure
// is expected and non-fatal, such as best-effort DOM probing.
func Safe[T any](fn func() (T, error), fallback T) T {
	v, err := fn()
	if err != nil {
		return fallback
	}
	return v
}

// sleep blocks for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
