package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("element not interactable")

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, Options{MaxRetries: 3, BaseDelay: time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsBudgetAndReturnsLastError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errFlaky
	}, Options{MaxRetries: 3, BaseDelay: time.Millisecond})

	// max_retries=3 means exactly 4 invocations, and the 4th failure surfaces.
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, errFlaky)
}

func TestDoRecoversMidBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	}, Options{MaxRetries: 3, BaseDelay: time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoNonRetryableAbortsImmediately(t *testing.T) {
	fatal := errors.New("page crashed")
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	}, Options{
		MaxRetries: 5,
		BaseDelay:  time.Millisecond,
		Retryable:  func(err error) bool { return errors.Is(err, errFlaky) },
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, fatal)
}

func TestDoInvokesOnRetryCallback(t *testing.T) {
	var attempts []int
	_ = Do(context.Background(), func(ctx context.Context) error {
		return errFlaky
	}, Options{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		OnRetry:    func(attempt int, err error) { attempts = append(attempts, attempt) },
	})

	// The callback fires before each backoff sleep, not after the final failure.
	assert.Equal(t, []int{0, 1}, attempts)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, func(ctx context.Context) error {
		calls++
		return errFlaky
	}, Options{MaxRetries: 10, BaseDelay: 500 * time.Millisecond})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffGrowsMonotonically(t *testing.T) {
	base := 2 * time.Second
	for attempt := 0; attempt < 4; attempt++ {
		d := Backoff(attempt, base)
		expected := base << uint(attempt)
		// Jitter is bounded at 10% of the raw delay.
		assert.GreaterOrEqual(t, d, expected)
		assert.Less(t, d, expected+time.Duration(float64(expected)*0.1)+time.Millisecond)
	}
	// Even with maximal jitter on the earlier attempt the delays strictly increase.
	assert.Greater(t, Backoff(1, base), Backoff(0, base))
}

func TestClickWithFallbacksUsesFirstWorkingSelector(t *testing.T) {
	var tried []string
	click := func(ctx context.Context, sel string) error {
		tried = append(tried, sel)
		if sel == "button.apply" {
			return nil
		}
		return errFlaky
	}

	sel, err := ClickWithFallbacks(context.Background(), click,
		"button[type=submit]", []string{"button.apply", "input[type=submit]"},
		Options{MaxRetries: 1, BaseDelay: time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, "button.apply", sel)
	// The primary selector's full budget (2 attempts) runs before the fallback.
	assert.Equal(t, []string{"button[type=submit]", "button[type=submit]", "button.apply"}, tried)
}

func TestClickWithFallbacksExhaustsEverySelector(t *testing.T) {
	calls := 0
	click := func(ctx context.Context, sel string) error {
		calls++
		return errFlaky
	}

	sel, err := ClickWithFallbacks(context.Background(), click,
		"a", []string{"b", "c"},
		Options{MaxRetries: 1, BaseDelay: time.Millisecond})

	assert.Empty(t, sel)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 6, calls) // 3 selectors x 2 attempts each
}

func TestSafeReturnsFallbackOnError(t *testing.T) {
	got := Safe(func() (string, error) { return "", errors.New("boom") }, "default")
	assert.Equal(t, "default", got)

	got = Safe(func() (string, error) { return "value", nil }, "default")
	assert.Equal(t, "value", got)
}
