package widgetapi

import (
	"context"
	"errors"
	"time"

	"github.com/frizerino/widget-gateway/internal/metrics"
)

// RetryConfig holds the automatic retry policy for remote API calls.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the policy shipped with the widget: three
// retries with sequential backoff. It exists for a timing race on freshly
// issued widget keys, not as a general flakiness shield.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			500 * time.Millisecond,
			1 * time.Second,
			2 * time.Second,
		},
	}
}

func (rc RetryConfig) delay(attempt int) time.Duration {
	if attempt < len(rc.RetryDelays) {
		return rc.RetryDelays[attempt]
	}
	if len(rc.RetryDelays) == 0 {
		return 500 * time.Millisecond
	}
	return rc.RetryDelays[len(rc.RetryDelays)-1]
}

// shouldRetry allows retries only for network-level failures (no HTTP
// status) and HTTP 401. Validation errors, malformed response bodies,
// cancelled contexts and the slot-taken conflict must surface immediately.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	apiErr, ok := AsAPIError(err)
	if !ok {
		// Transport error, no HTTP response.
		return true
	}
	if IsSlotTaken(err) {
		return false
	}
	return apiErr.StatusCode == 0 || apiErr.StatusCode == 401
}

// withRetry runs fn, retrying per the policy. Each retry waits out the full
// backoff delay before firing; calls for independent endpoints carry their
// own budget because each invocation owns its attempt counter.
func withRetry(ctx context.Context, rc RetryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil || !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt >= rc.MaxRetries {
			return lastErr
		}
		metrics.IncAPIRetry()
		select {
		case <-time.After(rc.delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
