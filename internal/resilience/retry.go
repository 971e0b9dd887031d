// Package resilience retries and guards calls to the GCIS API.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// Backoff controls retry attempts with exponential backoff and jitter.
type Backoff struct {
	// Attempts is the total number of tries. 1 disables retries.
	Attempts int
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps any single delay.
	Max time.Duration
	// Jitter spreads each delay by ±Jitter of its value.
	Jitter float64
}

// DefaultBackoff returns the policy used for page fetches.
func DefaultBackoff() Backoff {
	return Backoff{
		Attempts: 3,
		Initial:  500 * time.Millisecond,
		Max:      10 * time.Second,
		Jitter:   0.25,
	}
}

// NoRetry tries once.
func NoRetry() Backoff {
	return Backoff{Attempts: 1}
}

// IsTransient reports whether err is an upstream failure worth retrying:
// network errors including client timeouts, 408, 429 and 5xx responses.
// Cancellation, shape and parameter errors are permanent. An expired caller
// context is not distinguishable here, so Retry and the Breaker check the
// caller's ctx themselves.
func IsTransient(err error) bool {
	var te *gcis.TransportError
	if !errors.As(err, &te) {
		return false
	}
	switch {
	case te.StatusCode == 0:
		return !errors.Is(err, context.Canceled)
	case te.StatusCode == http.StatusRequestTimeout, te.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return te.StatusCode >= 500
	}
}

// Retry calls fn until it succeeds, returns a non-transient error, the
// attempts run out or ctx is done. The last error is returned.
func Retry[T any](ctx context.Context, b Backoff, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if b.Attempts <= 0 {
		b.Attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < b.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == b.Attempts-1 {
			break
		}

		delay := b.delay(attempt)
		zap.L().Warn("retrying gcis request",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func (b Backoff) delay(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(2, float64(attempt))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
