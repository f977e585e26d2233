package retrier

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
)

const (
	defaultAttempts    = 3
	defaultMinInterval = 500 * time.Millisecond
	defaultMaxInterval = 10 * time.Second
)

// Retrier runs a function up to a fixed number of attempts with
// jittered exponential backoff between them.
type Retrier struct {
	attempts int
	min      time.Duration
	max      time.Duration
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithAttempts sets the total number of attempts (including the first).
func WithAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithMinInterval sets the initial backoff interval.
func WithMinInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.min = d
	}
}

// WithMaxInterval sets the backoff interval cap.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.max = d
	}
}

// New creates a Retrier with defaults and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		attempts: defaultAttempts,
		min:      defaultMinInterval,
		max:      defaultMaxInterval,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do executes fn until it succeeds or the attempts are exhausted.
// Returns the last error, or ctx.Err() if the context is cancelled
// while waiting between attempts.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	// each call gets its own schedule, Backoff is not safe for reuse
	b := &backoff.Backoff{
		Min:    r.min,
		Max:    r.max,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.Duration()):
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}

	return err
}

// DoWithData executes fn with retries and returns its value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
