package session

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"subcon/internal/logging"
	"subcon/internal/types"
)

// RetryPolicy bounds generation attempts. Delay is the base of an
// exponential backoff between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns three attempts starting at one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Second}
}

// Generate calls fn until it succeeds or the attempts are exhausted. Failure
// is always reported as *types.GenerationError. Context cancellation stops
// retrying immediately.
func (p RetryPolicy) Generate(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(delay))

	var (
		out   string
		tried int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		tried++
		text, err := fn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logging.SessionDebug("generation attempt %d/%d failed: %v", tried, attempts, err)
			return retry.RetryableError(err)
		}
		out = text
		return nil
	})
	if err != nil {
		return "", &types.GenerationError{Attempts: tried, Err: err}
	}
	return out, nil
}
