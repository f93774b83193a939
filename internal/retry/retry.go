package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	// MaxDelay caps a single backoff wait.
	MaxDelay = time.Minute
)

var wait = utils.WaitFor

// Policy controls how many times a remote call is attempted and how long to
// back off between attempts. The wait before retry k (k starts at 0) is
// BaseDelay * 2^k.
type Policy struct {
	MaxAttempts int           `mapstructure:"max-attempts"`
	BaseDelay   time.Duration `mapstructure:"base-delay"`
}

// DefaultPolicy returns three attempts with 1s, 2s backoff.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

func (p Policy) normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Backoff returns the wait before retry number attempt, capped at MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if p.BaseDelay <= 0 {
		return 0
	}

	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if d >= MaxDelay/2 {
			return MaxDelay
		}
		d *= 2
	}
	return min(d, MaxDelay)
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. Only errors categorised as ai.ErrTransient are retried.
func Do[T any](ctx context.Context, policy Policy, logger *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	policy = policy.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if !ai.IsTransient(err) {
			return zero, err
		}
		lastErr = err

		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.Backoff(attempt)
		logger.Warn("retrying remote call",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Duration("wait", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return zero, fmt.Errorf("%s: waiting for retry: %w", op, err)
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, policy.MaxAttempts, lastErr)
}
