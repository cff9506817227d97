package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/twigate/twigate/internal/model"
)

// Class is the closed classification of a remote failure.
type Class int

const (
	Retryable Class = iota
	AuthExpired
	Fatal
)

func (c Class) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case AuthExpired:
		return "auth-expired"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Error is returned by Do on terminal failure. Its unwrap chain reaches
// model.ErrorOperationFailed or model.ErrorAuthentication so callers can
// test with errors.Is; Class preserves the final classification.
type Error struct {
	Class    Class
	Attempts int
	cause    error
}

func (e *Error) Error() string {
	return e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Policy wraps a remote operation with bounded re-attempts.
//
// Retryable failures back off and re-attempt up to MaxAttempts. An
// auth-expired failure triggers OnAuthExpired once and then a single
// extra attempt outside the normal budget; if that attempt fails too, the
// result is an authentication failure rather than an endless loop. Fatal
// failures surface immediately.
type Policy struct {
	MaxAttempts   int
	Delay         time.Duration
	Classify      func(error) Class
	OnAuthExpired func(context.Context) error
}

// Do runs op under the policy, returning the number of attempts made and
// the terminal error, if any.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	delay := p.Delay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	attempts := 0
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(delay, attempt)); err != nil {
				return attempts, &Error{Class: Retryable, Attempts: attempts, cause: fmt.Errorf("%w: %v", model.ErrorOperationFailed, err)}
			}
		}

		attempts++
		err := op(ctx)
		if err == nil {
			return attempts, nil
		}
		lastErr = err

		switch p.Classify(err) {
		case Fatal:
			return attempts, &Error{Class: Fatal, Attempts: attempts, cause: fmt.Errorf("%w: %v", model.ErrorOperationFailed, err)}

		case AuthExpired:
			if p.OnAuthExpired != nil {
				if authErr := p.OnAuthExpired(ctx); authErr != nil {
					return attempts, &Error{Class: AuthExpired, Attempts: attempts, cause: authErr}
				}
			}
			// One extra attempt outside the normal budget.
			attempts++
			err = op(ctx)
			if err == nil {
				return attempts, nil
			}
			return attempts, &Error{Class: AuthExpired, Attempts: attempts, cause: fmt.Errorf("%w: %v", model.ErrorAuthentication, err)}

		case Retryable:
			// fall through to the next attempt
		}
	}

	return attempts, &Error{Class: Retryable, Attempts: attempts, cause: fmt.Errorf("%w: %v", model.ErrorOperationFailed, lastErr)}
}

// backoff doubles the delay per attempt, capped at five times the base
// delay (2s, 4s, 8s, 10s, 10s... for the default).
func backoff(delay time.Duration, attempt int) time.Duration {
	d := delay << (attempt - 1)
	if max := 5 * delay; d > max {
		d = max
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
