// Package activity runs named steps under a retry and timeout policy.
// It is the in-process stand-in for a durable activity engine: each call is
// bounded by a per-attempt deadline and retried with exponential backoff.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrExhausted indicates every attempt of a step failed.
	ErrExhausted = errors.New("retries exhausted")
	// ErrInvalidPolicy indicates a policy that cannot drive retries.
	ErrInvalidPolicy = errors.New("invalid activity policy")
)

// Executor runs a named step, applying whatever retry and timeout policy
// is configured for it.
type Executor interface {
	Execute(ctx context.Context, step string, fn func(ctx context.Context) error) error
}

// Run executes fn through e and returns its value.
// The value from the last successful attempt wins.
func Run[T any](ctx context.Context, e Executor, step string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Execute(ctx, step, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as non-retryable. The executor returns it after the
// current attempt without scheduling another.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Supervisor is an Executor that keeps a policy per step name and falls
// back to a default policy for unknown steps.
type Supervisor struct {
	fallback Policy
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	mu       sync.RWMutex
	policies map[string]Policy
}

// New creates a Supervisor using fallback for steps without their own policy.
func New(fallback Policy, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		fallback: fallback,
		logger:   logger.With("system", "activity"),
		sleep:    sleepContext,
		policies: make(map[string]Policy),
	}
}

// WithPolicy registers p for the named step and returns the Supervisor.
func (s *Supervisor) WithPolicy(step string, p Policy) *Supervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[step] = p
	return s
}

// Policy returns the policy applied to step.
func (s *Supervisor) Policy(step string) Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.policies[step]; ok {
		return p
	}
	return s.fallback
}

// Execute runs fn until it succeeds, returns a permanent error, the parent
// context ends, or the attempt budget is spent. A per-attempt timeout is
// treated like any other retryable error.
func (s *Supervisor) Execute(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	p := s.Policy(step)
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, step, err)
	}

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}

		last = s.attempt(ctx, p, fn)
		if last == nil {
			return nil
		}

		if IsPermanent(last) {
			return fmt.Errorf("%s: %w", step, last)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", step, ctx.Err())
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Backoff(attempt)
		s.logger.WarnContext(
			ctx, "activity attempt failed",
			"step", step,
			"attempt", attempt,
			"retry_in", delay,
			"error", last,
		)

		if err := s.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %w", ErrExhausted, step, p.MaxAttempts, last)
}

func (s *Supervisor) attempt(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	return fn(attemptCtx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
