// Package retry wraps a unit of work with bounded retries and
// exponential backoff. It distinguishes permanent failures, which
// propagate immediately, from transient failures, which are retried
// until the attempt budget is exhausted.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default retry parameters.
const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 2 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// Config controls the executor's retry budget and backoff schedule.
type Config struct {
	// MaxRetries is the number of retry attempts after the initial
	// attempt. Zero disables retries entirely.
	MaxRetries int `yaml:"max_retries" json:"max_retries" validate:"min=0,max=10"`

	// InitialBackoff is the delay before the first retry. Each
	// subsequent retry doubles the delay.
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff" validate:"min=0"`

	// MaxBackoff caps the doubling schedule.
	MaxBackoff time.Duration `yaml:"max_backoff" json:"max_backoff" validate:"min=0"`
}

// DefaultConfig returns the production defaults: three retries starting
// at two seconds and capped at thirty.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

var validate = validator.New()

// Executor retries a function with exponential backoff.
// Executor is stateless apart from its configuration and safe for
// concurrent use.
type Executor struct {
	config Config
	logger *slog.Logger

	// onRetry, when set, is invoked once per retry attempt before the
	// backoff wait. The queue uses it to bump TaskRecord retry counts.
	onRetry func(attempt int, err error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithOnRetry registers a callback invoked once per retry attempt with
// the attempt number (1-based) and the error that triggered it.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(e *Executor) { e.onRetry = fn }
}

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Executor with a validated configuration.
func New(config Config, opts ...Option) (*Executor, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	e := &Executor{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// WithOptions returns a copy of the executor with the given options
// applied. The receiver is unchanged, so a shared base executor can be
// specialized per task, typically to attach a per-task retry callback.
func (e *Executor) WithOptions(opts ...Option) *Executor {
	derived := &Executor{
		config:  e.config,
		logger:  e.logger,
		onRetry: e.onRetry,
	}
	for _, opt := range opts {
		opt(derived)
	}
	return derived
}

// Do runs fn, retrying transient failures with exponential backoff.
//
// The schedule starts at InitialBackoff and doubles per attempt, capped
// at MaxBackoff. Permanent errors (see Permanent) and context
// cancellation short-circuit immediately. When the retry budget is
// exhausted, the last error is returned wrapped with the total attempt
// count.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	backoff := e.config.InitialBackoff

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				e.logger.Info("operation succeeded after retry", "attempts", attempt+1)
			}
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			e.logger.Debug("permanent failure, not retrying", "error", err)
			return err
		}
		if attempt == e.config.MaxRetries {
			break
		}

		retryNum := attempt + 1
		if e.onRetry != nil {
			e.onRetry(retryNum, err)
		}
		e.logger.Warn("transient failure, retrying",
			"error", err,
			"attempt", retryNum,
			"max_retries", e.config.MaxRetries,
			"backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > e.config.MaxBackoff {
			backoff = e.config.MaxBackoff
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", e.config.MaxRetries+1, lastErr)
}

// DoWithResult runs fn under the same retry policy and returns its
// value.
func DoWithResult[T any](ctx context.Context, e *Executor, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}
