package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/hupe1980/agentchat/logging"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures" env:"MAX_FAILURES"`
	// Timeout is how long the circuit stays open before going half-open.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

// CircuitBreakerModel guards a Model with a circuit breaker. When the wrapped
// model fails repeatedly, calls fail fast without reaching it. Responses are
// buffered so a call either yields one final response or an error.
type CircuitBreakerModel struct {
	inner   Model
	breaker *gobreaker.CircuitBreaker[Response]
	logger  logging.Logger
}

// NewCircuitBreaker wraps inner. Zero config values fall back to defaults.
func NewCircuitBreaker(inner Model, cfg CircuitBreakerConfig, logger logging.Logger) *CircuitBreakerModel {
	logger = logging.OrNoOp(logger)

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	info := inner.Info()
	cb := gobreaker.NewCircuitBreaker[Response](gobreaker.Settings{
		Name:        "model:" + info.Provider + ":" + info.Name,
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("model.breaker.state_changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation says nothing about model health
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerModel{inner: inner, breaker: cb, logger: logger}
}

// Generate implements Model. Calls are routed through the circuit breaker.
func (m *CircuitBreakerModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		resp, err := m.breaker.Execute(func() (Response, error) {
			return Complete(ctx, m.inner, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				errCh <- fmt.Errorf("model %q circuit open: %w", m.inner.Info().Name, err)
				return
			}
			errCh <- err
			return
		}

		out <- resp
	}()

	return out, errCh
}

// State returns the current breaker state.
func (m *CircuitBreakerModel) State() gobreaker.State { return m.breaker.State() }

// Info implements Model.
func (m *CircuitBreakerModel) Info() Info { return m.inner.Info() }
