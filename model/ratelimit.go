package model

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures a token bucket in front of a model.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained call rate. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int     `yaml:"burst" env:"BURST"`
}

// RateLimitedModel delays calls so the wrapped model is not called faster
// than the configured rate.
type RateLimitedModel struct {
	inner   Model
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a token bucket limiter.
func NewRateLimited(inner Model, cfg RateLimitConfig) *RateLimitedModel {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &RateLimitedModel{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// Generate implements Model. It waits for a token before delegating.
func (m *RateLimitedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	if err := m.limiter.Wait(ctx); err != nil {
		out := make(chan Response)
		errCh := make(chan error, 1)
		errCh <- fmt.Errorf("rate limit wait: %w", err)
		close(out)
		close(errCh)
		return out, errCh
	}

	return m.inner.Generate(ctx, req)
}

// Info implements Model.
func (m *RateLimitedModel) Info() Info { return m.inner.Info() }
