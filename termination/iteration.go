package termination

import (
	"context"
	"sync"

	"github.com/hupe1980/agentchat/core"
)

// IterationOptions configures Iteration.
type IterationOptions struct {
	Scope
	MaxIterations int
}

// Iteration terminates once it has been evaluated MaxIterations times for
// in-scope agents.
type Iteration struct {
	opts  IterationOptions
	mu    sync.Mutex
	count int
}

// NewIteration creates an Iteration strategy.
func NewIteration(maxIterations int, optFns ...func(o *IterationOptions)) *Iteration {
	opts := IterationOptions{MaxIterations: maxIterations}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Iteration{opts: opts}
}

// Name implements Strategy.
func (s *Iteration) Name() string { return "iteration" }

// ShouldTerminate implements Strategy.
func (s *Iteration) ShouldTerminate(_ context.Context, agent core.Agent, _ []core.Message) (bool, error) {
	if !s.opts.admits(agent) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++

	return s.count >= s.opts.MaxIterations, nil
}

// Count returns the number of in-scope evaluations since the last reset.
func (s *Iteration) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Reset implements Strategy.
func (s *Iteration) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
}
