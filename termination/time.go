package termination

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentchat/core"
)

// TimeOptions configures Time.
type TimeOptions struct {
	Scope
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Time terminates once the wall-clock time since construction or the last
// Reset exceeds a duration. It is cooperative: in-flight calls are not
// interrupted.
type Time struct {
	d     time.Duration
	opts  TimeOptions
	mu    sync.Mutex
	start time.Time
}

// NewTime creates a Time strategy.
func NewTime(d time.Duration, optFns ...func(o *TimeOptions)) *Time {
	opts := TimeOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Time{d: d, opts: opts, start: opts.Now()}
}

// Name implements Strategy.
func (s *Time) Name() string { return "time" }

// ShouldTerminate implements Strategy.
func (s *Time) ShouldTerminate(_ context.Context, agent core.Agent, _ []core.Message) (bool, error) {
	if !s.opts.admits(agent) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.opts.Now().Sub(s.start) > s.d, nil
}

// Reset implements Strategy.
func (s *Time) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = s.opts.Now()
}
