package core

import (
	"fmt"
	"sync"
)

// CallBudget enforces a maximum number of agent invocations per run and keeps
// per-agent counts.
type CallBudget struct {
	max    int
	total  int
	counts map[string]int
	mu     sync.Mutex
}

// NewCallBudget creates a budget. If max == 0, unlimited calls are allowed.
func NewCallBudget(max int) *CallBudget {
	return &CallBudget{max: max, counts: map[string]int{}}
}

// Increment records one call by agent and returns an error if the budget is exceeded.
func (b *CallBudget) Increment(agent string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total++
	b.counts[agent]++

	if b.max > 0 && b.total > b.max {
		return fmt.Errorf("exceeded max agent calls: %d", b.max)
	}

	return nil
}

// Count returns the number of calls made by agent.
func (b *CallBudget) Count(agent string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts[agent]
}

// Total returns the number of calls made by all agents.
func (b *CallBudget) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.total
}

// Remaining returns how many calls are left, or -1 when unlimited.
func (b *CallBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max == 0 {
		return -1
	}

	return b.max - b.total
}
