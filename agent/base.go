package agent

import (
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/agentchat/core"
)

// BaseAgent bundles identity helpers shared by all adapters. Embed it in
// concrete agent implementations and supply an Invoke method to satisfy the
// core.Agent interface.
type BaseAgent struct {
	name         string
	description  string
	capabilities []string
	mu           sync.RWMutex
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(name string, capabilities ...string) BaseAgent {
	return BaseAgent{
		name:         name,
		description:  fmt.Sprintf("Agent %s", name),
		capabilities: slices.Clone(capabilities),
	}
}

// Name returns the unique participant name.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.description
}

// SetDescription updates the agent's description. Call it before a run starts.
func (b *BaseAgent) SetDescription(desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.description = desc
}

// Descriptor returns the immutable identity presented to strategies and the
// dispatcher.
func (b *BaseAgent) Descriptor() core.AgentDescriptor {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return core.AgentDescriptor{
		Name:         b.name,
		Description:  b.description,
		Capabilities: slices.Clone(b.capabilities),
	}
}

// stream runs fn on its own goroutine and adapts it to the channel pair
// returned by core.Agent.Invoke.
func stream(rc *core.RunContext, fn func(emit func(core.Message) bool) error) (<-chan core.Message, <-chan error) {
	out := make(chan core.Message)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		emit := func(m core.Message) bool {
			select {
			case out <- m:
				return true
			case <-rc.Done():
				return false
			}
		}

		if err := fn(emit); err != nil {
			errc <- err
		}
	}()

	return out, errc
}
