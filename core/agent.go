package core

import (
	"context"
	"slices"
	"strings"
)

// Agent is an opaque capability provider taking turns in a group chat.
//
// Invoke starts one fresh interaction over the given history view and
// returns a finite, non-restartable stream of response messages. The message
// channel is closed when the agent is done; at most one error is delivered on
// the error channel. Implementations must not write to the canonical history
// and must honor cancellation of rc.Context.
type Agent interface {
	Name() string
	Description() string
	Descriptor() AgentDescriptor
	Invoke(rc *RunContext, req InvokeRequest) (<-chan Message, <-chan error)
}

// InvokeRequest carries the inputs of a single agent invocation.
type InvokeRequest struct {
	// History is a read-only (possibly reduced) view of the conversation.
	History []Message
	// Directive optionally steers this turn only. It is never persisted.
	Directive *Message
}

// AgentDescriptor is the immutable identity of a participant.
type AgentDescriptor struct {
	Name        string
	Description string
	// Capabilities lists the plugins or functions the agent may call. A
	// plugin name grants all of its functions. Empty means unrestricted.
	Capabilities []string
}

// Permits reports whether the agent may call the named capability.
func (d AgentDescriptor) Permits(capability string) bool {
	if len(d.Capabilities) == 0 {
		return true
	}

	if slices.Contains(d.Capabilities, capability) {
		return true
	}

	if plugin, _, ok := strings.Cut(capability, "."); ok {
		return slices.Contains(d.Capabilities, plugin)
	}

	return false
}

// HumanInput collects input from a human participant.
type HumanInput interface {
	Ask(ctx context.Context, prompt string, history []Message) (string, error)
}

// AgentNames returns the names of agents in order.
func AgentNames(agents []Agent) []string {
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name()
	}
	return names
}

// FindAgent returns the agent with the given name (case-insensitive).
func FindAgent(agents []Agent, name string) (Agent, bool) {
	for _, a := range agents {
		if strings.EqualFold(a.Name(), name) {
			return a, true
		}
	}
	return nil, false
}
