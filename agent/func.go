package agent

import (
	"github.com/hupe1980/agentchat/core"
)

// Handler computes the messages of one turn.
type Handler func(rc *core.RunContext, req core.InvokeRequest) ([]core.Message, error)

// FuncAgent adapts a Handler to core.Agent. Messages without an author are
// attributed to the agent.
type FuncAgent struct {
	BaseAgent
	fn Handler
}

// NewFuncAgent creates a FuncAgent.
func NewFuncAgent(name, description string, fn Handler, capabilities ...string) *FuncAgent {
	base := NewBaseAgent(name, capabilities...)
	if description != "" {
		base.description = description
	}
	return &FuncAgent{BaseAgent: base, fn: fn}
}

// NewTextAgent returns a FuncAgent that answers with fn's text.
func NewTextAgent(name, description string, fn func(history []core.Message) string) *FuncAgent {
	return NewFuncAgent(name, description, func(_ *core.RunContext, req core.InvokeRequest) ([]core.Message, error) {
		return []core.Message{core.NewTextMessage(core.RoleAgent, name, fn(req.History))}, nil
	})
}

// Invoke implements core.Agent.
func (a *FuncAgent) Invoke(rc *core.RunContext, req core.InvokeRequest) (<-chan core.Message, <-chan error) {
	return stream(rc, func(emit func(core.Message) bool) error {
		msgs, err := a.fn(rc, req)
		if err != nil {
			return err
		}

		for _, m := range msgs {
			if m.Author == "" {
				m.Author = a.Name()
			}
			if m.Role == "" {
				m.Role = core.RoleAgent
			}
			if !emit(m) {
				return rc.Err()
			}
		}

		return nil
	})
}
