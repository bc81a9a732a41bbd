package testutil

import (
	"strconv"
	"sync"
	"time"

	"github.com/hupe1980/agentchat/core"
)

// Reply produces the messages of one invocation.
type Reply func(req core.InvokeRequest) ([]core.Message, error)

// Say returns a Reply answering with text.
func Say(text string) Reply {
	return func(core.InvokeRequest) ([]core.Message, error) {
		return []core.Message{core.NewTextMessage(core.RoleAgent, "", text)}, nil
	}
}

// CallFunction returns a Reply requesting a single function call.
func CallFunction(name, args string) Reply {
	return func(core.InvokeRequest) ([]core.Message, error) {
		return []core.Message{core.NewFunctionCallMessage("", core.FunctionCall{Name: name, Arguments: args})}, nil
	}
}

// Fail returns a Reply failing with err.
func Fail(err error) Reply {
	return func(core.InvokeRequest) ([]core.Message, error) { return nil, err }
}

// ScriptedAgent is a core.Agent answering invocations from a script. When
// the script runs out the last reply repeats. With no script it answers
// "<name> turn <n>".
type ScriptedAgent struct {
	desc    core.AgentDescriptor
	replies []Reply
	delay   time.Duration

	mu       sync.Mutex
	requests []core.InvokeRequest
}

// NewScriptedAgent creates a ScriptedAgent.
func NewScriptedAgent(name string, replies ...Reply) *ScriptedAgent {
	return &ScriptedAgent{desc: core.AgentDescriptor{Name: name, Description: "scripted " + name}, replies: replies}
}

// WithCapabilities restricts the callable capabilities (chainable).
func (a *ScriptedAgent) WithCapabilities(caps ...string) *ScriptedAgent {
	a.desc.Capabilities = caps
	return a
}

// WithDelay delays every reply, honouring cancellation (chainable).
func (a *ScriptedAgent) WithDelay(d time.Duration) *ScriptedAgent {
	a.delay = d
	return a
}

// Name implements core.Agent.
func (a *ScriptedAgent) Name() string { return a.desc.Name }

// Description implements core.Agent.
func (a *ScriptedAgent) Description() string { return a.desc.Description }

// Descriptor implements core.Agent.
func (a *ScriptedAgent) Descriptor() core.AgentDescriptor { return a.desc }

// Requests returns the invocations received so far.
func (a *ScriptedAgent) Requests() []core.InvokeRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.InvokeRequest(nil), a.requests...)
}

// Invocations returns the number of invocations so far.
func (a *ScriptedAgent) Invocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

// Invoke implements core.Agent.
func (a *ScriptedAgent) Invoke(rc *core.RunContext, req core.InvokeRequest) (<-chan core.Message, <-chan error) {
	a.mu.Lock()
	n := len(a.requests)
	a.requests = append(a.requests, req)
	a.mu.Unlock()

	out := make(chan core.Message, 8)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		if a.delay > 0 {
			select {
			case <-rc.Done():
				errc <- rc.Err()
				return
			case <-time.After(a.delay):
			}
		}

		reply := Say(a.desc.Name + " turn " + strconv.Itoa(n+1))
		if len(a.replies) > 0 {
			reply = a.replies[min(n, len(a.replies)-1)]
		}

		msgs, err := reply(req)
		if err != nil {
			errc <- err
			return
		}

		for _, m := range msgs {
			if m.Author == "" {
				m.Author = a.desc.Name
			}
			out <- m
		}
	}()

	return out, errc
}
