package agent

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/dispatch"
)

// MetaMember records which member of a composite produced a message.
const MetaMember = "member"

// SequentialAgent is a participant whose turn runs its members one after
// another. Each member sees the conversation plus the uncommitted output of
// the members before it. A member requesting function calls ends the turn
// early so the calls can be dispatched; the next invocation starts over with
// the results in the history.
type SequentialAgent struct {
	BaseAgent
	members []core.Agent
}

// NewSequentialAgent creates a SequentialAgent.
func NewSequentialAgent(name string, members ...core.Agent) *SequentialAgent {
	return &SequentialAgent{BaseAgent: NewBaseAgent(name, memberCapabilities(members...)...), members: members}
}

// Invoke implements core.Agent.
func (s *SequentialAgent) Invoke(rc *core.RunContext, req core.InvokeRequest) (<-chan core.Message, <-chan error) {
	return stream(rc, func(emit func(core.Message) bool) error {
		view := core.CloneMessages(req.History)

		for _, m := range s.members {
			msgs, err := dispatch.Collect(rc, m, core.InvokeRequest{History: view, Directive: req.Directive})
			if err != nil {
				return fmt.Errorf("sequential member %s: %w", m.Name(), err)
			}

			calls := false
			for _, msg := range FilterEmpty(msgs) {
				msg = attribute(s.Name(), msg, m)
				if !emit(msg) {
					return rc.Err()
				}
				view = append(view, msg)
				calls = calls || msg.HasFunctionCalls()
			}

			if calls {
				rc.LogDebug("agent.sequential.calls_pending", "agent", s.Name(), "member", m.Name())
				return nil
			}
		}

		return nil
	})
}

// ParallelAgent is a participant whose turn fans out to all members over the
// same view. Outputs are emitted in member order once every member is done.
// A positive timeout bounds the whole fan-out.
type ParallelAgent struct {
	BaseAgent
	members []core.Agent
	timeout time.Duration
}

// NewParallelAgent creates a ParallelAgent.
func NewParallelAgent(name string, timeout time.Duration, members ...core.Agent) *ParallelAgent {
	return &ParallelAgent{BaseAgent: NewBaseAgent(name, memberCapabilities(members...)...), members: members, timeout: timeout}
}

// Invoke implements core.Agent. Members run to completion even when a
// sibling fails; the first error is returned.
func (p *ParallelAgent) Invoke(rc *core.RunContext, req core.InvokeRequest) (<-chan core.Message, <-chan error) {
	return stream(rc, func(emit func(core.Message) bool) error {
		ctx := rc.Context
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		mrc := rc.WithContext(ctx)

		outputs := make([][]core.Message, len(p.members))

		var g errgroup.Group
		for i, m := range p.members {
			g.Go(func() error {
				msgs, err := dispatch.Collect(mrc, m, core.InvokeRequest{
					History:   core.CloneMessages(req.History),
					Directive: req.Directive,
				})
				if err != nil {
					return fmt.Errorf("parallel member %s: %w", m.Name(), err)
				}
				outputs[i] = msgs
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		for i, msgs := range outputs {
			for _, msg := range FilterEmpty(msgs) {
				if !emit(attribute(p.Name(), msg, p.members[i])) {
					return rc.Err()
				}
			}
		}

		return nil
	})
}

// LoopAgent is a participant whose turn re-invokes a single member until
// the predicate accepts its text, the iteration bound is reached or the
// member requests function calls. Each iteration sees the previous ones.
// Only the last iteration is emitted.
type LoopAgent struct {
	BaseAgent
	member    core.Agent
	maxIters  int
	interval  time.Duration
	predicate func(text string) bool
}

// LoopOption configures a LoopAgent.
type LoopOption func(*LoopAgent)

// WithMaxIters sets the iteration bound (default 3).
func WithMaxIters(n int) LoopOption {
	return func(l *LoopAgent) { l.maxIters = n }
}

// WithInterval waits d between iterations.
func WithInterval(d time.Duration) LoopOption {
	return func(l *LoopAgent) { l.interval = d }
}

// WithPredicate stops the loop once pred accepts the member's text.
func WithPredicate(pred func(text string) bool) LoopOption {
	return func(l *LoopAgent) { l.predicate = pred }
}

// NewLoopAgent creates a LoopAgent around member.
func NewLoopAgent(name string, member core.Agent, opts ...LoopOption) *LoopAgent {
	l := &LoopAgent{BaseAgent: NewBaseAgent(name, memberCapabilities(member)...), member: member, maxIters: 3}
	for _, o := range opts {
		o(l)
	}
	if l.maxIters < 1 {
		l.maxIters = 1
	}
	return l
}

// Invoke implements core.Agent.
func (l *LoopAgent) Invoke(rc *core.RunContext, req core.InvokeRequest) (<-chan core.Message, <-chan error) {
	return stream(rc, func(emit func(core.Message) bool) error {
		view := core.CloneMessages(req.History)

		var last []core.Message

		for i := range l.maxIters {
			if i > 0 && l.interval > 0 {
				select {
				case <-rc.Done():
					return rc.Err()
				case <-time.After(l.interval):
				}
			}

			msgs, err := dispatch.Collect(rc, l.member, core.InvokeRequest{History: view, Directive: req.Directive})
			if err != nil {
				return fmt.Errorf("loop iteration %d of %s: %w", i+1, l.member.Name(), err)
			}

			last = FilterEmpty(msgs)
			view = append(view, last...)

			if done, reason := l.done(last); done {
				rc.LogDebug("agent.loop.stopped", "agent", l.Name(), "iteration", i+1, "reason", reason)
				break
			}
		}

		for _, msg := range last {
			if !emit(attribute(l.Name(), msg, l.member)) {
				return rc.Err()
			}
		}

		return nil
	})
}

func (l *LoopAgent) done(msgs []core.Message) (bool, string) {
	var text string
	for _, m := range msgs {
		if m.HasFunctionCalls() {
			return true, "function_calls"
		}
		text += m.Text()
	}

	if l.predicate != nil && l.predicate(text) {
		return true, "predicate"
	}

	return false, ""
}

// memberCapabilities is the union of the members' capabilities. A member
// without restrictions makes the composite unrestricted.
func memberCapabilities(members ...core.Agent) []string {
	var caps []string
	for _, m := range members {
		mc := m.Descriptor().Capabilities
		if len(mc) == 0 {
			return nil
		}
		for _, c := range mc {
			if !slices.Contains(caps, c) {
				caps = append(caps, c)
			}
		}
	}
	return caps
}

// attribute re-authors a member message as the composite and records the
// member path, e.g. "Team.Critic". Nested composites extend the path.
func attribute(composite string, m core.Message, member core.Agent) core.Message {
	path := member.Name()
	if inner := m.Meta(MetaMember); inner != "" {
		path = inner
	}

	m.Author = composite
	if m.Role == "" {
		m.Role = core.RoleAgent
	}

	return m.WithMeta(MetaMember, composite+"."+path)
}
