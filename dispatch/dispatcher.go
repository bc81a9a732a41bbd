package dispatch

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentchat/core"
)

// DefaultMaxAttempts bounds automatic function-call rounds per agent turn.
const DefaultMaxAttempts = 5

// Conversation is the dispatcher's window onto the canonical history. View
// returns the (possibly reduced) messages an agent sees; Append commits a
// batch atomically through the owner's single append path.
type Conversation interface {
	View(ctx context.Context) ([]core.Message, error)
	Append(msgs ...core.Message) ([]core.Message, error)
}

// Turn is the outcome of one agent turn.
type Turn struct {
	// Committed holds call and result messages appended during the turn.
	Committed []core.Message
	// Final holds the agent's closing messages. They are not yet committed.
	Final []core.Message
	// Attempts counts executed function-call batches.
	Attempts int
	// Exhausted is set when the attempt bound stopped the loop.
	Exhausted bool
}

// Options configures a Dispatcher.
type Options struct {
	// MaxAttempts bounds automatic function-call rounds. Zero selects
	// DefaultMaxAttempts. Negative disables automatic invocation.
	MaxAttempts int
	Tracer      trace.Tracer
	// OnBatch, when set, is called before a function-call batch executes.
	OnBatch func(rc *core.RunContext, agent string, calls []core.FunctionCall)
}

// Dispatcher runs one agent turn: it invokes the agent, executes any
// requested functions, commits call and result pairs, and re-invokes the
// agent until it answers without calls or the attempt bound is reached.
type Dispatcher struct {
	executor Executor
	opts     Options
}

// New creates a Dispatcher backed by executor.
func New(executor Executor, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{MaxAttempts: DefaultMaxAttempts}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/hupe1980/agentchat/dispatch")
	}

	return &Dispatcher{executor: executor, opts: opts}
}

// MaxAttempts returns the effective attempt bound.
func (d *Dispatcher) MaxAttempts() int { return max(d.opts.MaxAttempts, 0) }

// Run executes one turn of agent against conv. directive is passed to every
// invocation of the turn and never persisted.
func (d *Dispatcher) Run(rc *core.RunContext, agent core.Agent, conv Conversation, directive *core.Message) (*Turn, error) {
	turn := &Turn{}

	for {
		view, err := conv.View(rc.Context)
		if err != nil {
			return turn, fmt.Errorf("history view: %w", err)
		}

		if rc.Budget != nil {
			if err := rc.Budget.Increment(agent.Name()); err != nil {
				return turn, err
			}
		}

		msgs, err := Collect(rc, agent, core.InvokeRequest{History: view, Directive: directive})
		if err != nil {
			return turn, fmt.Errorf("agent %s: %w", agent.Name(), err)
		}

		msgs = prepare(msgs, agent.Name(), directive)

		calls := collectCalls(msgs)
		if len(calls) == 0 {
			turn.Final = msgs
			return turn, nil
		}

		if turn.Attempts >= d.MaxAttempts() {
			rc.LogWarn("dispatch.loop.exhausted", "agent", agent.Name(), "attempts", turn.Attempts, "pending_calls", len(calls))
			for i := range msgs {
				if msgs[i].HasFunctionCalls() {
					msgs[i] = msgs[i].WithMeta(core.MetaFunctionLoopExhausted, "true")
				}
			}
			turn.Final = msgs
			turn.Exhausted = true
			return turn, nil
		}

		if d.opts.OnBatch != nil {
			d.opts.OnBatch(rc, agent.Name(), calls)
		}

		committed, err := d.dispatchBatch(rc, agent, conv, msgs, calls, turn.Attempts+1)
		if err != nil {
			return turn, err
		}

		turn.Committed = append(turn.Committed, committed...)
		turn.Attempts++

		rc.Emit(core.Event{Type: core.EventFunctionsDone, Agent: agent.Name()})
	}
}

func (d *Dispatcher) dispatchBatch(rc *core.RunContext, agent core.Agent, conv Conversation, msgs []core.Message, calls []core.FunctionCall, attempt int) ([]core.Message, error) {
	ctx, span := d.opts.Tracer.Start(rc.Context, "dispatch.batch", trace.WithAttributes(
		attribute.String("agent", agent.Name()),
		attribute.Int("attempt", attempt),
		attribute.Int("calls", len(calls)),
	))
	defer span.End()

	results, err := d.executor.Execute(rc.WithContext(ctx), agent.Descriptor(), calls)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if !r.Success() {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("failed", failed))

	batch := make([]core.Message, 0, len(msgs)+1)
	batch = append(batch, msgs...)
	batch = append(batch, core.NewFunctionResultMessage(results...))

	committed, err := conv.Append(batch...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("commit function results: %w", err)
	}

	rc.LogDebug("dispatch.batch.committed", "agent", agent.Name(), "attempt", strconv.Itoa(attempt), "failed", failed)

	return committed, nil
}

// Collect drains one agent invocation. It returns early with the context
// error when rc is cancelled.
func Collect(rc *core.RunContext, agent core.Agent, req core.InvokeRequest) ([]core.Message, error) {
	msgCh, errCh := agent.Invoke(rc, req)

	var out []core.Message

	for msgCh != nil || errCh != nil {
		select {
		case <-rc.Done():
			return nil, rc.Err()
		case m, ok := <-msgCh:
			if !ok {
				msgCh = nil
				continue
			}
			out = append(out, m)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// prepare drops empty messages, defaults role and author, assigns ids to
// calls lacking one, and records the directive.
func prepare(msgs []core.Message, author string, directive *core.Message) []core.Message {
	out := make([]core.Message, 0, len(msgs))

	for _, m := range msgs {
		if m.IsEmpty() {
			continue
		}

		m = m.Clone()
		m.Index = 0
		if m.ID == "" {
			m.ID = core.NewID()
		}
		if m.Role == "" {
			m.Role = core.RoleAgent
		}
		if m.Author == "" {
			m.Author = author
		}

		for i, p := range m.Parts {
			if fc, ok := p.(core.FunctionCallPart); ok && fc.FunctionCall.ID == "" {
				fc.FunctionCall.ID = core.NewID()
				m.Parts[i] = fc
			}
		}

		if directive != nil {
			m = m.WithMeta(core.MetaDirective, directive.Text())
		}

		out = append(out, m)
	}

	return out
}

func collectCalls(msgs []core.Message) []core.FunctionCall {
	var calls []core.FunctionCall
	for _, m := range msgs {
		calls = append(calls, m.FunctionCalls()...)
	}
	return calls
}
