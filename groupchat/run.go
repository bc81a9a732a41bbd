package groupchat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/dispatch"
)

type run struct {
	id     string
	input  []core.Message
	rc     *core.RunContext
	stream chan<- core.Message
	cancel context.CancelFunc
	start  time.Time

	history *core.History
	rounds  int
	final   *core.Message
}

// conversation is the run's single append path.
type conversation struct {
	g *GroupChat
	r *run
}

func (c conversation) View(ctx context.Context) ([]core.Message, error) {
	msgs := c.r.history.Snapshot()
	if c.g.opts.Reducer == nil {
		return msgs, nil
	}
	return c.g.opts.Reducer.Reduce(ctx, msgs)
}

func (c conversation) Append(msgs ...core.Message) ([]core.Message, error) {
	committed, err := c.r.history.Append(msgs...)
	if err != nil {
		return nil, err
	}

	for _, m := range committed {
		c.g.committed(c.r, m)
	}

	c.g.setState(c.r.rc, StateInvoking)

	return committed, nil
}

func (g *GroupChat) committed(r *run, m core.Message) {
	if g.opts.OnMessage != nil {
		g.opts.OnMessage(m.Clone())
	}

	r.rc.Emit(core.Event{Type: core.EventMessageAppended, Agent: m.Author, Message: &m})

	if r.stream != nil {
		select {
		case r.stream <- m.Clone():
		case <-r.rc.Done():
		}
	}
}

func (g *GroupChat) run(r *run) (res *Result) {
	defer g.release(r)

	g.mu.RLock()
	r.history = g.history
	g.mu.RUnlock()

	ctx, span := g.opts.Tracer.Start(r.rc.Context, "groupchat.run", trace.WithAttributes(
		attribute.String("chat_id", g.opts.ChatID),
		attribute.String("run_id", r.id),
		attribute.Int("participants", len(g.agents)),
	))
	r.rc = r.rc.WithContext(ctx)

	g.opts.Metrics.RunStarted()
	g.logger.Info("groupchat.run.started", "chat_id", g.opts.ChatID, "run_id", r.id, "participants", len(g.agents))
	r.rc.Emit(core.Event{Type: core.EventRunStarted})

	// strategies start fresh for every run
	if g.opts.Termination != nil {
		g.opts.Termination.Reset()
	}

	defer func() {
		if p := recover(); p != nil {
			res = g.finish(r, StatusFailed, ReasonProgrammatic, fmt.Errorf("panic: %v", p))
		}

		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.SetAttributes(
			attribute.String("status", string(res.Status)),
			attribute.String("reason", res.Reason),
			attribute.Int("rounds", res.Rounds),
		)
		span.End()
	}()

	if len(r.input) > 0 {
		committed, err := r.history.Append(r.input...)
		if err != nil {
			return g.finish(r, StatusFailed, ReasonProgrammatic, fmt.Errorf("append input: %w", err))
		}
		for _, m := range committed {
			g.committed(r, m)
		}
	}

	for {
		if err := r.rc.Err(); err != nil {
			return g.finish(r, StatusCancelled, ReasonCancelled, err)
		}

		r.rc.Round = r.rounds + 1

		status, reason, err := g.round(r)
		if status != "" {
			return g.finish(r, status, reason, err)
		}

		if r.rounds >= g.opts.Config.MaximumIterations {
			g.logger.Info("groupchat.run.iterations_exhausted", "run_id", r.id, "rounds", r.rounds)
			return g.finish(r, StatusSucceeded, ReasonMaximumIterations, nil)
		}
	}
}

// round runs one SELECTING..CHECKING_TERMINATION cycle. A non-empty status
// ends the run.
func (g *GroupChat) round(r *run) (Status, string, error) {
	rc := r.rc
	started := time.Now()

	ctx, span := g.opts.Tracer.Start(rc.Context, "groupchat.round", trace.WithAttributes(
		attribute.Int("round", rc.Round),
	))
	defer span.End()

	rc = rc.WithContext(ctx)

	g.setState(rc, StateSelecting)
	g.logger.Debug("groupchat.round.started", "run_id", r.id, "round", rc.Round)

	next, err := g.selectNext(rc, r.history.Snapshot())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if rc.Err() != nil {
			return StatusCancelled, ReasonCancelled, rc.Err()
		}
		g.opts.Metrics.SelectionFailed(g.opts.Selection.Name())
		return StatusFailed, ReasonSelection, err
	}

	span.SetAttributes(attribute.String("agent", next.Name()))
	g.logger.Info("groupchat.agent.selected", "run_id", r.id, "round", rc.Round, "agent", next.Name())
	rc.Emit(core.Event{Type: core.EventAgentSelected, Agent: next.Name()})

	g.setState(rc, StateInvoking)

	var directive *core.Message
	if g.opts.Directive != nil {
		directive = g.opts.Directive(next.Descriptor(), r.history.Snapshot())
		if directive != nil {
			g.logger.Debug("groupchat.directive.applied", "run_id", r.id, "agent", next.Name())
		}
	}

	turn, err := g.dispatcher.Run(rc, next, conversation{g: g, r: r}, directive)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		switch {
		case rc.Err() != nil:
			g.logger.Info("groupchat.run.cancelled", "run_id", r.id, "round", rc.Round, "agent", next.Name())
			return StatusCancelled, ReasonCancelled, rc.Err()
		case errors.Is(err, core.ErrUnmatchedFunctionResult):
			return StatusFailed, ReasonProgrammatic, err
		default:
			g.logger.Error("groupchat.agent.failed", "run_id", r.id, "agent", next.Name(), "error", err)
			return StatusFailed, ReasonAgent, err
		}
	}

	if turn.Exhausted {
		g.logger.Warn("groupchat.functions.exhausted", "run_id", r.id, "agent", next.Name(), "attempts", turn.Attempts)
	}

	g.setState(rc, StateAppending)

	if len(turn.Final) > 0 {
		committed, err := r.history.Append(turn.Final...)
		if err != nil {
			return StatusFailed, ReasonProgrammatic, fmt.Errorf("append agent messages: %w", err)
		}
		for _, m := range committed {
			g.committed(r, m)
		}
		last := committed[len(committed)-1]
		r.final = &last
	}

	r.rounds++
	g.save(rc, r)
	g.opts.Metrics.RoundCompleted(next.Name(), time.Since(started))
	g.logger.Debug("groupchat.round.completed", "run_id", r.id, "round", rc.Round, "agent", next.Name(),
		"messages", len(turn.Final), "function_batches", turn.Attempts)

	if g.opts.Termination == nil {
		return "", "", nil
	}

	g.setState(rc, StateCheckingTermination)

	done, err := g.checkTermination(rc, next, r.history.Snapshot())
	g.opts.Metrics.TerminationChecked(done, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if rc.Err() != nil {
			return StatusCancelled, ReasonCancelled, rc.Err()
		}
		return StatusFailed, ReasonTerminationError, err
	}

	if done {
		g.logger.Info("groupchat.run.terminated", "run_id", r.id, "round", rc.Round, "agent", next.Name(),
			"strategy", g.opts.Termination.Name())
		return StatusSucceeded, ReasonTermination, nil
	}

	return "", "", nil
}

func (g *GroupChat) selectNext(rc *core.RunContext, history []core.Message) (core.Agent, error) {
	ctx, span := g.opts.Tracer.Start(rc.Context, "groupchat.select", trace.WithAttributes(
		attribute.String("strategy", g.opts.Selection.Name()),
	))
	defer span.End()

	next, err := g.opts.Selection.Next(ctx, g.Participants(), history)
	if err != nil {
		var selErr *core.SelectionError
		if !errors.As(err, &selErr) && ctx.Err() == nil {
			err = &core.SelectionError{Strategy: g.opts.Selection.Name(), Err: err}
		}
		return nil, err
	}

	if next == nil || !g.isParticipant(next) {
		name := "<nil>"
		if next != nil {
			name = next.Name()
		}
		return nil, &core.SelectionError{
			Strategy: g.opts.Selection.Name(),
			Err:      fmt.Errorf("%w: %s", core.ErrUnknownParticipant, name),
		}
	}

	return next, nil
}

func (g *GroupChat) checkTermination(rc *core.RunContext, last core.Agent, history []core.Message) (bool, error) {
	ctx, span := g.opts.Tracer.Start(rc.Context, "groupchat.termination", trace.WithAttributes(
		attribute.String("strategy", g.opts.Termination.Name()),
		attribute.String("agent", last.Name()),
	))
	defer span.End()

	done, err := g.opts.Termination.ShouldTerminate(ctx, last, history)
	if err != nil {
		var termErr *core.TerminationError
		if !errors.As(err, &termErr) && ctx.Err() == nil {
			err = &core.TerminationError{Strategy: g.opts.Termination.Name(), Err: err}
		}
		return false, err
	}

	span.SetAttributes(attribute.Bool("terminate", done))

	return done, nil
}

func (g *GroupChat) save(rc *core.RunContext, r *run) {
	if g.opts.Store == nil {
		return
	}

	if err := g.opts.Store.Save(rc.Context, g.opts.ChatID, r.history.Snapshot()); err != nil {
		g.logger.Warn("groupchat.history.save_failed", "chat_id", g.opts.ChatID, "error", err)
	}
}

func (g *GroupChat) finish(r *run, status Status, reason string, err error) *Result {
	g.setState(r.rc, StateTerminated)

	if status == StatusSucceeded {
		g.mu.Lock()
		g.complete = true
		g.mu.Unlock()
	}

	res := &Result{
		RunID:   r.id,
		Status:  status,
		Reason:  reason,
		Err:     err,
		Rounds:  r.rounds,
		History: r.history.Snapshot(),
		Final:   r.final,
	}

	elapsed := time.Since(r.start)
	g.opts.Metrics.RunFinished(string(status), reason, elapsed)

	args := []any{"run_id", r.id, "status", status, "reason", reason, "rounds", r.rounds, "duration", elapsed}
	if err != nil {
		g.logger.Warn("groupchat.run.finished", append(args, "error", err)...)
	} else {
		g.logger.Info("groupchat.run.finished", args...)
	}

	r.rc.Emit(core.Event{Type: core.EventRunFinished, State: string(status), Err: err})

	return res
}

var _ dispatch.Conversation = conversation{}
