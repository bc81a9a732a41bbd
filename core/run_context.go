package core

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/hupe1980/agentchat/logging"
)

// RunContext carries execution state for one group chat run. It is created by
// the orchestrator when a run starts and discarded when the run terminates.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (ChatID, RunID) and the current round
//   - The participant roster
//   - A structured event sink and an optional human-input collaborator
//   - A call budget and a small key/value state used for template rendering
//
// WithContext derives a copy bound to another context while sharing state.
type RunContext struct {
	Context      context.Context
	ChatID       string
	RunID        string
	Round        int
	Participants []AgentDescriptor
	Human        HumanInput
	Budget       *CallBudget

	events EventSink
	state  *runState
	logger logging.Logger
}

type runState struct {
	mu     sync.RWMutex
	values map[string]any
}

// RunContextOptions configures NewRunContext.
type RunContextOptions struct {
	ChatID       string
	Participants []AgentDescriptor
	Human        HumanInput
	Events       EventSink
	Logger       logging.Logger
	MaxCalls     int
	State        map[string]any
}

// NewRunContext constructs a RunContext for runID.
func NewRunContext(ctx context.Context, runID string, optFns ...func(o *RunContextOptions)) *RunContext {
	opts := RunContextOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	values := map[string]any{}
	maps.Copy(values, opts.State)

	return &RunContext{
		Context:       ctx,
		ChatID:        opts.ChatID,
		RunID:         runID,
		Participants:  opts.Participants,
		Human:         opts.Human,
		Budget:        NewCallBudget(opts.MaxCalls),
		events:        opts.Events,
		state:         &runState{values: values},
		logger:        logging.OrNoOp(opts.Logger),
	}
}

// WithContext returns a shallow copy bound to ctx. State, budget and sink are shared.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	c := *rc
	c.Context = ctx
	return &c
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// Emit stamps ev with run identifiers and forwards it to the event sink.
func (rc *RunContext) Emit(ev Event) {
	if rc.events == nil {
		return
	}

	ev.RunID = rc.RunID
	if ev.Round == 0 {
		ev.Round = rc.Round
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	rc.events.Emit(ev)
}

// GetState returns a run scoped value.
func (rc *RunContext) GetState(k string) (any, bool) {
	rc.state.mu.RLock()
	defer rc.state.mu.RUnlock()

	v, ok := rc.state.values[k]
	return v, ok
}

// SetState stores a run scoped value.
func (rc *RunContext) SetState(k string, v any) {
	rc.state.mu.Lock()
	defer rc.state.mu.Unlock()

	rc.state.values[k] = v
}

// State returns a copy of all run scoped values.
func (rc *RunContext) State() map[string]any {
	rc.state.mu.RLock()
	defer rc.state.mu.RUnlock()

	return maps.Clone(rc.state.values)
}

// Logger returns the run's logger.
func (rc *RunContext) Logger() logging.Logger { return rc.logger }

// LogDebug logs msg tagged with the run id and round.
func (rc *RunContext) LogDebug(msg string, args ...any) { rc.logger.Debug(msg, rc.tag(args)...) }

// LogInfo logs msg tagged with the run id and round.
func (rc *RunContext) LogInfo(msg string, args ...any) { rc.logger.Info(msg, rc.tag(args)...) }

// LogWarn logs msg tagged with the run id and round.
func (rc *RunContext) LogWarn(msg string, args ...any) { rc.logger.Warn(msg, rc.tag(args)...) }

// LogError logs msg tagged with the run id and round.
func (rc *RunContext) LogError(msg string, args ...any) { rc.logger.Error(msg, rc.tag(args)...) }

func (rc *RunContext) tag(args []any) []any {
	out := make([]any, 0, len(args)+4)
	out = append(out, "run_id", rc.RunID)
	if rc.Round > 0 {
		out = append(out, "round", rc.Round)
	}
	return append(out, args...)
}
