package groupchat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/hupe1980/agentchat/agent"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/dispatch"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/selection"
)

// ErrRunInProgress is returned when a run is started while another run of
// the same chat is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// State is a phase of the orchestration loop.
type State string

const (
	StateSelecting           State = "SELECTING"
	StateInvoking            State = "INVOKING"
	StateDispatching         State = "DISPATCHING_FUNCTIONS"
	StateAppending           State = "APPENDING"
	StateCheckingTermination State = "CHECKING_TERMINATION"
	StateTerminated          State = "TERMINATED"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Reasons reported in Result.Reason.
const (
	ReasonTermination       = "termination_strategy"
	ReasonMaximumIterations = "maximum_iterations"
	ReasonSelection         = "selection_error"
	ReasonTerminationError  = "termination_error"
	ReasonAgent             = "agent_error"
	ReasonProgrammatic      = "programmatic_error"
	ReasonCancelled         = "cancelled"
)

// Result describes a finished run. History holds the full conversation,
// which is partial when the run failed or was cancelled.
type Result struct {
	RunID   string
	Status  Status
	Reason  string
	Err     error
	Rounds  int
	History []core.Message
	// Final is the last message committed by an agent, if any.
	Final *core.Message
}

// Succeeded reports whether the run ended successfully.
func (r *Result) Succeeded() bool { return r.Status == StatusSucceeded }

// GroupChat coordinates a fixed set of agents over a shared history.
// Public methods are safe for concurrent use; at most one run is active at
// a time.
type GroupChat struct {
	agents     []core.Agent
	opts       Options
	logger     logging.Logger
	dispatcher *dispatch.Dispatcher

	mu       sync.RWMutex
	history  *core.History
	state    State
	complete bool
	running  bool

	activeRuns map[string]context.CancelFunc
	runsMu     sync.Mutex
}

// New creates a GroupChat over agents. Participant names must be unique.
func New(agents []core.Agent, optFns ...func(o *Options)) (*GroupChat, error) {
	opts := Options{
		Config: DefaultConfig(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(agents) == 0 {
		return nil, core.ErrNoParticipants
	}

	seen := map[string]bool{}
	for _, a := range agents {
		if a == nil {
			return nil, errors.New("nil participant")
		}
		if seen[a.Name()] {
			return nil, fmt.Errorf("duplicate participant %q", a.Name())
		}
		seen[a.Name()] = true
	}

	if opts.Config.MaximumIterations <= 0 {
		opts.Config.MaximumIterations = DefaultMaximumIterations
	}
	if opts.Config.MessageBufferSize <= 0 {
		opts.Config.MessageBufferSize = DefaultConfig().MessageBufferSize
	}
	if opts.Selection == nil {
		opts.Selection = selection.NewRoundRobin()
	}
	if opts.ChatID == "" {
		opts.ChatID = core.NewID()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/hupe1980/agentchat/groupchat")
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Executor == nil {
		var observer dispatch.CallObserver
		if opts.Metrics != nil {
			observer = opts.Metrics
		}
		opts.Executor = dispatch.NewParallelExecutor(opts.Registry, dispatch.ExecutorConfig{
			MaxParallel: opts.Config.MaxParallelFunctions,
		}, observer)
	}

	history, err := core.NewHistoryFrom(opts.History)
	if err != nil {
		return nil, fmt.Errorf("seed history: %w", err)
	}

	g := &GroupChat{
		agents:     append([]core.Agent(nil), agents...),
		opts:       opts,
		logger:     opts.Logger,
		history:    history,
		state:      StateSelecting,
		activeRuns: make(map[string]context.CancelFunc),
	}

	g.dispatcher = dispatch.New(opts.Executor, func(o *dispatch.Options) {
		o.MaxAttempts = opts.Config.MaxAutoInvokeAttempts
		o.Tracer = opts.Tracer
		o.OnBatch = func(rc *core.RunContext, _ string, _ []core.FunctionCall) {
			g.setState(rc, StateDispatching)
		}
	})

	return g, nil
}

// ChatID returns the chat identifier.
func (g *GroupChat) ChatID() string { return g.opts.ChatID }

// Participants returns the agents in registration order.
func (g *GroupChat) Participants() []core.Agent { return append([]core.Agent(nil), g.agents...) }

// State returns the current phase of the loop.
func (g *GroupChat) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// IsComplete reports whether a run ended successfully and the chat has not
// been reset since.
func (g *GroupChat) IsComplete() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.complete
}

// History returns a snapshot of the conversation.
func (g *GroupChat) History() []core.Message {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.history.Snapshot()
}

// Reset clears the conversation, the completion flag and strategy state.
// It fails while a run is active.
func (g *GroupChat) Reset() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return ErrRunInProgress
	}

	g.history = core.NewHistory()
	g.complete = false
	g.state = StateSelecting
	g.resetStrategies()

	return nil
}

func (g *GroupChat) resetStrategies() {
	if g.opts.Termination != nil {
		g.opts.Termination.Reset()
	}
	if r, ok := g.opts.Selection.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// Invoke appends input to the history and runs the conversation until a
// termination policy fires, a fatal error occurs or ctx is cancelled. The
// returned error equals Result.Err. Input may be nil, a string, a []string,
// a core.Message or a []core.Message.
func (g *GroupChat) Invoke(ctx context.Context, input any) (*Result, error) {
	r, err := g.start(ctx, input, nil)
	if err != nil {
		return nil, err
	}

	res := g.run(r)

	return res, res.Err
}

// InvokeAsync starts a run in the background. Committed messages are
// streamed on the message channel, which is closed when the run ends; the
// result channel then yields exactly one Result. Callers must drain the
// message channel.
func (g *GroupChat) InvokeAsync(ctx context.Context, input any) (string, <-chan core.Message, <-chan *Result, error) {
	msgCh := make(chan core.Message, g.opts.Config.MessageBufferSize)
	resCh := make(chan *Result, 1)

	r, err := g.start(ctx, input, msgCh)
	if err != nil {
		return "", nil, nil, err
	}

	go func() {
		res := g.run(r)
		close(msgCh)
		resCh <- res
		close(resCh)
	}()

	return r.id, msgCh, resCh, nil
}

// Cancel cancels the active run with runID.
func (g *GroupChat) Cancel(runID string) error {
	g.runsMu.Lock()
	cancel, ok := g.activeRuns[runID]
	g.runsMu.Unlock()

	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

func (g *GroupChat) start(ctx context.Context, input any, stream chan<- core.Message) (*run, error) {
	msgs, err := agent.NormalizeInput(input)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return nil, ErrRunInProgress
	}
	if g.complete {
		if !g.opts.Config.AutomaticReset {
			g.mu.Unlock()
			return nil, core.ErrChatComplete
		}
		g.complete = false
	}
	g.running = true
	g.state = StateSelecting
	g.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	r := &run{
		id:     core.NewID(),
		input:  msgs,
		stream: stream,
		cancel: cancel,
		start:  time.Now(),
	}

	g.runsMu.Lock()
	g.activeRuns[r.id] = cancel
	g.runsMu.Unlock()

	r.rc = core.NewRunContext(ctx, r.id, func(o *core.RunContextOptions) {
		o.ChatID = g.opts.ChatID
		o.Participants = descriptors(g.agents)
		o.Human = g.opts.Human
		o.Events = core.MultiSink(g.opts.Observers)
		o.Logger = g.logger
		o.MaxCalls = g.opts.Config.MaxAgentCalls
		o.State = g.opts.State
	})

	return r, nil
}

func (g *GroupChat) release(r *run) {
	r.cancel()

	g.runsMu.Lock()
	delete(g.activeRuns, r.id)
	g.runsMu.Unlock()

	g.mu.Lock()
	g.running = false
	g.mu.Unlock()
}

func (g *GroupChat) setState(rc *core.RunContext, s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()

	rc.Emit(core.Event{Type: core.EventStateChanged, State: string(s)})
}

func (g *GroupChat) isParticipant(a core.Agent) bool {
	for _, p := range g.agents {
		if p.Name() == a.Name() {
			return true
		}
	}
	return false
}

func descriptors(agents []core.Agent) []core.AgentDescriptor {
	out := make([]core.AgentDescriptor, len(agents))
	for i, a := range agents {
		out[i] = a.Descriptor()
	}
	return out
}
