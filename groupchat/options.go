package groupchat

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/dispatch"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/metrics"
	"github.com/hupe1980/agentchat/selection"
	"github.com/hupe1980/agentchat/termination"
	"github.com/hupe1980/agentchat/tool"
)

// DefaultMaximumIterations bounds the rounds of a single run.
const DefaultMaximumIterations = 99

// Config holds the orchestration settings.
type Config struct {
	// MaximumIterations ends a run successfully after this many rounds.
	MaximumIterations int `yaml:"maximum_iterations" env:"MAXIMUM_ITERATIONS"`
	// AutomaticReset lets a completed chat be invoked again.
	AutomaticReset bool `yaml:"automatic_reset" env:"AUTOMATIC_RESET"`
	// MaxAutoInvokeAttempts bounds function-call rounds per agent turn.
	// Negative disables automatic invocation.
	MaxAutoInvokeAttempts int `yaml:"max_auto_invoke_attempts" env:"MAX_AUTO_INVOKE_ATTEMPTS"`
	// MaxParallelFunctions limits concurrent calls in one batch. Zero is unlimited.
	MaxParallelFunctions int `yaml:"max_parallel_functions" env:"MAX_PARALLEL_FUNCTIONS"`
	// MaxAgentCalls caps agent invocations per run. Zero is unlimited.
	MaxAgentCalls int `yaml:"max_agent_calls" env:"MAX_AGENT_CALLS"`
	// MessageBufferSize sizes the InvokeAsync message channel.
	MessageBufferSize int `yaml:"message_buffer_size" env:"MESSAGE_BUFFER_SIZE"`
}

// DefaultConfig returns the default orchestration settings.
func DefaultConfig() Config {
	return Config{
		MaximumIterations:     DefaultMaximumIterations,
		MaxAutoInvokeAttempts: dispatch.DefaultMaxAttempts,
		MessageBufferSize:     64,
	}
}

// DirectiveFunc returns a one-turn directive for the selected agent, or nil.
type DirectiveFunc func(agent core.AgentDescriptor, history []core.Message) *core.Message

// Options configures a GroupChat.
type Options struct {
	Config Config

	// Selection picks the next speaker. Defaults to round robin.
	Selection selection.Strategy
	// Termination decides when a run is done. Nil leaves only the
	// MaximumIterations bound.
	Termination termination.Strategy

	// Registry resolves function calls. Ignored when Executor is set.
	Registry *tool.Registry
	Executor dispatch.Executor

	// Reducer shapes the view agents see. The canonical history is untouched.
	Reducer core.HistoryReducer
	// Store, when set, receives a snapshot after every round.
	Store core.HistoryStore

	ChatID string
	// History seeds the conversation.
	History []core.Message
	Human   core.HumanInput
	State   map[string]any

	// Directive, when set, may steer the selected agent for one turn. The
	// directive reaches the agent but is never committed.
	Directive DirectiveFunc

	// OnMessage is called for every committed message.
	OnMessage func(m core.Message)
	Observers []core.EventSink

	Logger  logging.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Recorder
}

// WithConfig replaces the orchestration settings.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithMaximumIterations sets the round bound.
func WithMaximumIterations(n int) func(o *Options) {
	return func(o *Options) { o.Config.MaximumIterations = n }
}

// WithAutomaticReset toggles automatic reset.
func WithAutomaticReset(enabled bool) func(o *Options) {
	return func(o *Options) { o.Config.AutomaticReset = enabled }
}

// WithSelection sets the selection strategy.
func WithSelection(s selection.Strategy) func(o *Options) {
	return func(o *Options) { o.Selection = s }
}

// WithTermination sets the termination strategy.
func WithTermination(s termination.Strategy) func(o *Options) {
	return func(o *Options) { o.Termination = s }
}

// WithRegistry sets the capability registry used for function calls.
func WithRegistry(r *tool.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = r }
}

// WithExecutor replaces the function-call executor.
func WithExecutor(e dispatch.Executor) func(o *Options) {
	return func(o *Options) { o.Executor = e }
}

// WithReducer sets the history reducer.
func WithReducer(r core.HistoryReducer) func(o *Options) {
	return func(o *Options) { o.Reducer = r }
}

// WithStore persists history snapshots under the chat id.
func WithStore(s core.HistoryStore) func(o *Options) {
	return func(o *Options) { o.Store = s }
}

// WithChatID sets the chat id.
func WithChatID(id string) func(o *Options) {
	return func(o *Options) { o.ChatID = id }
}

// WithHistory seeds the conversation with msgs.
func WithHistory(msgs []core.Message) func(o *Options) {
	return func(o *Options) { o.History = msgs }
}

// WithHuman sets the human-input collaborator.
func WithHuman(h core.HumanInput) func(o *Options) {
	return func(o *Options) { o.Human = h }
}

// WithState sets initial run state used for instruction templates.
func WithState(state map[string]any) func(o *Options) {
	return func(o *Options) { o.State = state }
}

// WithDirective sets the per-turn directive source.
func WithDirective(fn DirectiveFunc) func(o *Options) {
	return func(o *Options) { o.Directive = fn }
}

// WithOnMessage registers a callback for committed messages.
func WithOnMessage(fn func(m core.Message)) func(o *Options) {
	return func(o *Options) { o.OnMessage = fn }
}

// WithObserver adds an event sink.
func WithObserver(s core.EventSink) func(o *Options) {
	return func(o *Options) { o.Observers = append(o.Observers, s) }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) func(o *Options) {
	return func(o *Options) { o.Tracer = t }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) func(o *Options) {
	return func(o *Options) { o.Metrics = m }
}
