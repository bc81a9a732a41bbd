package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/dispatch"
	"github.com/hupe1980/agentchat/model"
	"github.com/hupe1980/agentchat/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description  string
	Instruction  Instruction
	Capabilities []string
	// Registry supplies tool definitions. Definitions are filtered by
	// Capabilities.
	Registry        *tool.Registry
	EnableStreaming bool
	// PromptFunctionCalling describes tools in the instruction and parses
	// FUNCTION_CALL blocks from the answer. It is enabled automatically for
	// models without native tool support.
	PromptFunctionCalling bool
	// MaxHistoryMessages bounds the view sent to the model; 0 = unlimited.
	MaxHistoryMessages int
}

// WithPromptFunctionCalling forces the plain text function calling protocol.
func WithPromptFunctionCalling() func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) { o.PromptFunctionCalling = true }
}

// ModelAgent integrates with a language model to take conversational turns.
//
// This agent implementation supports:
//   - Instructions rendered as templates against run state
//   - Native or prompt based function calling with registry tools
//   - Streaming responses aggregated into final messages
//
// The model sees other participants' messages as attributed user turns.
type ModelAgent struct {
	BaseAgent
	llm          model.Model
	instruction  Instruction
	registry     *tool.Registry
	streaming    bool
	promptCalls  bool
	historyLimit int
}

// NewModelAgent creates a new model-based agent with sensible defaults.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:     NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		EnableStreaming: true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	base := NewBaseAgent(name, opts.Capabilities...)
	if opts.Description != "" {
		base.description = opts.Description
	}

	return &ModelAgent{
		BaseAgent:    base,
		llm:          llm,
		instruction:  opts.Instruction,
		registry:     opts.Registry,
		streaming:    opts.EnableStreaming,
		promptCalls:  opts.PromptFunctionCalling || !llm.Info().SupportsTools,
		historyLimit: opts.MaxHistoryMessages,
	}
}

// Model returns the wrapped language model.
func (a *ModelAgent) Model() model.Model { return a.llm }

// Tools returns the tool definitions this agent may call.
func (a *ModelAgent) Tools() []model.ToolDefinition {
	if a.registry == nil {
		return nil
	}
	return a.registry.Definitions(a.Descriptor().Permits)
}

// BuildRequest assembles the model request for one invocation.
func (a *ModelAgent) BuildRequest(rc *core.RunContext, req core.InvokeRequest) (model.Request, error) {
	names := make([]string, 0, len(rc.Participants))
	for _, p := range rc.Participants {
		names = append(names, p.Name)
	}

	instructions, err := a.instruction.Resolve(rc, map[string]any{
		"agent":        a.Name(),
		"description":  a.Description(),
		"participants": names,
	})
	if err != nil {
		return model.Request{}, fmt.Errorf("instruction: %w", err)
	}

	view := FilterEmpty(req.History)
	if a.historyLimit > 0 && len(view) > a.historyLimit {
		view = view[len(view)-a.historyLimit:]
		for len(view) > 0 && view[0].Role == core.RoleTool {
			view = view[1:]
		}
	}

	if req.Directive != nil && !req.Directive.IsEmpty() {
		view = append(view[:len(view):len(view)], *req.Directive)
	}

	tools := a.Tools()

	if a.promptCalls {
		if desc := dispatch.DescribeTextCalls(tools); desc != "" {
			instructions = strings.TrimSpace(instructions + "\n\n" + desc)
		}
		tools = nil
		view = textualize(view)
	}

	return model.Request{
		Agent:        a.Name(),
		Instructions: instructions,
		Messages:     view,
		Tools:        tools,
		Stream:       a.streaming,
	}, nil
}

// Invoke implements core.Agent. Each final model response becomes one agent
// message; partial chunks are aggregated by the model stream.
func (a *ModelAgent) Invoke(rc *core.RunContext, req core.InvokeRequest) (<-chan core.Message, <-chan error) {
	return stream(rc, func(emit func(core.Message) bool) error {
		mreq, err := a.BuildRequest(rc, req)
		if err != nil {
			return err
		}

		rc.LogDebug(
			"agent.model.request",
			"agent", a.Name(),
			"messages", len(mreq.Messages),
			"tools", len(a.Tools()),
			"prompt_calls", a.promptCalls,
		)

		respCh, errCh := a.llm.Generate(rc.Context, mreq)

		partials := 0

		for respCh != nil || errCh != nil {
			select {
			case <-rc.Done():
				return rc.Err()
			case resp, ok := <-respCh:
				if !ok {
					respCh = nil
					continue
				}
				if resp.Partial {
					partials++
					continue
				}

				msg := a.toMessage(rc, resp)
				if msg.IsEmpty() {
					continue
				}

				rc.LogDebug(
					"agent.model.response",
					"agent", a.Name(),
					"partials", partials,
					"function_calls", len(msg.FunctionCalls()),
					"finish_reason", resp.FinishReason,
				)

				if !emit(msg) {
					return rc.Err()
				}
			case err, ok := <-errCh:
				if !ok {
					errCh = nil
					continue
				}
				if err != nil {
					rc.LogError("agent.model.error", "agent", a.Name(), "error", err.Error())
					return err
				}
			}
		}

		return nil
	})
}

func (a *ModelAgent) toMessage(rc *core.RunContext, resp model.Response) core.Message {
	parts := resp.Parts

	if a.promptCalls {
		calls, rest, err := dispatch.ParseTextCalls(resp.Text())
		if err != nil {
			rc.LogWarn("agent.prompt_calls.parse_failed", "agent", a.Name(), "error", err.Error())
		} else if len(calls) > 0 {
			parts = nil
			if rest != "" {
				parts = append(parts, core.TextPart{Text: rest})
			}
			for _, c := range calls {
				parts = append(parts, core.FunctionCallPart{FunctionCall: c})
			}
		}
	}

	msg := core.NewMessage(core.RoleAgent, a.Name(), parts...)
	if resp.ID != "" {
		msg = msg.WithMeta("response_id", resp.ID)
	}

	return msg
}

// textualize rewrites call and result messages into the plain text protocol
// for models without native tool support.
func textualize(msgs []core.Message) []core.Message {
	out := make([]core.Message, 0, len(msgs))

	for _, m := range msgs {
		switch {
		case m.HasFunctionCalls():
			var b strings.Builder
			if t := m.Text(); t != "" {
				b.WriteString(t)
				b.WriteString("\n")
			}
			for _, c := range m.FunctionCalls() {
				args := c.Arguments
				if args == "" {
					args = "{}"
				}
				fmt.Fprintf(&b, "FUNCTION_CALL: %s\nPARAMETERS: %s\n", c.Name, args)
			}
			c := core.NewTextMessage(m.Role, m.Author, strings.TrimSpace(b.String()))
			c.ID, c.Index = m.ID, m.Index
			out = append(out, c)
		case m.Role == core.RoleTool:
			var b strings.Builder
			for _, r := range m.FunctionResults() {
				if r.Success() {
					fmt.Fprintf(&b, "FUNCTION_RESULT %s: %s\n", r.Name, r.ResultString())
				} else {
					fmt.Fprintf(&b, "FUNCTION_RESULT %s failed: %s\n", r.Name, r.Error)
				}
			}
			c := core.NewTextMessage(core.RoleUser, "", strings.TrimSpace(b.String()))
			c.ID, c.Index = m.ID, m.Index
			out = append(out, c)
		default:
			out = append(out, m)
		}
	}

	return out
}
