package model

import (
	"context"
	"strings"

	"github.com/hupe1980/agentchat/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function exposed to the model.
// Parameters is a JSON Schema object. Name is the canonical
// "<plugin>.<function>" capability name; adapters translate it with WireName.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by agents and oracles.
type Request struct {
	// Agent is the name of the invoking agent. Agent messages authored by
	// other participants are presented to the model as attributed user turns.
	Agent        string           `json:"agent,omitempty"`
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"`
	Parts        []core.Part `json:"parts"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Text concatenates the text parts of the response.
func (r Response) Text() string {
	return core.Message{Parts: r.Parts}.Text()
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents and oracles to drive
// generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// WireName converts a canonical capability name into a form accepted by
// vendor APIs, which reject dots in function names.
func WireName(name string) string {
	return strings.ReplaceAll(name, ".", "-")
}

// NameResolver maps wire names back to canonical names for the tools of req.
// Unknown names are returned unchanged.
func NameResolver(req Request) func(string) string {
	names := make(map[string]string, len(req.Tools))
	for _, t := range req.Tools {
		names[WireName(t.Function.Name)] = t.Function.Name
	}

	return func(wire string) string {
		if n, ok := names[wire]; ok {
			return n
		}
		return wire
	}
}

// UnansweredCallResult stands in for the result of a function call the
// history never answered, e.g. calls left pending when automatic invocation
// was exhausted. Provider APIs require every call to be answered.
const UnansweredCallResult = "error: function was not executed"

// Speaker decides how a history message is presented to the model on behalf
// of agent self. It returns the vendor neutral role ("system", "user",
// "assistant" or "tool") and the rendered text.
func Speaker(m core.Message, self string) (string, string) {
	text := m.Text()

	switch m.Role {
	case core.RoleSystem:
		return "system", text
	case core.RoleTool:
		return "tool", text
	case core.RoleAgent:
		if self == "" || m.Author == self || m.HasFunctionCalls() {
			return "assistant", text
		}
		if text == "" {
			return "user", ""
		}
		return "user", m.Author + ": " + text
	default:
		return "user", text
	}
}
