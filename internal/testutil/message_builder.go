package testutil

import (
	"github.com/hupe1980/agentchat/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	m := NewMessageBuilder().Author("Writer").Text("hello").Build()
//
// Chain only the parts you need; the default role is agent.
type MessageBuilder struct {
	role     core.Role
	author   string
	id       string
	parts    []core.Part
	metadata map[string]string
}

// NewMessageBuilder creates a builder for an agent message.
func NewMessageBuilder() *MessageBuilder { return &MessageBuilder{role: core.RoleAgent} }

// Role sets the message role (chainable).
func (b *MessageBuilder) Role(r core.Role) *MessageBuilder { b.role = r; return b }

// Author sets the author name (chainable).
func (b *MessageBuilder) Author(a string) *MessageBuilder { b.author = a; return b }

// ID overrides the generated message ID (chainable).
func (b *MessageBuilder) ID(id string) *MessageBuilder { b.id = id; return b }

// Text appends a text part (chainable).
func (b *MessageBuilder) Text(t string) *MessageBuilder {
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// Call appends a function call part (chainable).
func (b *MessageBuilder) Call(id, name, args string) *MessageBuilder {
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}})
	return b
}

// Result appends a function result part and switches the role to tool (chainable).
func (b *MessageBuilder) Result(id, name string, result any, errText string) *MessageBuilder {
	b.role = core.RoleTool
	b.parts = append(b.parts, core.FunctionResultPart{FunctionResult: core.FunctionResult{ID: id, Name: name, Result: result, Error: errText}})
	return b
}

// Meta sets a metadata entry (chainable).
func (b *MessageBuilder) Meta(k, v string) *MessageBuilder {
	if b.metadata == nil {
		b.metadata = map[string]string{}
	}
	b.metadata[k] = v
	return b
}

// Build returns the constructed message.
func (b *MessageBuilder) Build() core.Message {
	m := core.NewMessage(b.role, b.author, b.parts...)
	if b.id != "" {
		m.ID = b.id
	}
	for k, v := range b.metadata {
		m = m.WithMeta(k, v)
	}
	return m
}
