package testutil

import (
	"github.com/hupe1980/agentchat/core"
)

// HistoryBuilder helps construct conversation histories with fluent chaining.
// Example:
//
//	h := NewHistoryBuilder().User("go").Agent("Writer", "draft").Messages()
type HistoryBuilder struct {
	msgs []core.Message
}

// NewHistoryBuilder creates an empty builder.
func NewHistoryBuilder() *HistoryBuilder { return &HistoryBuilder{} }

// User appends a user message (chainable).
func (b *HistoryBuilder) User(text string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewUserMessage(text))
	return b
}

// Agent appends a text message authored by agent (chainable).
func (b *HistoryBuilder) Agent(agent, text string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewTextMessage(core.RoleAgent, agent, text))
	return b
}

// Message appends arbitrary messages (chainable).
func (b *HistoryBuilder) Message(msgs ...core.Message) *HistoryBuilder {
	b.msgs = append(b.msgs, msgs...)
	return b
}

// Messages returns the uncommitted messages.
func (b *HistoryBuilder) Messages() []core.Message { return core.CloneMessages(b.msgs) }

// Build commits the messages to a new core.History. It panics on invalid
// function result correlation, which is a test bug.
func (b *HistoryBuilder) Build() *core.History {
	h, err := core.NewHistoryFrom(b.msgs)
	if err != nil {
		panic(err)
	}
	return h
}
