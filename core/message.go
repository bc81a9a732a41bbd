package core

import (
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the kind of participant that produced a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleTool   Role = "tool"
	RoleSystem Role = "system"
)

// Well-known metadata keys.
const (
	// MetaDirective records the one-turn directive an agent was invoked with.
	MetaDirective = "directive"
	// MetaFunctionLoopExhausted marks an agent message surfaced after the
	// auto-invoke loop hit its attempt bound.
	MetaFunctionLoopExhausted = "function_loop_exhausted"
)

// Message is one entry of a conversation. Index is assigned by History when
// the message is appended and is zero for uncommitted messages. After
// appending, a Message should be treated as immutable.
type Message struct {
	ID        string            `json:"id"`
	Index     int               `json:"index"`
	Role      Role              `json:"role"`
	Author    string            `json:"author,omitempty"`
	Parts     []Part            `json:"parts"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewID returns a new random identifier.
func NewID() string { return uuid.NewString() }

// NewMessage creates an uncommitted message with the given parts.
func NewMessage(role Role, author string, parts ...Part) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Author:    author,
		Parts:     parts,
		Timestamp: time.Now().UTC(),
	}
}

// NewTextMessage creates a message with a single text part.
func NewTextMessage(role Role, author, text string) Message {
	return NewMessage(role, author, TextPart{Text: text})
}

// NewUserMessage creates a user authored text message.
func NewUserMessage(text string) Message {
	return NewTextMessage(RoleUser, string(RoleUser), text)
}

// NewDirectiveMessage creates a system message used to steer a single turn.
func NewDirectiveMessage(text string) Message {
	m := NewTextMessage(RoleSystem, string(RoleSystem), text)
	m.Metadata = map[string]string{MetaDirective: "true"}
	return m
}

// NewFunctionCallMessage creates an agent message requesting the given calls.
func NewFunctionCallMessage(author string, calls ...FunctionCall) Message {
	parts := make([]Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, FunctionCallPart{FunctionCall: c})
	}
	return NewMessage(RoleAgent, author, parts...)
}

// NewFunctionResultMessage creates a tool message carrying a batch of results.
func NewFunctionResultMessage(results ...FunctionResult) Message {
	parts := make([]Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, FunctionResultPart{FunctionResult: r})
	}
	return NewMessage(RoleTool, string(RoleTool), parts...)
}

// Text concatenates all text parts separated by newlines.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok && tp.Text != "" {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// FunctionCalls returns all function call requests carried by the message.
func (m Message) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range m.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResults returns all function results carried by the message.
func (m Message) FunctionResults() []FunctionResult {
	var results []FunctionResult
	for _, p := range m.Parts {
		if fr, ok := p.(FunctionResultPart); ok {
			results = append(results, fr.FunctionResult)
		}
	}
	return results
}

// HasFunctionCalls reports whether the message requests any function calls.
func (m Message) HasFunctionCalls() bool {
	for _, p := range m.Parts {
		if _, ok := p.(FunctionCallPart); ok {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the message carries no meaningful content. Text
// parts consisting only of whitespace do not count as content.
func (m Message) IsEmpty() bool {
	for _, p := range m.Parts {
		switch v := p.(type) {
		case TextPart:
			if strings.TrimSpace(v.Text) != "" {
				return false
			}
		case DataPart:
			if len(v.Data) > 0 {
				return false
			}
		case nil:
		default:
			return false
		}
	}
	return true
}

// Meta returns the metadata value for key.
func (m Message) Meta(key string) string {
	return m.Metadata[key]
}

// WithMeta returns a copy of the message carrying key=value in its metadata.
func (m Message) WithMeta(key, value string) Message {
	c := m.Clone()
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	c.Metadata[key] = value
	return c
}

// Clone returns a copy whose part slice and metadata map are independent of m.
func (m Message) Clone() Message {
	c := m
	if m.Parts != nil {
		c.Parts = make([]Part, len(m.Parts))
		copy(c.Parts, m.Parts)
	}
	if m.Metadata != nil {
		c.Metadata = maps.Clone(m.Metadata)
	}
	return c
}

// CloneMessages deep copies a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
