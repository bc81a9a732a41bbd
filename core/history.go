package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// History is the append-only conversation ledger of one group chat.
//
// Contract:
//   - Indices are assigned on Append, start at 1 and are strictly increasing
//   - A function result must answer a pending (emitted, unresolved) call
//   - Append is all-or-nothing for the messages passed in one call
//   - Readers get defensive copies; concurrent reads are safe
//
// A History has exactly one writer, the orchestrator owning it.
type History struct {
	mu       sync.RWMutex
	messages []Message
	pending  map[string]string // call id -> function name
	next     int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{pending: map[string]string{}, next: 1}
}

// NewHistoryFrom returns a history seeded with msgs. Seed messages are
// re-indexed and validated like any other append.
func NewHistoryFrom(msgs []Message) (*History, error) {
	h := NewHistory()
	if len(msgs) == 0 {
		return h, nil
	}

	if _, err := h.Append(msgs...); err != nil {
		return nil, err
	}

	return h, nil
}

// Append commits msgs in order and returns the committed copies. If any
// message fails validation nothing is committed.
func (h *History) Append(msgs ...Message) ([]Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pending := make(map[string]string, len(h.pending))
	for k, v := range h.pending {
		pending[k] = v
	}

	committed := make([]Message, 0, len(msgs))
	next := h.next

	for _, m := range msgs {
		for _, fc := range m.FunctionCalls() {
			if fc.ID != "" {
				pending[fc.ID] = fc.Name
			}
		}

		for _, fr := range m.FunctionResults() {
			if _, ok := pending[fr.ID]; !ok {
				return nil, fmt.Errorf("%w: id %q (%s)", ErrUnmatchedFunctionResult, fr.ID, fr.Name)
			}
			delete(pending, fr.ID)
		}

		c := m.Clone()
		c.Index = next
		next++

		if c.ID == "" {
			c.ID = NewID()
		}

		if c.Timestamp.IsZero() {
			c.Timestamp = time.Now().UTC()
		}

		committed = append(committed, c)
	}

	h.messages = append(h.messages, committed...)
	h.pending = pending
	h.next = next

	return CloneMessages(committed), nil
}

// Messages returns a defensive copy of all messages in order.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return CloneMessages(h.messages)
}

// Snapshot is an alias of Messages.
func (h *History) Snapshot() []Message { return h.Messages() }

// Since returns the messages whose index is greater than index.
func (h *History) Since(index int) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Message
	for _, m := range h.messages {
		if m.Index > index {
			out = append(out, m.Clone())
		}
	}

	return out
}

// Len returns the number of committed messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.messages)
}

// Last returns the most recently committed message.
func (h *History) Last() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.messages) == 0 {
		return Message{}, false
	}

	return h.messages[len(h.messages)-1].Clone(), true
}

// LastIndex returns the index of the last committed message, or 0.
func (h *History) LastIndex() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.next - 1
}

// Pending returns the ids of emitted function calls that have no result yet.
func (h *History) Pending() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var ids []string
	for _, m := range h.messages {
		for _, fc := range m.FunctionCalls() {
			if _, ok := h.pending[fc.ID]; ok {
				ids = append(ids, fc.ID)
			}
		}
	}

	return ids
}

// HistoryReducer shrinks the view of a conversation handed to one agent
// invocation. It must not modify its input.
type HistoryReducer interface {
	Reduce(ctx context.Context, msgs []Message) ([]Message, error)
}

// HistoryStore persists conversation snapshots keyed by chat id.
type HistoryStore interface {
	Save(ctx context.Context, id string, msgs []Message) error
	Load(ctx context.Context, id string) ([]Message, error)
}
