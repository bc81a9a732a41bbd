package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentchat/core"
)

// MockStep is one scripted outcome of a MockModel call.
type MockStep struct {
	Response Response
	Err      error
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Calls consume scripted steps in order. Without a script it answers from
// canned prompt responses, then echoes the last message.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	script    []MockStep
	responses map[string]string
	requests  []Request
	delay     time.Duration
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock", SupportsTools: true},
		responses: map[string]string{},
	}
}

// WithoutTools marks the model as lacking native function calling.
func (m *MockModel) WithoutTools() *MockModel {
	m.info.SupportsTools = false
	return m
}

// WithDelay makes every call wait d (or until cancelled) before answering.
func (m *MockModel) WithDelay(d time.Duration) *MockModel {
	m.delay = d
	return m
}

// AddResponse registers a canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends scripted responses.
func (m *MockModel) Enqueue(resps ...Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range resps {
		m.script = append(m.script, MockStep{Response: r})
	}
	return m
}

// EnqueueText appends scripted text responses.
func (m *MockModel) EnqueueText(texts ...string) *MockModel {
	for _, t := range texts {
		m.Enqueue(Response{Parts: []core.Part{core.TextPart{Text: t}}, FinishReason: "stop"})
	}
	return m
}

// EnqueueCalls appends a scripted response requesting the given function calls.
func (m *MockModel) EnqueueCalls(calls ...core.FunctionCall) *MockModel {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	return m.Enqueue(Response{Parts: parts, FinishReason: "tool_calls"})
}

// EnqueueError appends a scripted failure.
func (m *MockModel) EnqueueError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, MockStep{Err: err})
	return m
}

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of Generate calls so far.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockModel) next(req Request) MockStep {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		step := m.script[0]
		m.script = m.script[1:]
		return step
	}

	var input string
	if n := len(req.Messages); n > 0 {
		input = req.Messages[n-1].Text()
	}

	full, ok := m.responses[input]
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", input)
	}

	return MockStep{Response: Response{Parts: []core.Part{core.TextPart{Text: full}}, FinishReason: "stop"}}
}

// Generate implements Model; emits optional streaming chunks then the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	step := m.next(req)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if m.delay > 0 {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-time.After(m.delay):
			}
		}

		if step.Err != nil {
			errCh <- step.Err
			return
		}

		if req.Stream {
			for _, r := range step.Response.Text() {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Parts: []core.Part{core.TextPart{Text: string(r)}}}:
				}
			}
		}

		final := step.Response
		final.Partial = false

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- final:
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
