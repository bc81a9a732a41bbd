package core

import "time"

// EventType classifies orchestration events.
type EventType string

const (
	EventRunStarted      EventType = "run_started"
	EventStateChanged    EventType = "state_changed"
	EventAgentSelected   EventType = "agent_selected"
	EventMessageAppended EventType = "message_appended"
	EventFunctionsDone   EventType = "functions_dispatched"
	EventRunFinished     EventType = "run_finished"
)

// Event is a structured record emitted while a group chat runs. Events are
// informational; sinks cannot influence the run.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Round     int       `json:"round"`
	State     string    `json:"state,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives orchestration events. Emit is called from the control
// loop and should return quickly.
type EventSink interface {
	Emit(ev Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev Event)

// Emit calls f(ev).
func (f EventSinkFunc) Emit(ev Event) { f(ev) }

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

// Emit forwards ev to every non-nil sink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}
