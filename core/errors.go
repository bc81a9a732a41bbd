package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoParticipants is returned when a strategy receives an empty agent set.
	ErrNoParticipants = errors.New("no participants")
	// ErrUnmatchedFunctionResult marks a function result without a pending call.
	ErrUnmatchedFunctionResult = errors.New("function result does not match a pending function call")
	// ErrChatComplete is returned when invoking a completed chat without reset.
	ErrChatComplete = errors.New("chat is complete")
	// ErrOracleRetriesExhausted is returned when an oracle never gave a usable answer.
	ErrOracleRetriesExhausted = errors.New("oracle retries exhausted")
	// ErrCapabilityNotFound is reported for calls to unregistered capabilities.
	ErrCapabilityNotFound = errors.New("capability not found")
	// ErrCapabilityNotPermitted is reported for calls outside an agent's capability set.
	ErrCapabilityNotPermitted = errors.New("capability not permitted")
	// ErrUnknownParticipant is returned when a strategy picks an agent outside the set.
	ErrUnknownParticipant = errors.New("selected agent is not a participant")
)

// SelectionError reports that no valid next agent could be chosen. It is
// fatal to the run.
type SelectionError struct {
	Strategy string
	Err      error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selection %s: %v", e.Strategy, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// TerminationError reports that a termination policy could not be evaluated.
// It is fatal to the run.
type TerminationError struct {
	Strategy string
	Err      error
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("termination %s: %v", e.Strategy, e.Err)
}

func (e *TerminationError) Unwrap() error { return e.Err }
