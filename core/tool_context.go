package core

import (
	"context"

	"github.com/hupe1980/agentchat/logging"
)

// ToolContext is the scope handed to a capability while it executes one
// function call. It exposes identifiers and read-only run information; tools
// never write to the conversation.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string
	agentName      string
}

// NewToolContext constructs a tool context bound to a parent RunContext.
func NewToolContext(runCtx *RunContext, agentName, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		agentName:      agentName,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Logger returns the run's logger scoped to this call.
func (tc *ToolContext) Logger() logging.Logger {
	return logging.With(tc.runCtx.Logger(), "run_id", tc.runCtx.RunID, "agent", tc.agentName, "function_call_id", tc.functionCallID)
}

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the name of the agent that requested the call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// GetState reads a run scoped value.
func (tc *ToolContext) GetState(k string) (any, bool) { return tc.runCtx.GetState(k) }

// Human returns the human-input collaborator of the run, if any.
func (tc *ToolContext) Human() HumanInput { return tc.runCtx.Human }
