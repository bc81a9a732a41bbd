// Package tool implements the capability layer agents call through function
// calls: the Tool interface, FunctionTool adapters with JSON Schema validated
// arguments, plugins grouping related functions, and the Registry the
// dispatcher resolves "<plugin>.<function>" names against.
package tool

import (
	"fmt"

	"github.com/hupe1980/agentchat/core"
)

// Tool is a named capability invokable with structured arguments.
//
// Implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define a JSON schema for parameters
//   - Be safe for concurrent use; calls of one batch run in parallel
type Tool interface {
	// Name returns the function name, unique within its plugin.
	Name() string

	// Description is shown to models to help them decide when to call the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. Arguments are already decoded from JSON.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// Error codes carried by ToolError.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeExecution    = "EXECUTION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeNotPermitted = "NOT_PERMITTED"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
