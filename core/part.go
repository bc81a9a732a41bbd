package core

import (
	"encoding/json"
	"fmt"
)

// Part represents a polymorphic segment of message content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

// DataPart is a structured data segment (e.g., a JSON object).
type DataPart struct {
	Data map[string]any `json:"data"`
}

func (DataPart) isPart() {}

// FunctionCall is a request, embedded in an agent response, to execute a
// named capability. Arguments holds a JSON encoded object.
type FunctionCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// DecodeArguments unmarshals Arguments into a key/value map. Empty arguments
// decode to an empty map.
func (fc FunctionCall) DecodeArguments() (map[string]any, error) {
	args := map[string]any{}
	if fc.Arguments == "" {
		return args, nil
	}

	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", fc.Name, err)
	}

	return args, nil
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall `json:"function_call"`
}

func (FunctionCallPart) isPart() {}

// FunctionResult is the outcome of a FunctionCall. ID correlates it with the
// originating request. A non-empty Error marks a failed call.
type FunctionResult struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success reports whether the call completed without error.
func (fr FunctionResult) Success() bool { return fr.Error == "" }

// ResultString renders Result as text: strings verbatim, everything else as JSON.
func (fr FunctionResult) ResultString() string {
	switch v := fr.Result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// FunctionResultPart wraps a FunctionResult as a content part.
type FunctionResultPart struct {
	FunctionResult FunctionResult `json:"function_result"`
}

func (FunctionResultPart) isPart() {}
