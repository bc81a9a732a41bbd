package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/model"
)

var (
	callLine   = regexp.MustCompile(`(?m)^[ \t]*FUNCTION_CALL:[ \t]*([A-Za-z0-9_.\-]+)[ \t]*$`)
	paramsLine = regexp.MustCompile(`^\s*PARAMETERS:\s*`)
)

// ParseTextCalls extracts function calls written in the plain text protocol
//
//	FUNCTION_CALL: plugin.function
//	PARAMETERS: {"key": "value"}
//
// used with models lacking native tool support. It returns the calls in
// order and the remaining text with call blocks removed. PARAMETERS is
// optional; malformed JSON yields an error.
func ParseTextCalls(text string) ([]core.FunctionCall, string, error) {
	locs := callLine.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil, text, nil
	}

	var (
		calls []core.FunctionCall
		rest  strings.Builder
		prev  int
	)

	for _, loc := range locs {
		rest.WriteString(text[prev:loc[0]])

		name := text[loc[2]:loc[3]]
		end := loc[1]
		args := "{}"

		tail := text[end:]
		if m := paramsLine.FindStringIndex(tail); m != nil {
			dec := json.NewDecoder(strings.NewReader(tail[m[1]:]))

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, text, fmt.Errorf("parameters for %s: %w", name, err)
			}

			if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
				return nil, text, fmt.Errorf("parameters for %s: expected a JSON object", name)
			}

			args = string(raw)
			end += m[1] + int(dec.InputOffset())
		}

		calls = append(calls, core.FunctionCall{ID: core.NewID(), Name: name, Arguments: args})
		prev = end
	}

	rest.WriteString(text[prev:])

	return calls, strings.TrimSpace(rest.String()), nil
}

// DescribeTextCalls renders instructions teaching a model the text call
// protocol for the given tools. It returns "" when tools is empty.
func DescribeTextCalls(tools []model.ToolDefinition) string {
	if len(tools) == 0 {
		return ""
	}

	defs := make([]model.FunctionDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Function)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	var b strings.Builder

	b.WriteString("You can call the following functions:\n")
	for _, d := range defs {
		params, _ := json.Marshal(d.Parameters)
		fmt.Fprintf(&b, "- %s: %s\n  parameters schema: %s\n", d.Name, d.Description, params)
	}

	b.WriteString("\nTo call a function, answer with exactly:\n")
	b.WriteString("FUNCTION_CALL: <name>\nPARAMETERS: <JSON object>\n")
	b.WriteString("You will receive the result in the next message. Answer normally when no call is needed.")

	return b.String()
}
