package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/model"
)

func TestParseTextCalls(t *testing.T) {
	text := "Let me check.\nFUNCTION_CALL: weather.lookup\nPARAMETERS: {\n  \"city\": \"Berlin\"\n}\nthanks"

	calls, rest, err := ParseTextCalls(text)
	require.NoError(t, err)
	require.Len(t, calls, 1)

	assert.Equal(t, "weather.lookup", calls[0].Name)
	assert.NotEmpty(t, calls[0].ID)

	args, err := calls[0].DecodeArguments()
	require.NoError(t, err)
	assert.Equal(t, "Berlin", args["city"])
	assert.Equal(t, "Let me check.\n\nthanks", rest)
}

func TestParseTextCalls_MultipleAndWithoutParameters(t *testing.T) {
	text := "FUNCTION_CALL: clock.now\nFUNCTION_CALL: math.add\nPARAMETERS: {\"a\": 1, \"b\": 2}"

	calls, rest, err := ParseTextCalls(text)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "clock.now", calls[0].Name)
	assert.Equal(t, "{}", calls[0].Arguments)
	assert.Equal(t, "math.add", calls[1].Name)
	assert.Empty(t, rest)
}

func TestParseTextCalls_NoCalls(t *testing.T) {
	calls, rest, err := ParseTextCalls("just prose")
	require.NoError(t, err)
	assert.Empty(t, calls)
	assert.Equal(t, "just prose", rest)
}

func TestParseTextCalls_BadParameters(t *testing.T) {
	_, _, err := ParseTextCalls("FUNCTION_CALL: a.b\nPARAMETERS: [1,2]")
	require.Error(t, err)

	_, _, err = ParseTextCalls("FUNCTION_CALL: a.b\nPARAMETERS: {oops")
	require.Error(t, err)
}

func TestDescribeTextCalls(t *testing.T) {
	assert.Empty(t, DescribeTextCalls(nil))

	out := DescribeTextCalls([]model.ToolDefinition{
		{Type: "function", Function: model.FunctionDefinition{Name: "math.add", Description: "Add"}},
	})
	assert.Contains(t, out, "- math.add: Add")
	assert.Contains(t, out, "FUNCTION_CALL: <name>")
}
