package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/model"
)

func TestBuildMessages_AnswersEveryToolCall(t *testing.T) {
	pending := core.NewMessage(core.RoleAgent, "Writer",
		core.TextPart{Text: "checking the forecast"},
		core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c6", Name: "weather.current", Arguments: `{"city":"Berlin"}`}},
	).WithMeta(core.MetaFunctionLoopExhausted, "true")

	req := model.Request{
		Agent:        "Writer",
		Instructions: "be brief",
		Messages: []core.Message{
			core.NewUserMessage("weather?"),
			core.NewFunctionCallMessage("Writer", core.FunctionCall{ID: "c5", Name: "weather.current", Arguments: `{}`}),
			core.NewFunctionResultMessage(core.FunctionResult{ID: "c5", Name: "weather.current", Result: "sunny"}),
			pending,
			core.NewTextMessage(core.RoleAgent, "Validator", "next"),
		},
	}

	responses, order := collectToolResponses(req)
	msgs := buildMessages(req, responses, order)

	require.Len(t, msgs, 7)
	require.NotNil(t, msgs[0].OfSystem)

	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "c5", msgs[3].OfTool.ToolCallID)
	assert.Equal(t, "sunny", msgs[3].OfTool.Content.OfString.Value)

	require.NotNil(t, msgs[4].OfAssistant)
	assert.Equal(t, "checking the forecast", msgs[4].OfAssistant.Content.OfString.Value)
	require.Len(t, msgs[4].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "weather-current", msgs[4].OfAssistant.ToolCalls[0].Function.Name)

	require.NotNil(t, msgs[5].OfTool)
	assert.Equal(t, "c6", msgs[5].OfTool.ToolCallID)
	assert.Equal(t, model.UnansweredCallResult, msgs[5].OfTool.Content.OfString.Value)

	require.NotNil(t, msgs[6].OfUser)
}
