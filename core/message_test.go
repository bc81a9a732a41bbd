package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_IsEmpty(t *testing.T) {
	assert.True(t, NewMessage(RoleAgent, "a").IsEmpty())
	assert.True(t, NewTextMessage(RoleAgent, "a", "  \n").IsEmpty())
	assert.True(t, NewMessage(RoleAgent, "a", DataPart{}).IsEmpty())
	assert.False(t, NewTextMessage(RoleAgent, "a", "hi").IsEmpty())
	assert.False(t, NewFunctionCallMessage("a", FunctionCall{Name: "x.y"}).IsEmpty())
}

func TestMessage_TextAndCalls(t *testing.T) {
	m := NewMessage(RoleAgent, "Writer",
		TextPart{Text: "first"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "1", Name: "x.y"}},
		TextPart{Text: "second"},
	)

	assert.Equal(t, "first\nsecond", m.Text())
	assert.True(t, m.HasFunctionCalls())
	require.Len(t, m.FunctionCalls(), 1)
	assert.Equal(t, "x.y", m.FunctionCalls()[0].Name)
}

func TestMessage_WithMetaDoesNotAlias(t *testing.T) {
	m := NewTextMessage(RoleAgent, "a", "x")
	m2 := m.WithMeta(MetaFunctionLoopExhausted, "true")

	assert.Empty(t, m.Meta(MetaFunctionLoopExhausted))
	assert.Equal(t, "true", m2.Meta(MetaFunctionLoopExhausted))
}

func TestFunctionCall_DecodeArguments(t *testing.T) {
	args, err := FunctionCall{Name: "x.y", Arguments: `{"a":1}`}.DecodeArguments()
	require.NoError(t, err)
	assert.Equal(t, float64(1), args["a"])

	args, err = FunctionCall{Name: "x.y"}.DecodeArguments()
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = FunctionCall{Name: "x.y", Arguments: `{`}.DecodeArguments()
	assert.Error(t, err)
}

func TestFunctionResult_ResultString(t *testing.T) {
	assert.Equal(t, "plain", FunctionResult{Result: "plain"}.ResultString())
	assert.Equal(t, `{"a":1}`, FunctionResult{Result: map[string]any{"a": 1}}.ResultString())
	assert.Equal(t, "", FunctionResult{}.ResultString())
	assert.True(t, FunctionResult{}.Success())
	assert.False(t, FunctionResult{Error: "boom"}.Success())
}

func TestAgentDescriptor_Permits(t *testing.T) {
	open := AgentDescriptor{Name: "a"}
	assert.True(t, open.Permits("anything.at_all"))

	d := AgentDescriptor{Name: "a", Capabilities: []string{"math", "text.upper"}}
	assert.True(t, d.Permits("math.add"))
	assert.True(t, d.Permits("text.upper"))
	assert.False(t, d.Permits("text.lower"))
	assert.False(t, d.Permits("files.read"))
}

func TestCallBudget(t *testing.T) {
	b := NewCallBudget(2)
	require.NoError(t, b.Increment("a"))
	require.NoError(t, b.Increment("b"))
	assert.Error(t, b.Increment("a"))
	assert.Equal(t, 2, b.Count("a"))
	assert.Equal(t, 3, b.Total())

	assert.Equal(t, -1, NewCallBudget(0).Remaining())
}

func TestRunContext_EmitAndState(t *testing.T) {
	var got []Event
	rc := NewRunContext(context.Background(), "run-1", func(o *RunContextOptions) {
		o.Events = EventSinkFunc(func(ev Event) { got = append(got, ev) })
		o.State = map[string]any{"topic": "go"}
	})
	rc.Round = 3

	rc.Emit(Event{Type: EventStateChanged, State: "SELECTING"})
	require.Len(t, got, 1)
	assert.Equal(t, "run-1", got[0].RunID)
	assert.Equal(t, 3, got[0].Round)
	assert.False(t, got[0].Timestamp.IsZero())

	child := rc.WithContext(rc.Context)
	child.SetState("k", 1)
	v, ok := rc.GetState("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, "go", rc.State()["topic"])
}
