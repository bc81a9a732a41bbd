package agent

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/testutil"
)

func TestSequentialAgent(t *testing.T) {
	drafter := testutil.NewScriptedAgent("Drafter", testutil.Say("draft"))
	var seen int
	critic := testutil.NewScriptedAgent("Critic", func(req core.InvokeRequest) ([]core.Message, error) {
		seen = len(req.History)
		return []core.Message{core.NewTextMessage(core.RoleAgent, "", "critique of "+req.History[len(req.History)-1].Text())}, nil
	})

	team := NewSequentialAgent("Team", drafter, critic)

	history := []core.Message{core.NewUserMessage("task")}
	msgs, err := collect(team.Invoke(runContext(), core.InvokeRequest{History: history}))
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, 2, seen, "critic sees the uncommitted draft")
	assert.Equal(t, "critique of draft", msgs[1].Text())
	for _, m := range msgs {
		assert.Equal(t, "Team", m.Author)
	}
	assert.Equal(t, "Team.Drafter", msgs[0].Meta(MetaMember))
	assert.Equal(t, "Team.Critic", msgs[1].Meta(MetaMember))
}

func TestSequentialAgent_StopsOnFunctionCalls(t *testing.T) {
	caller := testutil.NewScriptedAgent("Caller", testutil.CallFunction("x.y", "{}"))
	after := testutil.NewScriptedAgent("After")

	msgs, err := collect(NewSequentialAgent("Team", caller, after).Invoke(runContext(), core.InvokeRequest{}))
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].HasFunctionCalls())
	assert.Equal(t, 0, after.Invocations())
}

func TestParallelAgent(t *testing.T) {
	slow := testutil.NewScriptedAgent("Slow", testutil.Say("slow")).WithDelay(20 * time.Millisecond)
	fast := testutil.NewScriptedAgent("Fast", testutil.Say("fast"))

	msgs, err := collect(NewParallelAgent("Panel", time.Second, slow, fast).Invoke(runContext(), core.InvokeRequest{}))
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, "slow", msgs[0].Text(), "member order, not completion order")
	assert.Equal(t, "fast", msgs[1].Text())
	assert.Equal(t, "Panel.Fast", msgs[1].Meta(MetaMember))
}

func TestParallelAgent_ErrorsAndTimeout(t *testing.T) {
	boom := errors.New("boom")
	ok := testutil.NewScriptedAgent("Ok")

	_, err := collect(NewParallelAgent("Panel", 0, testutil.NewScriptedAgent("Bad", testutil.Fail(boom)), ok).
		Invoke(runContext(), core.InvokeRequest{}))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ok.Invocations())

	stuck := testutil.NewScriptedAgent("Stuck").WithDelay(time.Minute)
	_, err = collect(NewParallelAgent("Panel", 10*time.Millisecond, stuck).Invoke(runContext(), core.InvokeRequest{}))
	assert.Error(t, err)
}

func TestLoopAgent(t *testing.T) {
	refiner := testutil.NewScriptedAgent("Refiner",
		testutil.Say("rough"),
		testutil.Say("better"),
		testutil.Say("polished"),
		testutil.Say("over-polished"),
	)

	loop := NewLoopAgent("Polisher", refiner,
		WithMaxIters(5),
		WithPredicate(func(text string) bool { return strings.Contains(text, "polished") }),
	)

	msgs, err := collect(loop.Invoke(runContext(), core.InvokeRequest{}))
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	assert.Equal(t, "polished", msgs[0].Text())
	assert.Equal(t, 3, refiner.Invocations())

	reqs := refiner.Requests()
	assert.Len(t, reqs[2].History, 2, "each iteration sees the previous ones")
}

func TestLoopAgent_MaxIters(t *testing.T) {
	member := testutil.NewScriptedAgent("Member")

	msgs, err := collect(NewLoopAgent("Loop", member, WithMaxIters(2)).Invoke(runContext(), core.InvokeRequest{}))
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	assert.Equal(t, "Member turn 2", msgs[0].Text())
	assert.Equal(t, "Loop.Member", msgs[0].Meta(MetaMember))
}

func TestComposite_Capabilities(t *testing.T) {
	searcher := testutil.NewScriptedAgent("Searcher").WithCapabilities("search")
	reader := testutil.NewScriptedAgent("Reader").WithCapabilities("files.read", "search")

	team := NewSequentialAgent("Team", searcher, reader).Descriptor()
	assert.Equal(t, []string{"search", "files.read"}, team.Capabilities)
	assert.True(t, team.Permits("search.web"))
	assert.True(t, team.Permits("files.read"))
	assert.False(t, team.Permits("files.write"))
	assert.False(t, team.Permits("shell.exec"))

	loop := NewLoopAgent("Loop", searcher).Descriptor()
	assert.Equal(t, []string{"search"}, loop.Capabilities)

	open := NewParallelAgent("Panel", 0, searcher, testutil.NewScriptedAgent("Free")).Descriptor()
	assert.Empty(t, open.Capabilities)
	assert.True(t, open.Permits("shell.exec"))
}
