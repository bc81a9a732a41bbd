package groupchat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/testutil"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/metrics"
	"github.com/hupe1980/agentchat/reducer"
	"github.com/hupe1980/agentchat/selection"
	"github.com/hupe1980/agentchat/session"
	"github.com/hupe1980/agentchat/termination"
	"github.com/hupe1980/agentchat/tool"
)

func agents(as ...*testutil.ScriptedAgent) []core.Agent {
	out := make([]core.Agent, len(as))
	for i, a := range as {
		out[i] = a
	}
	return out
}

func TestGroupChat_WriterValidatorReviewer(t *testing.T) {
	writer := testutil.NewScriptedAgent("Writer", testutil.Say("Here is a draft"))
	validator := testutil.NewScriptedAgent("Validator", testutil.Say("Facts check out"))
	reviewer := testutil.NewScriptedAgent("Reviewer",
		testutil.Say("Needs a stronger hook"),
		testutil.Say("Closer, tighten the ending"),
		testutil.Say("Almost there"),
		testutil.Say("Looks APPROVED to me"),
		testutil.Say("should never be asked again"),
	)

	reviewerOnly := termination.Scope{Agents: []string{"Reviewer"}}
	iteration := termination.NewIteration(10, func(o *termination.IterationOptions) { o.Scope = reviewerOnly })
	keyword := termination.NewKeyword([]string{"approved"}, func(o *termination.KeywordOptions) { o.Scope = reviewerOnly })

	chat, err := New(agents(writer, validator, reviewer),
		WithSelection(selection.NewRoundRobin()),
		WithTermination(termination.AnyOf(keyword, iteration)),
	)
	require.NoError(t, err)

	res, err := chat.Invoke(context.Background(), "Write a slogan for a bakery")
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, ReasonTermination, res.Reason)
	assert.Equal(t, 12, res.Rounds)
	assert.Equal(t, 4, reviewer.Invocations())
	assert.Equal(t, 4, iteration.Count())

	require.NotNil(t, res.Final)
	assert.Equal(t, "Reviewer", res.Final.Author)
	assert.Equal(t, "Looks APPROVED to me", res.Final.Text())

	require.Len(t, res.History, 13)
	assert.Equal(t, core.RoleUser, res.History[0].Role)
	for i, m := range res.History {
		assert.Equal(t, i+1, m.Index, "indices start at 1")
	}

	assert.True(t, chat.IsComplete())
	assert.Equal(t, StateTerminated, chat.State())
}

func TestGroupChat_MaximumIterationsBound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "maximum_iterations")
		size := rapid.IntRange(1, 4).Draw(t, "participants")

		names := []string{"A", "B", "C", "D"}[:size]
		var as []*testutil.ScriptedAgent
		for _, name := range names {
			as = append(as, testutil.NewScriptedAgent(name))
		}

		chat, err := New(agents(as...), WithMaximumIterations(n))
		require.NoError(t, err)

		res, err := chat.Invoke(context.Background(), "go")
		require.NoError(t, err)

		assert.Equal(t, StatusSucceeded, res.Status)
		assert.Equal(t, ReasonMaximumIterations, res.Reason)
		assert.Equal(t, n, res.Rounds)
		assert.Len(t, res.History, n+1)

		total := 0
		for _, a := range as {
			total += a.Invocations()
		}
		assert.Equal(t, n, total)
	})
}

func TestGroupChat_SilentParticipantDoesNotStall(t *testing.T) {
	writer := testutil.NewScriptedAgent("Writer", testutil.Say("draft"))
	validator := testutil.NewScriptedAgent("Validator", func(core.InvokeRequest) ([]core.Message, error) {
		return nil, nil
	})
	reviewer := testutil.NewScriptedAgent("Reviewer", testutil.Say("APPROVED"))

	chat, err := New(agents(writer, validator, reviewer),
		WithMaximumIterations(6),
		WithTermination(termination.NewKeyword([]string{"approved"}, func(o *termination.KeywordOptions) {
			o.Agents = []string{"Reviewer"}
		})),
	)
	require.NoError(t, err)

	res, err := chat.Invoke(context.Background(), "go")
	require.NoError(t, err)

	assert.Equal(t, ReasonTermination, res.Reason)
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, 1, writer.Invocations())
	assert.Equal(t, 1, validator.Invocations())
	assert.Equal(t, 1, reviewer.Invocations())
}

func TestGroupChat_DirectiveSteersOneTurn(t *testing.T) {
	writer := testutil.NewScriptedAgent("Writer", testutil.Say("draft"))
	reviewer := testutil.NewScriptedAgent("Reviewer", testutil.Say("approved"))

	var seen []int
	chat, err := New(agents(writer, reviewer),
		WithMaximumIterations(2),
		WithDirective(func(agent core.AgentDescriptor, history []core.Message) *core.Message {
			seen = append(seen, len(history))
			if agent.Name != "Reviewer" {
				return nil
			}
			d := core.NewDirectiveMessage("be strict")
			return &d
		}),
	)
	require.NoError(t, err)

	res, err := chat.Invoke(context.Background(), "go")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, seen)

	assert.Nil(t, writer.Requests()[0].Directive)
	req := reviewer.Requests()[0]
	require.NotNil(t, req.Directive)
	assert.Equal(t, "be strict", req.Directive.Text())

	require.Len(t, res.History, 3)
	for _, m := range res.History {
		assert.NotEqual(t, core.RoleSystem, m.Role)
		assert.NotEqual(t, req.Directive.ID, m.ID)
	}
	assert.Empty(t, res.History[1].Meta(core.MetaDirective))
	assert.Equal(t, "be strict", res.History[2].Meta(core.MetaDirective))
}

func TestGroupChat_CompletionAndReset(t *testing.T) {
	a := testutil.NewScriptedAgent("A")

	chat, err := New(agents(a), WithMaximumIterations(2))
	require.NoError(t, err)

	_, err = chat.Invoke(context.Background(), "first")
	require.NoError(t, err)
	require.True(t, chat.IsComplete())

	_, err = chat.Invoke(context.Background(), "second")
	assert.ErrorIs(t, err, core.ErrChatComplete)

	require.NoError(t, chat.Reset())
	assert.False(t, chat.IsComplete())
	assert.Empty(t, chat.History())

	res, err := chat.Invoke(context.Background(), "third")
	require.NoError(t, err)
	assert.Len(t, res.History, 3)
}

func TestGroupChat_AutomaticReset(t *testing.T) {
	a := testutil.NewScriptedAgent("A")
	iteration := termination.NewIteration(1)

	chat, err := New(agents(a), WithAutomaticReset(true), WithTermination(iteration))
	require.NoError(t, err)

	_, err = chat.Invoke(context.Background(), "first")
	require.NoError(t, err)

	res, err := chat.Invoke(context.Background(), "second")
	require.NoError(t, err)

	assert.Equal(t, ReasonTermination, res.Reason)
	assert.Equal(t, 1, res.Rounds)
	// history carries over, strategies start fresh
	assert.Len(t, res.History, 4)
	assert.Equal(t, 1, iteration.Count())
}

func TestGroupChat_CancelDuringFunctionBatch(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once

	reg := tool.NewRegistry()
	wait := tool.NewFunctionTool("wait", "Blocks until cancelled", nil, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		once.Do(func() { close(started) })
		<-tc.Context().Done()
		return nil, tc.Context().Err()
	})
	require.NoError(t, reg.AddPlugin(tool.NewPlugin("slow", "", wait)))

	writer := testutil.NewScriptedAgent("Writer", testutil.CallFunction("slow.wait", "{}"))

	chat, err := New(agents(writer), WithRegistry(reg))
	require.NoError(t, err)

	runID, msgs, results, err := chat.InvokeAsync(context.Background(), "start")
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("function never started")
	}

	require.NoError(t, chat.Cancel(runID))

	var streamed []core.Message
	for m := range msgs {
		streamed = append(streamed, m)
	}

	res := <-results
	assert.Equal(t, StatusCancelled, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)

	// neither the call nor a partial result batch was committed
	require.Len(t, res.History, 1)
	assert.Equal(t, core.RoleUser, res.History[0].Role)
	assert.Len(t, streamed, 1)

	assert.Error(t, chat.Cancel(runID))
	assert.False(t, chat.IsComplete())
}

func TestGroupChat_CancelDuringInvocation(t *testing.T) {
	slow := testutil.NewScriptedAgent("Slow").WithDelay(time.Minute)

	chat, err := New(agents(slow))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := chat.Invoke(ctx, "hurry")
	require.Error(t, err)

	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, res.History, 1)
	assert.Equal(t, 0, res.Rounds)
}

func TestGroupChat_FunctionCallsAreDispatched(t *testing.T) {
	reg := tool.NewRegistry()
	echo := tool.NewFunctionTool("y", "Echo", nil, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args, nil
	})
	require.NoError(t, reg.AddPlugin(tool.NewPlugin("x", "", echo)))

	writer := testutil.NewScriptedAgent("Writer",
		testutil.CallFunction("x.y", `{"a":1}`),
		testutil.Say("echo done"),
	)

	var (
		mu     sync.Mutex
		states []string
	)
	sink := core.EventSinkFunc(func(ev core.Event) {
		if ev.Type == core.EventStateChanged {
			mu.Lock()
			states = append(states, ev.State)
			mu.Unlock()
		}
	})

	chat, err := New(agents(writer), WithRegistry(reg), WithMaximumIterations(1), WithObserver(sink))
	require.NoError(t, err)

	res, err := chat.Invoke(context.Background(), "echo please")
	require.NoError(t, err)

	require.Len(t, res.History, 4)
	results := res.History[2].FunctionResults()
	require.Len(t, results, 1)
	assert.Equal(t, map[string]any{"a": float64(1)}, results[0].Result)
	assert.Equal(t, res.History[1].FunctionCalls()[0].ID, results[0].ID)
	assert.Equal(t, "echo done", res.Final.Text())

	assert.Equal(t, []string{
		string(StateSelecting),
		string(StateInvoking),
		string(StateDispatching),
		string(StateInvoking),
		string(StateAppending),
		string(StateTerminated),
	}, states)
}

func TestGroupChat_FatalErrors(t *testing.T) {
	t.Run("selection picks a stranger", func(t *testing.T) {
		stranger := testutil.NewScriptedAgent("Stranger")
		chat, err := New(agents(testutil.NewScriptedAgent("A")),
			WithSelection(selection.Func(func(context.Context, []core.Agent, []core.Message) (core.Agent, error) {
				return stranger, nil
			})),
		)
		require.NoError(t, err)

		res, err := chat.Invoke(context.Background(), "hi")
		require.Error(t, err)

		assert.Equal(t, StatusFailed, res.Status)
		assert.Equal(t, ReasonSelection, res.Reason)
		assert.ErrorIs(t, err, core.ErrUnknownParticipant)

		var selErr *core.SelectionError
		require.ErrorAs(t, err, &selErr)
		assert.Equal(t, "func", selErr.Strategy)
		assert.Len(t, res.History, 1)
		assert.Equal(t, 0, stranger.Invocations())
	})

	t.Run("selection error is wrapped", func(t *testing.T) {
		chat, err := New(agents(testutil.NewScriptedAgent("A")),
			WithSelection(selection.Func(func(context.Context, []core.Agent, []core.Message) (core.Agent, error) {
				return nil, errors.New("no idea")
			})),
		)
		require.NoError(t, err)

		_, err = chat.Invoke(context.Background(), "hi")

		var selErr *core.SelectionError
		assert.ErrorAs(t, err, &selErr)
	})

	t.Run("termination error keeps partial history", func(t *testing.T) {
		chat, err := New(agents(testutil.NewScriptedAgent("A")),
			WithTermination(termination.Func(func(context.Context, core.Agent, []core.Message) (bool, error) {
				return false, errors.New("oracle down")
			})),
		)
		require.NoError(t, err)

		res, err := chat.Invoke(context.Background(), "hi")

		var termErr *core.TerminationError
		require.ErrorAs(t, err, &termErr)
		assert.Equal(t, StatusFailed, res.Status)
		assert.Equal(t, ReasonTerminationError, res.Reason)
		assert.Len(t, res.History, 2)
		assert.False(t, chat.IsComplete())
	})

	t.Run("agent error", func(t *testing.T) {
		boom := errors.New("boom")
		chat, err := New(agents(
			testutil.NewScriptedAgent("A"),
			testutil.NewScriptedAgent("B", testutil.Fail(boom)),
		))
		require.NoError(t, err)

		res, err := chat.Invoke(context.Background(), "hi")
		require.ErrorIs(t, err, boom)

		assert.Equal(t, ReasonAgent, res.Reason)
		assert.Equal(t, 1, res.Rounds)
		assert.Len(t, res.History, 2)
	})
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, core.ErrNoParticipants)

	_, err = New(agents(testutil.NewScriptedAgent("A"), testutil.NewScriptedAgent("A")))
	assert.ErrorContains(t, err, "duplicate participant")

	_, err = New(agents(testutil.NewScriptedAgent("A")), WithHistory([]core.Message{
		testutil.NewMessageBuilder().Result("missing", "x.y", "1", "").Build(),
	}))
	assert.ErrorIs(t, err, core.ErrUnmatchedFunctionResult)
}

func TestGroupChat_ReducerShapesViewOnly(t *testing.T) {
	a := testutil.NewScriptedAgent("A")

	seed := testutil.NewHistoryBuilder().
		User("task").
		Agent("A", "one").
		Agent("A", "two").
		Agent("A", "three").
		Messages()

	chat, err := New(agents(a),
		WithHistory(seed),
		WithReducer(reducer.Truncate(2)),
		WithMaximumIterations(1),
	)
	require.NoError(t, err)

	res, err := chat.Invoke(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, res.History, 5)

	reqs := a.Requests()
	require.Len(t, reqs, 1)
	assert.Less(t, len(reqs[0].History), 4)
}

func TestGroupChat_PersistsHistory(t *testing.T) {
	store := session.NewInMemoryStore()

	chat, err := New(agents(testutil.NewScriptedAgent("A")),
		WithStore(store),
		WithChatID("chat-1"),
		WithMaximumIterations(3),
	)
	require.NoError(t, err)

	res, err := chat.Invoke(context.Background(), "hi")
	require.NoError(t, err)

	saved, err := store.Load(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, saved, len(res.History))
	for i := range saved {
		assert.Equal(t, res.History[i].ID, saved[i].ID)
		assert.Equal(t, res.History[i].Text(), saved[i].Text())
	}

	// a fresh chat resumes from the stored snapshot
	resumed, err := New(agents(testutil.NewScriptedAgent("A")), WithHistory(saved))
	require.NoError(t, err)
	assert.Len(t, resumed.History(), 4)
}

func TestGroupChat_InvokeAsyncStreamsMessages(t *testing.T) {
	var seen []core.Message

	chat, err := New(agents(testutil.NewScriptedAgent("A"), testutil.NewScriptedAgent("B")),
		WithMaximumIterations(2),
		WithOnMessage(func(m core.Message) { seen = append(seen, m) }),
	)
	require.NoError(t, err)

	_, msgs, results, err := chat.InvokeAsync(context.Background(), "hi")
	require.NoError(t, err)

	var authors []string
	for m := range msgs {
		authors = append(authors, m.Author)
	}

	res := <-results
	assert.True(t, res.Succeeded())
	assert.Equal(t, []string{"user", "A", "B"}, authors)
	assert.Len(t, seen, 3)
}

func TestGroupChat_Observability(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	obs, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()

	reg2 := tool.NewRegistry()
	noop := tool.NewFunctionTool("noop", "", nil, func(*core.ToolContext, map[string]any) (any, error) { return "ok", nil })
	require.NoError(t, reg2.AddPlugin(tool.NewPlugin("util", "", noop)))

	chat, err := New(
		agents(testutil.NewScriptedAgent("A", testutil.CallFunction("util.noop", "{}"), testutil.Say("done"))),
		WithRegistry(reg2),
		WithMaximumIterations(1),
		WithTracer(tp.Tracer("test")),
		WithLogger(logging.NewZapAdapter(zap.New(obs))),
		WithMetrics(metrics.NewRecorder("test", reg)),
	)
	require.NoError(t, err)

	_, err = chat.Invoke(context.Background(), "hi")
	require.NoError(t, err)

	names := map[string]bool{}
	for _, s := range sr.Ended() {
		names[s.Name()] = true
	}
	for _, want := range []string{"groupchat.run", "groupchat.round", "groupchat.select", "dispatch.batch"} {
		assert.True(t, names[want], "missing span %s", want)
	}

	assert.Equal(t, 1, logs.FilterMessage("groupchat.run.started").Len())
	assert.Equal(t, 1, logs.FilterMessage("groupchat.run.finished").Len())
	assert.Equal(t, 1, logs.FilterMessage("groupchat.agent.selected").Len())

	n, err := promtest.GatherAndCount(reg, "test_runs_finished_total", "test_function_calls_total", "test_rounds_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
