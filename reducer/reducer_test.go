package reducer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/testutil"
)

// wordCounter counts whitespace separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) (int, error) { return len(strings.Fields(text)), nil }

func texts(msgs []core.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text()
	}
	return out
}

func TestTruncate(t *testing.T) {
	msgs := testutil.NewHistoryBuilder().
		User("task").
		Agent("A", "one").
		Agent("B", "two").
		Agent("A", "three").
		Messages()

	got, err := Truncate(2).Reduce(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, []string{"task", "two", "three"}, texts(got))

	got, err = Truncate(10).Reduce(context.Background(), msgs)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestTruncate_DoesNotSplitCallResultPairs(t *testing.T) {
	msgs := testutil.NewHistoryBuilder().
		User("task").
		Message(
			testutil.NewMessageBuilder().Author("A").Call("c1", "x.y", "{}").Build(),
			testutil.NewMessageBuilder().Result("c1", "x.y", "r", "").Build(),
		).
		Agent("A", "done").
		Messages()

	got, err := Truncate(2).Reduce(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.RoleUser, got[0].Role)
	assert.Equal(t, "done", got[1].Text())
}

func TestTokenBudget(t *testing.T) {
	msgs := testutil.NewHistoryBuilder().
		User("write a poem").
		Agent("A", "first draft with many words in it").
		Agent("B", "short").
		Agent("A", "final").
		Messages()

	// "user: write a poem" = 4 words + 4 overhead = 8; "B: short" = 6; "A: final" = 6
	got, err := TokenBudget(20, wordCounter{}).Reduce(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, []string{"write a poem", "short", "final"}, texts(got))

	got, err = TokenBudget(1000, wordCounter{}).Reduce(context.Background(), msgs)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestChain(t *testing.T) {
	msgs := testutil.NewHistoryBuilder().User("task").Agent("A", "1").Agent("A", "2").Agent("A", "3").Messages()

	got, err := Chain(Truncate(2), Truncate(1)).Reduce(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, []string{"task", "3"}, texts(got))
}

func TestTiktokenCounter(t *testing.T) {
	c := NewTiktokenCounter("gpt-4o")

	n, err := c.Count("hello world")
	if err != nil {
		t.Skip("tiktoken encoding not available: ", err)
	}
	assert.Positive(t, n)
}
