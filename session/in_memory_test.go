package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/core"
)

// Interface compliance (compile-time assertion)
var _ core.HistoryStore = (*InMemoryStore)(nil)

func TestInMemoryStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, err := s.Load(ctx, "chat")
	require.ErrorIs(t, err, ErrNotFound)

	msgs := []core.Message{core.NewUserMessage("hi")}
	require.NoError(t, s.Save(ctx, "chat", msgs))

	msgs[0].Author = "mutated"

	got, err := s.Load(ctx, "chat")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "user", got[0].Author)

	got[0].Author = "mutated again"
	again, _ := s.Load(ctx, "chat")
	assert.Equal(t, "user", again[0].Author)

	assert.Equal(t, []string{"chat"}, s.IDs())
	s.Delete("chat")
	assert.Empty(t, s.IDs())
}

func TestInMemoryStore_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, NewInMemoryStore().Save(ctx, "x", nil), context.Canceled)
}
