// Package reducer shrinks the conversation view handed to an agent
// invocation. Reducers never touch the canonical history; they return a new
// slice. All reducers keep the first user message (the task) and never split
// a function call message from its results.
package reducer

import (
	"context"

	"github.com/hupe1980/agentchat/core"
)

// Func adapts a function to core.HistoryReducer.
type Func func(ctx context.Context, msgs []core.Message) ([]core.Message, error)

// Reduce implements core.HistoryReducer.
func (f Func) Reduce(ctx context.Context, msgs []core.Message) ([]core.Message, error) {
	return f(ctx, msgs)
}

// Chain applies reducers in order.
func Chain(reducers ...core.HistoryReducer) core.HistoryReducer {
	return Func(func(ctx context.Context, msgs []core.Message) ([]core.Message, error) {
		var err error
		for _, r := range reducers {
			if msgs, err = r.Reduce(ctx, msgs); err != nil {
				return nil, err
			}
		}
		return msgs, nil
	})
}

// Truncate keeps the first user message and at most the n most recent
// messages.
func Truncate(n int) core.HistoryReducer {
	return Func(func(_ context.Context, msgs []core.Message) ([]core.Message, error) {
		if n <= 0 || len(msgs) <= n {
			return msgs, nil
		}
		return assemble(msgs, len(msgs)-n), nil
	})
}

// firstTask returns the index of the first user message, or -1.
func firstTask(msgs []core.Message) int {
	for i, m := range msgs {
		if m.Role == core.RoleUser {
			return i
		}
	}
	return -1
}

// assemble builds head + msgs[start:], moving start forward past tool
// results whose call would be cut off.
func assemble(msgs []core.Message, start int) []core.Message {
	for start < len(msgs) && msgs[start].Role == core.RoleTool {
		start++
	}

	out := make([]core.Message, 0, len(msgs)-start+1)
	if head := firstTask(msgs); head >= 0 && head < start {
		out = append(out, msgs[head])
	}

	return append(out, msgs[start:]...)
}
