// Package selection decides which participant acts next in a group chat.
//
// Strategies derive their choice from the history they receive, so the same
// history yields the same choice (ModelDriven is as deterministic as its
// oracle). RoundRobin additionally remembers its last pick against the
// history it saw, so a participant whose turn commits nothing is still passed
// over; Reset forgets it.
package selection

import (
	"context"

	"github.com/hupe1980/agentchat/core"
)

// Strategy picks the next agent from participants given the conversation so
// far. The returned agent must be one of participants.
type Strategy interface {
	Name() string
	Next(ctx context.Context, participants []core.Agent, history []core.Message) (core.Agent, error)
}

// Func adapts a function to Strategy. The orchestrator verifies the result is
// a participant.
type Func func(ctx context.Context, participants []core.Agent, history []core.Message) (core.Agent, error)

// Name implements Strategy.
func (Func) Name() string { return "func" }

// Next implements Strategy.
func (f Func) Next(ctx context.Context, participants []core.Agent, history []core.Message) (core.Agent, error) {
	if len(participants) == 0 {
		return nil, &core.SelectionError{Strategy: "func", Err: core.ErrNoParticipants}
	}
	return f(ctx, participants, history)
}

// lastSpeaker returns the participant index of the author of the most recent
// agent message, or -1.
func lastSpeaker(participants []core.Agent, history []core.Message) int {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role != core.RoleAgent || m.Author == "" {
			continue
		}
		for j, p := range participants {
			if p.Name() == m.Author {
				return j
			}
		}
	}
	return -1
}

// lastContent returns the most recent user or agent message.
func lastContent(history []core.Message) (core.Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if r := history[i].Role; r == core.RoleAgent || r == core.RoleUser {
			return history[i], true
		}
	}
	return core.Message{}, false
}
