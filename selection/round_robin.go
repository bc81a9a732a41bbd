package selection

import (
	"context"
	"sync"

	"github.com/hupe1980/agentchat/core"
)

// RoundRobinOptions configures RoundRobin.
type RoundRobinOptions struct {
	// InitialAgent speaks first when no participant has spoken yet. Empty
	// selects the first participant.
	InitialAgent string
}

// RoundRobin cycles through participants in order. The next agent is the one
// after the author of the last agent message, or after the last agent it
// picked when that agent's turn committed nothing.
type RoundRobin struct {
	opts RoundRobinOptions

	mu   sync.Mutex
	last pick
}

// pick remembers a selection together with the history it was made against.
type pick struct {
	agent  string
	length int
	tailID string
}

// NewRoundRobin creates a RoundRobin strategy.
func NewRoundRobin(optFns ...func(o *RoundRobinOptions)) *RoundRobin {
	opts := RoundRobinOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RoundRobin{opts: opts}
}

// Name implements Strategy.
func (s *RoundRobin) Name() string { return "round_robin" }

// Next implements Strategy.
func (s *RoundRobin) Next(_ context.Context, participants []core.Agent, history []core.Message) (core.Agent, error) {
	if len(participants) == 0 {
		return nil, &core.SelectionError{Strategy: s.Name(), Err: core.ErrNoParticipants}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.next(participants, history)
	s.last = pick{agent: next.Name(), length: len(history), tailID: tailID(history)}

	return next, nil
}

// Reset forgets the last pick.
func (s *RoundRobin) Reset() {
	s.mu.Lock()
	s.last = pick{}
	s.mu.Unlock()
}

func (s *RoundRobin) next(participants []core.Agent, history []core.Message) core.Agent {
	if i := s.silentPick(participants, history); i >= 0 {
		return participants[(i+1)%len(participants)]
	}

	if i := lastSpeaker(participants, history); i >= 0 {
		return participants[(i+1)%len(participants)]
	}

	if s.opts.InitialAgent != "" {
		if a, ok := core.FindAgent(participants, s.opts.InitialAgent); ok {
			return a
		}
	}

	return participants[0]
}

// silentPick returns the index of the last picked participant if history
// extends the history it was picked against and no participant has spoken
// since, or -1.
func (s *RoundRobin) silentPick(participants []core.Agent, history []core.Message) int {
	p := s.last
	if p.agent == "" || p.length == 0 || p.length > len(history) {
		return -1
	}
	if history[p.length-1].ID != p.tailID {
		return -1
	}
	if lastSpeaker(participants, history[p.length:]) >= 0 {
		return -1
	}

	for j, a := range participants {
		if a.Name() == p.agent {
			return j
		}
	}

	return -1
}

func tailID(history []core.Message) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].ID
}
