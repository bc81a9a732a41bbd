package termination

import (
	"context"
	"strings"

	"github.com/hupe1980/agentchat/core"
)

// KeywordOptions configures Keyword.
type KeywordOptions struct {
	Scope
	// LastN is the number of most recent agent messages inspected.
	LastN         int
	CaseSensitive bool
}

// Keyword terminates when one of the markers appears in the most recent
// agent messages.
type Keyword struct {
	markers []string
	opts    KeywordOptions
}

// NewKeyword creates a Keyword strategy.
func NewKeyword(markers []string, optFns ...func(o *KeywordOptions)) *Keyword {
	opts := KeywordOptions{LastN: 1}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.LastN < 1 {
		opts.LastN = 1
	}

	return &Keyword{markers: markers, opts: opts}
}

// Name implements Strategy.
func (s *Keyword) Name() string { return "keyword" }

// ShouldTerminate implements Strategy.
func (s *Keyword) ShouldTerminate(_ context.Context, agent core.Agent, history []core.Message) (bool, error) {
	if !s.opts.admits(agent) {
		return false, nil
	}

	seen := 0
	for i := len(history) - 1; i >= 0 && seen < s.opts.LastN; i-- {
		m := history[i]
		if m.Role != core.RoleAgent {
			continue
		}
		seen++

		if s.contains(m.Text()) {
			return true, nil
		}
	}

	return false, nil
}

func (s *Keyword) contains(text string) bool {
	if !s.opts.CaseSensitive {
		text = strings.ToLower(text)
	}

	for _, marker := range s.markers {
		if marker == "" {
			continue
		}
		if !s.opts.CaseSensitive {
			marker = strings.ToLower(marker)
		}
		if strings.Contains(text, marker) {
			return true
		}
	}

	return false
}

// Reset implements Strategy.
func (s *Keyword) Reset() {}
