package selection

import (
	"context"
	"strings"

	"github.com/hupe1980/agentchat/core"
)

// Rule routes the conversation to Target when the last message contains any
// of Keywords. From optionally restricts the rule to messages authored by a
// given participant.
type Rule struct {
	Keywords      []string `yaml:"keywords"`
	From          string   `yaml:"from"`
	Target        string   `yaml:"target"`
	CaseSensitive bool     `yaml:"case_sensitive"`
}

func (r Rule) matches(m core.Message) bool {
	if r.From != "" && !strings.EqualFold(r.From, m.Author) {
		return false
	}

	text := m.Text()
	if !r.CaseSensitive {
		text = strings.ToLower(text)
	}

	for _, kw := range r.Keywords {
		if kw == "" {
			continue
		}
		if !r.CaseSensitive {
			kw = strings.ToLower(kw)
		}
		if strings.Contains(text, kw) {
			return true
		}
	}

	return false
}

// KeywordOptions configures Keyword.
type KeywordOptions struct {
	Rules []Rule
	// Fallback decides when no rule matches. Defaults to RoundRobin.
	Fallback Strategy
}

// Keyword is a rule based strategy. Rules are evaluated in order against the
// last user or agent message; the first match naming a participant wins.
type Keyword struct {
	opts KeywordOptions
}

// NewKeyword creates a Keyword strategy.
func NewKeyword(rules []Rule, optFns ...func(o *KeywordOptions)) *Keyword {
	opts := KeywordOptions{Rules: rules}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Fallback == nil {
		opts.Fallback = NewRoundRobin()
	}

	return &Keyword{opts: opts}
}

// Name implements Strategy.
func (s *Keyword) Name() string { return "keyword" }

// Next implements Strategy.
func (s *Keyword) Next(ctx context.Context, participants []core.Agent, history []core.Message) (core.Agent, error) {
	if len(participants) == 0 {
		return nil, &core.SelectionError{Strategy: s.Name(), Err: core.ErrNoParticipants}
	}

	if last, ok := lastContent(history); ok {
		for _, r := range s.opts.Rules {
			if !r.matches(last) {
				continue
			}
			if a, ok := core.FindAgent(participants, r.Target); ok {
				return a, nil
			}
		}
	}

	return s.opts.Fallback.Next(ctx, participants, history)
}

// Reset resets the fallback strategy when it keeps state.
func (s *Keyword) Reset() {
	if r, ok := s.opts.Fallback.(interface{ Reset() }); ok {
		r.Reset()
	}
}
