package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/util"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/model"
)

// DefaultSelectionPrompt is rendered with .participants (roster lines) and
// .names (comma separated names).
const DefaultSelectionPrompt = `You coordinate a group conversation. Decide which participant should speak next.

Participants:
{{.participants}}

Reply with only the participant name, one of: {{.names}}.
Alternatively reply with JSON of the form {"agent": "<name>"}.`

// ModelDrivenOptions configures ModelDriven.
type ModelDrivenOptions struct {
	// Prompt is a text/template; empty selects DefaultSelectionPrompt.
	Prompt string
	// MaxAttempts bounds oracle calls per decision.
	MaxAttempts int
	// HistoryLimit bounds the transcript sent to the oracle; 0 = all.
	HistoryLimit int
	Logger       logging.Logger
}

// ModelDriven asks an oracle model to name the next participant. Answers are
// parsed strictly; unparsable or unknown names are retried with a corrective
// message until MaxAttempts is spent.
type ModelDriven struct {
	oracle model.Model
	opts   ModelDrivenOptions
	logger logging.Logger
}

// NewModelDriven creates a ModelDriven strategy backed by oracle.
func NewModelDriven(oracle model.Model, optFns ...func(o *ModelDrivenOptions)) *ModelDriven {
	opts := ModelDrivenOptions{
		Prompt:      DefaultSelectionPrompt,
		MaxAttempts: 3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Prompt == "" {
		opts.Prompt = DefaultSelectionPrompt
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	return &ModelDriven{oracle: oracle, opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// Name implements Strategy.
func (s *ModelDriven) Name() string { return "model_driven" }

// Next implements Strategy.
func (s *ModelDriven) Next(ctx context.Context, participants []core.Agent, history []core.Message) (core.Agent, error) {
	if len(participants) == 0 {
		return nil, &core.SelectionError{Strategy: s.Name(), Err: core.ErrNoParticipants}
	}

	descs := make([]core.AgentDescriptor, len(participants))
	for i, p := range participants {
		descs[i] = p.Descriptor()
	}
	names := core.AgentNames(participants)

	instructions, err := util.RenderTemplate(s.opts.Prompt, map[string]any{
		"participants": model.Roster(descs),
		"names":        strings.Join(names, ", "),
	})
	if err != nil {
		return nil, &core.SelectionError{Strategy: s.Name(), Err: err}
	}

	transcript := model.Transcript(history, s.opts.HistoryLimit)
	if transcript == "" {
		transcript = "(no messages yet)"
	}

	msgs := []core.Message{core.NewUserMessage("Conversation so far:\n" + transcript + "\n\nWho speaks next?")}

	var lastErr error

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		answer, err := model.CompleteText(ctx, s.oracle, model.Request{Instructions: instructions, Messages: msgs})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			s.logger.Warn("selection.oracle.error", "attempt", attempt, "error", err.Error())
			continue
		}

		if a, ok := ParseAgentAnswer(answer, participants); ok {
			s.logger.Debug("selection.oracle.selected", "agent", a.Name(), "attempt", attempt)
			return a, nil
		}

		lastErr = fmt.Errorf("unusable answer %q", answer)
		s.logger.Warn("selection.oracle.unparsable", "attempt", attempt, "answer", answer)

		msgs = append(msgs,
			core.NewTextMessage(core.RoleAgent, "", answer),
			core.NewUserMessage(fmt.Sprintf("%q is not a participant. Reply with exactly one of: %s.", strings.TrimSpace(answer), strings.Join(names, ", "))),
		)
	}

	return nil, &core.SelectionError{
		Strategy: s.Name(),
		Err:      fmt.Errorf("%w after %d attempts: %w", core.ErrOracleRetriesExhausted, s.opts.MaxAttempts, lastErr),
	}
}

// ParseAgentAnswer resolves an oracle answer to a participant. Accepted
// forms are the exact name (surrounding quotes, backticks and a trailing
// period are ignored) and a JSON object {"agent": name}.
func ParseAgentAnswer(answer string, participants []core.Agent) (core.Agent, bool) {
	s := strings.TrimSpace(answer)
	s = strings.TrimPrefix(s, "```json")
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "{") {
		var v struct {
			Agent string `json:"agent"`
		}
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, false
		}
		s = v.Agent
	}

	s = strings.Trim(strings.TrimSuffix(s, "."), `"' `)

	for _, p := range participants {
		if p.Name() == s {
			return p, true
		}
	}

	return nil, false
}

// IsExhausted reports whether err came from a spent oracle retry budget.
func IsExhausted(err error) bool { return errors.Is(err, core.ErrOracleRetriesExhausted) }
