package termination

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/util"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/model"
)

// DefaultTerminationPrompt is rendered with .participants and .agent (the
// agent that just spoke).
const DefaultTerminationPrompt = `You monitor a group conversation between these participants:
{{.participants}}

Decide whether the task has been completed after the last turn by {{.agent}}.
Answer with exactly "yes" or "no".`

// ModelDrivenOptions configures ModelDriven.
type ModelDrivenOptions struct {
	Scope
	// Prompt is a text/template; empty selects DefaultTerminationPrompt.
	Prompt string
	// MaxAttempts bounds oracle calls per decision.
	MaxAttempts int
	// HistoryLimit bounds the transcript sent to the oracle; 0 = all.
	HistoryLimit int
	// Participants describes the roster shown to the oracle. When empty only
	// the evaluated agent is listed.
	Participants []core.AgentDescriptor
	Logger       logging.Logger
}

// ModelDriven asks an oracle a strict yes/no question. Unparsable answers are
// retried; a spent budget is a policy-fatal TerminationError.
type ModelDriven struct {
	oracle model.Model
	opts   ModelDrivenOptions
	logger logging.Logger
}

// NewModelDriven creates a ModelDriven strategy backed by oracle.
func NewModelDriven(oracle model.Model, optFns ...func(o *ModelDrivenOptions)) *ModelDriven {
	opts := ModelDrivenOptions{
		Prompt:      DefaultTerminationPrompt,
		MaxAttempts: 3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Prompt == "" {
		opts.Prompt = DefaultTerminationPrompt
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	return &ModelDriven{oracle: oracle, opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// Name implements Strategy.
func (s *ModelDriven) Name() string { return "model_driven" }

// ShouldTerminate implements Strategy.
func (s *ModelDriven) ShouldTerminate(ctx context.Context, agent core.Agent, history []core.Message) (bool, error) {
	if !s.opts.admits(agent) {
		return false, nil
	}

	roster := s.opts.Participants
	if len(roster) == 0 {
		roster = []core.AgentDescriptor{agent.Descriptor()}
	}

	instructions, err := util.RenderTemplate(s.opts.Prompt, map[string]any{
		"participants": model.Roster(roster),
		"agent":        agent.Name(),
	})
	if err != nil {
		return false, &core.TerminationError{Strategy: s.Name(), Err: err}
	}

	msgs := []core.Message{core.NewUserMessage("Conversation so far:\n" + model.Transcript(history, s.opts.HistoryLimit) + "\n\nIs the task complete?")}

	var lastErr error

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		answer, err := model.CompleteText(ctx, s.oracle, model.Request{Instructions: instructions, Messages: msgs})
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			lastErr = err
			s.logger.Warn("termination.oracle.error", "attempt", attempt, "error", err.Error())
			continue
		}

		if done, ok := ParseYesNo(answer); ok {
			s.logger.Debug("termination.oracle.answered", "agent", agent.Name(), "terminate", done, "attempt", attempt)
			return done, nil
		}

		lastErr = fmt.Errorf("unusable answer %q", answer)
		s.logger.Warn("termination.oracle.unparsable", "attempt", attempt, "answer", answer)

		msgs = append(msgs,
			core.NewTextMessage(core.RoleAgent, "", answer),
			core.NewUserMessage(`Answer with exactly "yes" or "no".`),
		)
	}

	return false, &core.TerminationError{
		Strategy: s.Name(),
		Err:      fmt.Errorf("%w after %d attempts: %w", core.ErrOracleRetriesExhausted, s.opts.MaxAttempts, lastErr),
	}
}

// Reset implements Strategy.
func (s *ModelDriven) Reset() {}

// ParseYesNo parses a strict yes/no oracle answer. Accepted forms are yes,
// no, true, false (any case, optional trailing period or quotes) and a JSON
// object {"terminate": bool}.
func ParseYesNo(answer string) (bool, bool) {
	s := strings.TrimSpace(answer)

	if strings.HasPrefix(s, "{") {
		var v struct {
			Terminate *bool `json:"terminate"`
		}
		if err := json.Unmarshal([]byte(s), &v); err != nil || v.Terminate == nil {
			return false, false
		}
		return *v.Terminate, true
	}

	s = strings.ToLower(strings.Trim(strings.TrimSuffix(s, "."), "\"'` "))

	switch s {
	case "yes", "true":
		return true, true
	case "no", "false":
		return false, true
	default:
		return false, false
	}
}
