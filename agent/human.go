package agent

import (
	"errors"
	"strings"

	"github.com/hupe1980/agentchat/core"
)

// ErrNoHumanInput is returned when a HumanAgent runs without a collaborator.
var ErrNoHumanInput = errors.New("no human input configured")

// HumanAgent relays its turn to the run's core.HumanInput. The prompt is the
// directive text when present, otherwise Prompt.
type HumanAgent struct {
	BaseAgent
	Prompt string
}

// NewHumanAgent creates a HumanAgent.
func NewHumanAgent(name string) *HumanAgent {
	base := NewBaseAgent(name)
	base.description = "A human participant"
	return &HumanAgent{BaseAgent: base, Prompt: "Your turn:"}
}

// Invoke implements core.Agent. An empty answer produces no message.
func (a *HumanAgent) Invoke(rc *core.RunContext, req core.InvokeRequest) (<-chan core.Message, <-chan error) {
	return stream(rc, func(emit func(core.Message) bool) error {
		if rc.Human == nil {
			return ErrNoHumanInput
		}

		prompt := a.Prompt
		if req.Directive != nil && req.Directive.Text() != "" {
			prompt = req.Directive.Text()
		}

		answer, err := rc.Human.Ask(rc.Context, prompt, req.History)
		if err != nil {
			return err
		}

		if strings.TrimSpace(answer) == "" {
			return nil
		}

		emit(core.NewTextMessage(core.RoleAgent, a.Name(), answer))

		return nil
	})
}
