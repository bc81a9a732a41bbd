package agent

import (
	"fmt"

	"github.com/hupe1980/agentchat/core"
)

// NormalizeInput converts loosely typed chat input into messages. It accepts
// nil, a string, a core.Message, a *core.Message, []core.Message or
// []string. Strings become user messages. Empty messages are dropped.
func NormalizeInput(input any) ([]core.Message, error) {
	var msgs []core.Message

	switch v := input.(type) {
	case nil:
		return nil, nil
	case string:
		msgs = []core.Message{core.NewUserMessage(v)}
	case []string:
		for _, s := range v {
			msgs = append(msgs, core.NewUserMessage(s))
		}
	case core.Message:
		msgs = []core.Message{v}
	case *core.Message:
		if v == nil {
			return nil, nil
		}
		msgs = []core.Message{*v}
	case []core.Message:
		msgs = v
	default:
		return nil, fmt.Errorf("unsupported input type %T", input)
	}

	return FilterEmpty(msgs), nil
}

// FilterEmpty returns msgs without content-less messages.
func FilterEmpty(msgs []core.Message) []core.Message {
	out := make([]core.Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.IsEmpty() {
			out = append(out, m)
		}
	}
	return out
}
