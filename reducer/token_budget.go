package reducer

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hupe1980/agentchat/core"
)

// Counter counts tokens of a text.
type Counter interface {
	Count(text string) (int, error)
}

// TiktokenCounter counts tokens with an OpenAI tiktoken encoding. The
// encoding is resolved lazily on first use and may require downloading
// BPE data.
type TiktokenCounter struct {
	model string

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktokenCounter creates a counter for a model name (e.g. "gpt-4o") or
// an encoding name (e.g. "cl100k_base").
func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

func (c *TiktokenCounter) init() error {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding(c.model)
		}
		if err != nil {
			c.initErr = fmt.Errorf("init tiktoken encoding for %s: %w", c.model, err)
			return
		}
		c.enc = enc
	})
	return c.initErr
}

// Count implements Counter.
func (c *TiktokenCounter) Count(text string) (int, error) {
	if err := c.init(); err != nil {
		return 0, err
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}

// perMessageOverhead approximates role and separator tokens per message.
const perMessageOverhead = 4

// TokenBudget keeps the first user message plus as many recent messages as
// fit into maxTokens. The first user message is always kept even when it
// alone exceeds the budget.
func TokenBudget(maxTokens int, counter Counter) core.HistoryReducer {
	return Func(func(ctx context.Context, msgs []core.Message) ([]core.Message, error) {
		if maxTokens <= 0 || len(msgs) == 0 {
			return msgs, nil
		}

		counts := make([]int, len(msgs))
		total := 0
		for i, m := range msgs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			n, err := counter.Count(renderForCount(m))
			if err != nil {
				return nil, err
			}
			counts[i] = n + perMessageOverhead
			total += counts[i]
		}

		if total <= maxTokens {
			return msgs, nil
		}

		budget := maxTokens
		head := firstTask(msgs)
		if head >= 0 {
			budget -= counts[head]
		}

		start := len(msgs)
		for i := len(msgs) - 1; i > head && i >= 0; i-- {
			if counts[i] > budget {
				break
			}
			budget -= counts[i]
			start = i
		}

		return assemble(msgs, start), nil
	})
}

func renderForCount(m core.Message) string {
	text := m.Author + ": " + m.Text()
	for _, c := range m.FunctionCalls() {
		text += " " + c.Name + " " + c.Arguments
	}
	for _, r := range m.FunctionResults() {
		text += " " + r.ResultString() + r.Error
	}
	return text
}
