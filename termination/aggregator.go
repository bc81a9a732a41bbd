package termination

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/logging"
)

// Condition reduces child decisions.
type Condition string

const (
	// All terminates when every child agrees.
	All Condition = "ALL"
	// Any terminates when at least one child agrees.
	Any Condition = "ANY"
)

// ParseCondition parses "ALL" or "ANY" (any case). Empty selects All.
func ParseCondition(s string) (Condition, error) {
	switch Condition(strings.ToUpper(strings.TrimSpace(s))) {
	case "", All:
		return All, nil
	case Any:
		return Any, nil
	default:
		return "", fmt.Errorf("unknown aggregation condition %q", s)
	}
}

// AggregatorOptions configures Aggregator.
type AggregatorOptions struct {
	Scope
	Condition Condition
	Logger    logging.Logger
}

// Aggregator combines child strategies. All children are evaluated
// concurrently on every check; there is no short-circuit, so stateful
// children (Iteration) observe every in-scope turn. Results are reduced in
// registration order. An aggregator without children never terminates.
type Aggregator struct {
	children []Strategy
	opts     AggregatorOptions
	logger   logging.Logger
}

// NewAggregator creates an Aggregator over children.
func NewAggregator(children []Strategy, optFns ...func(o *AggregatorOptions)) *Aggregator {
	opts := AggregatorOptions{Condition: All}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Condition == "" {
		opts.Condition = All
	}

	return &Aggregator{children: children, opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// AnyOf is shorthand for an Aggregator with condition Any.
func AnyOf(children ...Strategy) *Aggregator {
	return NewAggregator(children, func(o *AggregatorOptions) { o.Condition = Any })
}

// AllOf is shorthand for an Aggregator with condition All.
func AllOf(children ...Strategy) *Aggregator {
	return NewAggregator(children)
}

// Name implements Strategy.
func (s *Aggregator) Name() string { return "aggregator" }

// Condition returns the reduction mode.
func (s *Aggregator) Condition() Condition { return s.opts.Condition }

// Children returns the child strategies in registration order.
func (s *Aggregator) Children() []Strategy { return append([]Strategy(nil), s.children...) }

// ShouldTerminate implements Strategy. Child errors are joined and returned
// with a false decision.
func (s *Aggregator) ShouldTerminate(ctx context.Context, agent core.Agent, history []core.Message) (bool, error) {
	if !s.opts.admits(agent) || len(s.children) == 0 {
		return false, nil
	}

	decisions := make([]bool, len(s.children))
	errs := make([]error, len(s.children))

	// every child runs to completion; errors are collected, not propagated
	var g errgroup.Group

	for i, child := range s.children {
		g.Go(func() error {
			decisions[i], errs[i] = evaluate(ctx, child, agent, history)
			return nil
		})
	}

	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("termination.aggregator.failed", "agent", agent.Name(), "error", err.Error())
		return false, err
	}

	result := s.reduce(decisions)

	s.logger.Debug(
		"termination.aggregator.evaluated",
		"agent", agent.Name(),
		"condition", string(s.opts.Condition),
		"decisions", decisions,
		"terminate", result,
	)

	return result, nil
}

func (s *Aggregator) reduce(decisions []bool) bool {
	if s.opts.Condition == Any {
		for _, d := range decisions {
			if d {
				return true
			}
		}
		return false
	}

	for _, d := range decisions {
		if !d {
			return false
		}
	}
	return true
}

// Reset implements Strategy; it resets every child.
func (s *Aggregator) Reset() {
	for _, c := range s.children {
		c.Reset()
	}
}

func evaluate(ctx context.Context, s Strategy, agent core.Agent, history []core.Message) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.TerminationError{Strategy: s.Name(), Err: fmt.Errorf("panic recovered: %v", r)}
		}
	}()

	return s.ShouldTerminate(ctx, agent, history)
}
