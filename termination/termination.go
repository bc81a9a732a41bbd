// Package termination decides when a group chat has finished its task.
//
// Every strategy can be scoped to a subset of agents: for an agent outside
// the scope it answers false without evaluating its policy (and without
// touching its state). Strategies are stateful per instance; Reset clears
// that state between runs.
package termination

import (
	"context"
	"slices"
	"strings"

	"github.com/hupe1980/agentchat/core"
)

// Strategy decides whether the chat should stop after agent's turn.
type Strategy interface {
	Name() string
	ShouldTerminate(ctx context.Context, agent core.Agent, history []core.Message) (bool, error)
	Reset()
}

// Scope restricts a strategy to the named agents. An empty scope includes
// every agent.
type Scope struct {
	Agents []string `yaml:"agents"`
}

// Includes reports whether the named agent is in scope (case-insensitive).
func (s Scope) Includes(name string) bool {
	if len(s.Agents) == 0 {
		return true
	}
	return slices.ContainsFunc(s.Agents, func(a string) bool { return strings.EqualFold(a, name) })
}

func (s Scope) admits(agent core.Agent) bool {
	return agent != nil && s.Includes(agent.Name())
}

// Func adapts a function to Strategy.
type Func func(ctx context.Context, agent core.Agent, history []core.Message) (bool, error)

// Name implements Strategy.
func (Func) Name() string { return "func" }

// ShouldTerminate implements Strategy.
func (f Func) ShouldTerminate(ctx context.Context, agent core.Agent, history []core.Message) (bool, error) {
	return f(ctx, agent, history)
}

// Reset implements Strategy.
func (Func) Reset() {}

// Scoped restricts any strategy to scope.
func Scoped(s Strategy, scope Scope) Strategy { return &scoped{Strategy: s, scope: scope} }

type scoped struct {
	Strategy
	scope Scope
}

func (s *scoped) ShouldTerminate(ctx context.Context, agent core.Agent, history []core.Message) (bool, error) {
	if !s.scope.admits(agent) {
		return false, nil
	}
	return s.Strategy.ShouldTerminate(ctx, agent, history)
}
