package config

import (
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/model"
	"github.com/hupe1980/agentchat/model/anthropic"
	"github.com/hupe1980/agentchat/model/openai"
	"github.com/hupe1980/agentchat/reducer"
	"github.com/hupe1980/agentchat/selection"
	"github.com/hupe1980/agentchat/termination"
)

// ErrOracleRequired is returned when a model-driven strategy is configured
// without an oracle model.
var ErrOracleRequired = errors.New("model-driven strategy requires an oracle model")

// BuildSelection constructs the configured selection strategy.
func BuildSelection(cfg *Config, oracle model.Model, logger logging.Logger) (selection.Strategy, error) {
	sc := cfg.Selection

	roundRobin := selection.NewRoundRobin(func(o *selection.RoundRobinOptions) {
		o.InitialAgent = sc.InitialAgent
	})

	switch sc.Type {
	case "", SelectionRoundRobin:
		return roundRobin, nil
	case SelectionKeyword:
		return selection.NewKeyword(sc.Rules, func(o *selection.KeywordOptions) {
			o.Fallback = roundRobin
		}), nil
	case SelectionModelDriven:
		if oracle == nil {
			return nil, fmt.Errorf("selection: %w", ErrOracleRequired)
		}
		return selection.NewModelDriven(oracle, func(o *selection.ModelDrivenOptions) {
			if sc.Prompt != "" {
				o.Prompt = sc.Prompt
			}
			o.MaxAttempts = cfg.Orchestration.OracleRetryAttempts
			o.HistoryLimit = sc.HistoryLimit
			o.Logger = logger
		}), nil
	default:
		return nil, fmt.Errorf("unknown selection type %q", sc.Type)
	}
}

// BuildTermination combines every enabled policy under one aggregator. It
// returns nil when no policy is enabled, leaving only the orchestrator's
// maximum_iterations bound.
func BuildTermination(cfg *Config, oracle model.Model, participants []core.AgentDescriptor, logger logging.Logger) (termination.Strategy, error) {
	tc := cfg.Termination

	condition, err := termination.ParseCondition(tc.AggregationCondition)
	if err != nil {
		return nil, err
	}

	var children []termination.Strategy

	if tc.Iteration.MaxIterations > 0 {
		children = append(children, termination.NewIteration(tc.Iteration.MaxIterations, func(o *termination.IterationOptions) {
			o.Agents = tc.Iteration.Agents
		}))
	}

	if len(tc.Keyword.Keywords) > 0 {
		children = append(children, termination.NewKeyword(tc.Keyword.Keywords, func(o *termination.KeywordOptions) {
			o.Agents = tc.Keyword.Agents
			o.LastN = tc.Keyword.LastN
			o.CaseSensitive = tc.Keyword.CaseSensitive
		}))
	}

	if tc.Time.Timeout > 0 {
		children = append(children, termination.NewTime(tc.Time.Timeout, func(o *termination.TimeOptions) {
			o.Agents = tc.Time.Agents
		}))
	}

	if tc.ModelDriven.Enabled {
		if oracle == nil {
			return nil, fmt.Errorf("termination: %w", ErrOracleRequired)
		}
		children = append(children, termination.NewModelDriven(oracle, func(o *termination.ModelDrivenOptions) {
			o.Agents = tc.ModelDriven.Agents
			if tc.ModelDriven.Prompt != "" {
				o.Prompt = tc.ModelDriven.Prompt
			}
			o.HistoryLimit = tc.ModelDriven.HistoryLimit
			o.MaxAttempts = cfg.Orchestration.OracleRetryAttempts
			o.Participants = participants
			o.Logger = logger
		}))
	}

	if len(children) == 0 {
		return nil, nil
	}

	return termination.NewAggregator(children, func(o *termination.AggregatorOptions) {
		o.Agents = tc.Agents
		o.Condition = condition
		o.Logger = logger
	}), nil
}

// BuildReducer returns the configured history reducer, or nil.
func BuildReducer(cfg ReducerConfig) core.HistoryReducer {
	var reducers []core.HistoryReducer

	if cfg.MaxMessages > 0 {
		reducers = append(reducers, reducer.Truncate(cfg.MaxMessages))
	}
	if cfg.MaxTokens > 0 {
		reducers = append(reducers, reducer.TokenBudget(cfg.MaxTokens, reducer.NewTiktokenCounter(cfg.Encoding)))
	}

	switch len(reducers) {
	case 0:
		return nil
	case 1:
		return reducers[0]
	default:
		return reducer.Chain(reducers...)
	}
}

// BuildModel creates the configured provider model wrapped by Guard. It
// returns nil when no provider is configured.
func BuildModel(cfg ModelConfig, logger logging.Logger) (model.Model, error) {
	var m model.Model

	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, nil
	case ProviderOpenAI:
		var reqOpts []option.RequestOption
		if cfg.APIKey != "" {
			reqOpts = append(reqOpts, option.WithAPIKey(cfg.APIKey))
		}
		client := openaisdk.NewClient(reqOpts...)
		m = openai.NewModelFromClient(&client, func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		})
	case ProviderAnthropic:
		m = anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}

	return Guard(m, cfg, logger), nil
}

// Guard wraps m with a circuit breaker when CircuitBreaker.MaxFailures is
// set and a rate limiter when RateLimit.RequestsPerSecond is set.
func Guard(m model.Model, cfg ModelConfig, logger logging.Logger) model.Model {
	if cfg.CircuitBreaker.MaxFailures > 0 {
		m = model.NewCircuitBreaker(m, cfg.CircuitBreaker, logger)
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		m = model.NewRateLimited(m, cfg.RateLimit)
	}
	return m
}
