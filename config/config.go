// Package config loads group chat settings from defaults, a YAML file and
// environment variables, and builds strategies from them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentchat/groupchat"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/metrics"
	"github.com/hupe1980/agentchat/model"
	"github.com/hupe1980/agentchat/selection"
	"github.com/hupe1980/agentchat/termination"
)

// DefaultOracleRetryAttempts bounds oracle calls per selection or
// termination decision.
const DefaultOracleRetryAttempts = 3

// Config is the complete configuration of a group chat.
type Config struct {
	Orchestration OrchestrationConfig `yaml:"orchestration" env:"ORCHESTRATION"`
	Selection     SelectionConfig     `yaml:"selection" env:"SELECTION"`
	Termination   TerminationConfig   `yaml:"termination" env:"TERMINATION"`
	Log           logging.Config      `yaml:"log" env:"LOG"`
	Metrics       metrics.Config      `yaml:"metrics" env:"METRICS"`
	Model         ModelConfig         `yaml:"model" env:"MODEL"`
	Reducer       ReducerConfig       `yaml:"reducer" env:"REDUCER"`
}

// OrchestrationConfig holds the loop settings.
type OrchestrationConfig struct {
	groupchat.Config `yaml:",inline"`

	OracleRetryAttempts int `yaml:"oracle_retry_attempts" env:"ORACLE_RETRY_ATTEMPTS"`
}

// Selection strategy types.
const (
	SelectionRoundRobin  = "round_robin"
	SelectionKeyword     = "keyword"
	SelectionModelDriven = "model_driven"
)

// SelectionConfig configures the selection strategy.
type SelectionConfig struct {
	Type         string `yaml:"type" env:"TYPE"`
	InitialAgent string `yaml:"initial_agent" env:"INITIAL_AGENT"`
	// Rules are used by the keyword strategy. They are only read from YAML.
	Rules        []selection.Rule `yaml:"rules" env:"-"`
	Prompt       string           `yaml:"prompt" env:"PROMPT"`
	HistoryLimit int              `yaml:"history_limit" env:"HISTORY_LIMIT"`
}

// TerminationConfig configures the termination policies. Every enabled
// policy becomes a child of one aggregator.
type TerminationConfig struct {
	AggregationCondition string `yaml:"aggregation_condition" env:"AGGREGATION_CONDITION"`
	// Agents scopes the aggregator itself.
	Agents []string `yaml:"agents" env:"AGENTS"`

	Iteration   IterationConfig   `yaml:"iteration" env:"ITERATION"`
	Keyword     KeywordConfig     `yaml:"keyword" env:"KEYWORD"`
	Time        TimeConfig        `yaml:"time" env:"TIME"`
	ModelDriven ModelDrivenConfig `yaml:"model_driven" env:"MODEL_DRIVEN"`
}

// IterationConfig enables the iteration policy when MaxIterations > 0.
type IterationConfig struct {
	MaxIterations int      `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	Agents        []string `yaml:"agents" env:"AGENTS"`
}

// KeywordConfig enables the keyword policy when Keywords is not empty.
type KeywordConfig struct {
	Keywords      []string `yaml:"keywords" env:"KEYWORDS"`
	LastN         int      `yaml:"last_n" env:"LAST_N"`
	CaseSensitive bool     `yaml:"case_sensitive" env:"CASE_SENSITIVE"`
	Agents        []string `yaml:"agents" env:"AGENTS"`
}

// TimeConfig enables the time policy when Timeout > 0.
type TimeConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Agents  []string      `yaml:"agents" env:"AGENTS"`
}

// ModelDrivenConfig enables the oracle policy.
type ModelDrivenConfig struct {
	Enabled      bool     `yaml:"enabled" env:"ENABLED"`
	Prompt       string   `yaml:"prompt" env:"PROMPT"`
	HistoryLimit int      `yaml:"history_limit" env:"HISTORY_LIMIT"`
	Agents       []string `yaml:"agents" env:"AGENTS"`
}

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ModelConfig describes the oracle model and its guards.
type ModelConfig struct {
	// Provider is empty when the oracle is supplied in code.
	Provider       string                     `yaml:"provider" env:"PROVIDER"`
	Name           string                     `yaml:"name" env:"NAME"`
	APIKey         string                     `yaml:"api_key" env:"API_KEY"`
	Temperature    float64                    `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens      int64                      `yaml:"max_tokens" env:"MAX_TOKENS"`
	RateLimit      model.RateLimitConfig      `yaml:"rate_limit" env:"RATE_LIMIT"`
	CircuitBreaker model.CircuitBreakerConfig `yaml:"circuit_breaker" env:"CIRCUIT_BREAKER"`
}

// ReducerConfig shapes the history view agents see. Zero values disable
// the corresponding reducer.
type ReducerConfig struct {
	MaxMessages int `yaml:"max_messages" env:"MAX_MESSAGES"`
	MaxTokens   int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// Encoding is a tiktoken model or encoding name.
	Encoding string `yaml:"encoding" env:"ENCODING"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Orchestration: OrchestrationConfig{
			Config:              groupchat.DefaultConfig(),
			OracleRetryAttempts: DefaultOracleRetryAttempts,
		},
		Selection: SelectionConfig{Type: SelectionRoundRobin},
		Termination: TerminationConfig{
			AggregationCondition: string(termination.All),
			Keyword:              KeywordConfig{LastN: 1},
		},
		Log:     logging.DefaultConfig(),
		Metrics: metrics.DefaultConfig(),
		Model:   ModelConfig{Temperature: 0.7},
		Reducer: ReducerConfig{Encoding: "cl100k_base"},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Orchestration.MaximumIterations <= 0 {
		errs = append(errs, errors.New("orchestration.maximum_iterations must be positive"))
	}
	if c.Orchestration.OracleRetryAttempts <= 0 {
		errs = append(errs, errors.New("orchestration.oracle_retry_attempts must be positive"))
	}
	if c.Orchestration.MaxParallelFunctions < 0 {
		errs = append(errs, errors.New("orchestration.max_parallel_functions must not be negative"))
	}

	switch c.Selection.Type {
	case "", SelectionRoundRobin, SelectionModelDriven:
	case SelectionKeyword:
		if len(c.Selection.Rules) == 0 {
			errs = append(errs, errors.New("selection.rules are required for keyword selection"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown selection.type %q", c.Selection.Type))
	}

	if _, err := termination.ParseCondition(c.Termination.AggregationCondition); err != nil {
		errs = append(errs, fmt.Errorf("termination.aggregation_condition: %w", err))
	}
	if c.Termination.Iteration.MaxIterations < 0 {
		errs = append(errs, errors.New("termination.iteration.max_iterations must not be negative"))
	}
	if c.Termination.Time.Timeout < 0 {
		errs = append(errs, errors.New("termination.time.timeout must not be negative"))
	}

	switch strings.ToLower(c.Model.Provider) {
	case "", ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown model.provider %q", c.Model.Provider))
	}

	if c.Reducer.MaxMessages < 0 || c.Reducer.MaxTokens < 0 {
		errs = append(errs, errors.New("reducer limits must not be negative"))
	}

	return errors.Join(errs...)
}
