package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/testutil"
	"github.com/hupe1980/agentchat/model"
	"github.com/hupe1980/agentchat/selection"
	"github.com/hupe1980/agentchat/termination"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 99, cfg.Orchestration.MaximumIterations)
	assert.False(t, cfg.Orchestration.AutomaticReset)
	assert.Equal(t, 5, cfg.Orchestration.MaxAutoInvokeAttempts)
	assert.Equal(t, 3, cfg.Orchestration.OracleRetryAttempts)
	assert.Equal(t, "ALL", cfg.Termination.AggregationCondition)
	assert.Equal(t, SelectionRoundRobin, cfg.Selection.Type)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 99, cfg.Orchestration.MaximumIterations)
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
orchestration:
  maximum_iterations: 12
  automatic_reset: true
  oracle_retry_attempts: 2
selection:
  type: keyword
  rules:
    - keywords: ["review"]
      target: Reviewer
termination:
  aggregation_condition: any
  iteration:
    max_iterations: 10
    agents: [Reviewer]
  keyword:
    keywords: [APPROVED]
    agents: [Reviewer]
  time:
    timeout: 2m
log:
  level: debug
`), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Orchestration.MaximumIterations)
	assert.True(t, cfg.Orchestration.AutomaticReset)
	assert.Equal(t, 5, cfg.Orchestration.MaxAutoInvokeAttempts, "unset keys keep defaults")
	assert.Equal(t, 2, cfg.Orchestration.OracleRetryAttempts)
	require.Len(t, cfg.Selection.Rules, 1)
	assert.Equal(t, "Reviewer", cfg.Selection.Rules[0].Target)
	assert.Equal(t, []string{"Reviewer"}, cfg.Termination.Iteration.Agents)
	assert.Equal(t, 2*time.Minute, cfg.Termination.Time.Timeout)
	assert.Equal(t, 1, cfg.Termination.Keyword.LastN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.Orchestration.MaximumIterations)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("orchestration:\n  maximum_iterations: 12\n"), 0o600))

	t.Setenv("TEST_ORCHESTRATION_MAXIMUM_ITERATIONS", "7")
	t.Setenv("TEST_ORCHESTRATION_AUTOMATIC_RESET", "true")
	t.Setenv("TEST_TERMINATION_AGGREGATION_CONDITION", "ANY")
	t.Setenv("TEST_TERMINATION_KEYWORD_KEYWORDS", "done, approved")
	t.Setenv("TEST_TERMINATION_TIME_TIMEOUT", "90s")
	t.Setenv("TEST_MODEL_RATE_LIMIT_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("TEST_MODEL_CIRCUIT_BREAKER_MAX_FAILURES", "4")

	cfg, err := NewLoader().WithConfigPath(path).WithEnvPrefix("TEST").Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Orchestration.MaximumIterations)
	assert.True(t, cfg.Orchestration.AutomaticReset)
	assert.Equal(t, "ANY", cfg.Termination.AggregationCondition)
	assert.Equal(t, []string{"done", "approved"}, cfg.Termination.Keyword.Keywords)
	assert.Equal(t, 90*time.Second, cfg.Termination.Time.Timeout)
	assert.Equal(t, 2.5, cfg.Model.RateLimit.RequestsPerSecond)
	assert.Equal(t, uint32(4), cfg.Model.CircuitBreaker.MaxFailures)
}

func TestLoader_InvalidEnv(t *testing.T) {
	t.Setenv("TEST_ORCHESTRATION_MAXIMUM_ITERATIONS", "many")

	_, err := NewLoader().WithEnvPrefix("TEST").Load()
	assert.ErrorContains(t, err, "TEST_ORCHESTRATION_MAXIMUM_ITERATIONS")
}

func TestLoader_Validation(t *testing.T) {
	t.Run("builtin", func(t *testing.T) {
		t.Setenv("TEST_TERMINATION_AGGREGATION_CONDITION", "SOME")
		t.Setenv("TEST_SELECTION_TYPE", "dice")

		_, err := NewLoader().WithEnvPrefix("TEST").Load()
		require.Error(t, err)
		assert.ErrorContains(t, err, "aggregation_condition")
		assert.ErrorContains(t, err, "dice")
	})

	t.Run("custom", func(t *testing.T) {
		_, err := NewLoader().WithValidator(func(c *Config) error {
			if !c.Metrics.Enabled {
				return assert.AnError
			}
			return nil
		}).Load()
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestBuildSelection(t *testing.T) {
	cfg := DefaultConfig()

	s, err := BuildSelection(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &selection.RoundRobin{}, s)

	cfg.Selection.Type = SelectionKeyword
	cfg.Selection.Rules = []selection.Rule{{Keywords: []string{"x"}, Target: "A"}}
	s, err = BuildSelection(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "keyword", s.Name())

	cfg.Selection.Type = SelectionModelDriven
	_, err = BuildSelection(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrOracleRequired)

	s, err = BuildSelection(cfg, model.NewMockModel("oracle"), nil)
	require.NoError(t, err)
	assert.Equal(t, "model_driven", s.Name())
}

func TestBuildTermination(t *testing.T) {
	cfg := DefaultConfig()

	s, err := BuildTermination(cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	cfg.Termination.AggregationCondition = "any"
	cfg.Termination.Iteration.MaxIterations = 10
	cfg.Termination.Keyword.Keywords = []string{"APPROVED"}
	cfg.Termination.Time.Timeout = time.Hour

	s, err = BuildTermination(cfg, nil, nil, nil)
	require.NoError(t, err)

	agg, ok := s.(*termination.Aggregator)
	require.True(t, ok)
	assert.Equal(t, termination.Any, agg.Condition())

	var names []string
	for _, c := range agg.Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"iteration", "keyword", "time"}, names)

	cfg.Termination.ModelDriven.Enabled = true
	_, err = BuildTermination(cfg, nil, nil, nil)
	assert.ErrorIs(t, err, ErrOracleRequired)

	s, err = BuildTermination(cfg, model.NewMockModel("oracle"), []core.AgentDescriptor{{Name: "A"}}, nil)
	require.NoError(t, err)
	assert.Len(t, s.(*termination.Aggregator).Children(), 4)
}

func TestBuild_OracleUsesDefaultPrompts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Selection.Type = SelectionModelDriven
	cfg.Termination.ModelDriven.Enabled = true

	team := []core.Agent{testutil.NewScriptedAgent("Writer"), testutil.NewScriptedAgent("Reviewer")}
	descs := []core.AgentDescriptor{team[0].Descriptor(), team[1].Descriptor()}
	oracle := model.NewMockModel("oracle").EnqueueText("Reviewer", "no")

	sel, err := BuildSelection(cfg, oracle, nil)
	require.NoError(t, err)
	term, err := BuildTermination(cfg, oracle, descs, nil)
	require.NoError(t, err)

	history := testutil.NewHistoryBuilder().User("go").Agent("Writer", "draft").Messages()

	next, err := sel.Next(context.Background(), team, history)
	require.NoError(t, err)
	assert.Equal(t, "Reviewer", next.Name())

	done, err := term.ShouldTerminate(context.Background(), next, history)
	require.NoError(t, err)
	assert.False(t, done)

	reqs := oracle.Requests()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.Contains(t, req.Instructions, "- Writer")
		assert.Contains(t, req.Instructions, "- Reviewer")
	}
	assert.Contains(t, reqs[0].Instructions, "Writer, Reviewer")
	assert.Contains(t, reqs[1].Instructions, `"yes" or "no"`)

	cfg.Selection.Prompt = "Pick one of {{.names}}."
	sel, err = BuildSelection(cfg, model.NewMockModel("custom").EnqueueText("Writer"), nil)
	require.NoError(t, err)
	_, err = sel.Next(context.Background(), team, history)
	require.NoError(t, err)
}

func TestBuildReducer(t *testing.T) {
	assert.Nil(t, BuildReducer(ReducerConfig{}))
	assert.NotNil(t, BuildReducer(ReducerConfig{MaxMessages: 5}))
	assert.NotNil(t, BuildReducer(ReducerConfig{MaxMessages: 5, MaxTokens: 100, Encoding: "cl100k_base"}))
}

func TestBuildModel(t *testing.T) {
	m, err := BuildModel(ModelConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = BuildModel(ModelConfig{Provider: "parrot"}, nil)
	assert.Error(t, err)

	m, err = BuildModel(ModelConfig{Provider: ProviderOpenAI, Name: "gpt-4o-mini", APIKey: "test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", m.Info().Provider)

	guarded := Guard(model.NewMockModel("oracle"), ModelConfig{
		RateLimit:      model.RateLimitConfig{RequestsPerSecond: 10, Burst: 1},
		CircuitBreaker: model.CircuitBreakerConfig{MaxFailures: 2},
	}, nil)
	assert.IsType(t, &model.RateLimitedModel{}, guarded)
}
