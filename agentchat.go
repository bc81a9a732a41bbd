// Package agentchat wires a complete group chat from configuration. Most
// applications:
//  1. Load a config.Config (defaults, YAML, AGENTCHAT_* environment)
//  2. Build their agents (model, function, human)
//  3. Call New and Invoke the returned chat
//
// Strategies, reducers, metrics and the oracle model are derived from the
// configuration; everything can be overridden through Options.
package agentchat

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/groupchat"
	"github.com/hupe1980/agentchat/logging"
	"github.com/hupe1980/agentchat/metrics"
	"github.com/hupe1980/agentchat/model"
	"github.com/hupe1980/agentchat/tool"
)

// Options overrides collaborators that cannot be expressed in configuration.
type Options struct {
	// Oracle backs model-driven strategies. When nil it is built from
	// config.Model.
	Oracle model.Model
	// Registry resolves function calls of every participant.
	Registry *tool.Registry
	Store    core.HistoryStore
	Human    core.HumanInput
	// Logger defaults to a zap logger built from config.Log.
	Logger logging.Logger
	// Registerer receives metrics when config.Metrics is enabled. Defaults
	// to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	Tracer     trace.Tracer
	// GroupChat is applied last and may override anything above.
	GroupChat []func(o *groupchat.Options)
}

// New builds a GroupChat over agents from cfg. A nil cfg selects
// config.DefaultConfig.
func New(agents []core.Agent, cfg *config.Config, optFns ...func(o *Options)) (*groupchat.GroupChat, error) {
	opts := Options{Registerer: prometheus.DefaultRegisterer}
	for _, fn := range optFns {
		fn(&opts)
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		zl, err := logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		logger = zl
	}

	oracle := opts.Oracle
	if oracle == nil {
		m, err := config.BuildModel(cfg.Model, logger)
		if err != nil {
			return nil, err
		}
		oracle = m
	} else {
		oracle = config.Guard(oracle, cfg.Model, logger)
	}

	sel, err := config.BuildSelection(cfg, oracle, logger)
	if err != nil {
		return nil, err
	}

	descriptors := make([]core.AgentDescriptor, len(agents))
	for i, a := range agents {
		descriptors[i] = a.Descriptor()
	}

	term, err := config.BuildTermination(cfg, oracle, descriptors, logger)
	if err != nil {
		return nil, err
	}

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder(cfg.Metrics.Namespace, opts.Registerer)
	}

	gcOpts := []func(o *groupchat.Options){
		groupchat.WithConfig(cfg.Orchestration.Config),
		groupchat.WithSelection(sel),
		groupchat.WithRegistry(opts.Registry),
		groupchat.WithReducer(config.BuildReducer(cfg.Reducer)),
		groupchat.WithStore(opts.Store),
		groupchat.WithHuman(opts.Human),
		groupchat.WithLogger(logger),
		groupchat.WithTracer(opts.Tracer),
		groupchat.WithMetrics(recorder),
	}
	if term != nil {
		gcOpts = append(gcOpts, groupchat.WithTermination(term))
	}
	gcOpts = append(gcOpts, opts.GroupChat...)

	return groupchat.New(agents, gcOpts...)
}

// NewFromFile loads configuration from path (plus AGENTCHAT_* environment
// overrides) and calls New.
func NewFromFile(agents []core.Agent, path string, optFns ...func(o *Options)) (*groupchat.GroupChat, error) {
	cfg, err := config.NewLoader().WithConfigPath(path).Load()
	if err != nil {
		return nil, err
	}
	return New(agents, cfg, optFns...)
}
