package dispatch

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/tool"
)

// Executor resolves one batch of function calls. Implementations must:
//   - Respect rc.Context cancellation and discard the batch when cancelled
//   - Never panic (recover internally and report a failed result)
//   - Return exactly one result per call, in call order
type Executor interface {
	Execute(rc *core.RunContext, agent core.AgentDescriptor, calls []core.FunctionCall) ([]core.FunctionResult, error)
}

// ExecutorConfig configures the default parallel executor.
type ExecutorConfig struct {
	MaxParallel    int  // 0 or <1 => no explicit limit (len(calls))
	LogStartEvents bool // log a start line per function
}

// CallObserver is notified once per executed call.
type CallObserver interface {
	ObserveFunctionCall(agent, function string, success bool, dur time.Duration)
}

type parallelExecutor struct {
	registry *tool.Registry
	cfg      ExecutorConfig
	observer CallObserver
}

// NewParallelExecutor constructs an executor resolving calls against registry.
func NewParallelExecutor(registry *tool.Registry, cfg ExecutorConfig, observer CallObserver) Executor {
	if registry == nil {
		registry = tool.NewRegistry()
	}
	return &parallelExecutor{registry: registry, cfg: cfg, observer: observer}
}

func (e *parallelExecutor) Execute(rc *core.RunContext, agent core.AgentDescriptor, calls []core.FunctionCall) ([]core.FunctionResult, error) {
	n := len(calls)
	if n == 0 {
		return nil, nil
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]core.FunctionResult, n)
	batchStart := time.Now()

	// siblings must all finish, so the group never cancels on error
	var g errgroup.Group
	g.SetLimit(maxPar)

	for i, fc := range calls {
		if rc.Err() != nil {
			break
		}
		g.Go(func() error {
			if rc.Err() != nil {
				return nil
			}
			results[i] = e.executeOne(rc, agent, fc)
			return nil
		})
	}

	_ = g.Wait()

	if err := rc.Err(); err != nil {
		rc.LogWarn("dispatch.batch.discarded", "agent", agent.Name, "count", n, "error", err.Error())
		return nil, err
	}

	rc.LogDebug(
		"dispatch.batch.complete",
		"agent", agent.Name,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results, nil
}

func (e *parallelExecutor) executeOne(rc *core.RunContext, agent core.AgentDescriptor, fc core.FunctionCall) core.FunctionResult {
	if e.cfg.LogStartEvents {
		rc.LogInfo("dispatch.function.start", "agent", agent.Name, "function", fc.Name, "function_call_id", fc.ID)
	}

	start := time.Now()

	var (
		result any
		err    error
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				rc.LogError("dispatch.function.panic", "agent", agent.Name, "function", fc.Name, "recover", r)
			}
		}()
		result, err = e.executeTool(rc, agent, fc)
	}()

	dur := time.Since(start)

	rc.LogInfo(
		"dispatch.function.executed",
		"agent", agent.Name,
		"function", fc.Name,
		"function_call_id", fc.ID,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)

	if e.observer != nil {
		e.observer.ObserveFunctionCall(agent.Name, fc.Name, err == nil, dur)
	}

	fr := core.FunctionResult{ID: fc.ID, Name: fc.Name, Result: result}
	if err != nil {
		fr.Result = nil
		fr.Error = err.Error()
	}

	return fr
}

func (e *parallelExecutor) executeTool(rc *core.RunContext, agent core.AgentDescriptor, fc core.FunctionCall) (any, error) {
	impl, ok := e.registry.Lookup(fc.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrCapabilityNotFound, fc.Name)
	}

	if !agent.Permits(fc.Name) {
		return nil, fmt.Errorf("%w: %s for agent %s", core.ErrCapabilityNotPermitted, fc.Name, agent.Name)
	}

	args, err := fc.DecodeArguments()
	if err != nil {
		return nil, err
	}

	return impl.Call(core.NewToolContext(rc, agent.Name, fc.ID), args)
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }

// IsPanic reports whether err originates from a recovered tool panic.
func IsPanic(err error) bool {
	var p *panicErr
	return errors.As(err, &p)
}
