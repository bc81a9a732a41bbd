package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hupe1980/agentchat/logging"
)

func TestRunContext_LogsCarryRunScope(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)

	rc := NewRunContext(context.Background(), "run-1", func(o *RunContextOptions) {
		o.Logger = logging.NewZapAdapter(zap.New(obs))
	})

	rc.LogInfo("dispatch.function.start", "function", "search.web")
	rc.Round = 3
	rc.LogWarn("dispatch.loop.exhausted")

	tc := NewToolContext(rc, "Writer", "fc-1")
	tc.Logger().Debug("tool.call.start")

	entries := logs.All()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "run-1", first["run_id"])
	assert.Equal(t, "search.web", first["function"])
	assert.NotContains(t, first, "round")

	assert.Equal(t, int64(3), entries[1].ContextMap()["round"])

	call := entries[2].ContextMap()
	assert.Equal(t, "run-1", call["run_id"])
	assert.Equal(t, "Writer", call["agent"])
	assert.Equal(t, "fc-1", call["function_call_id"])
}

func TestRunContext_NilLogger(t *testing.T) {
	rc := NewRunContext(context.Background(), "run")
	assert.IsType(t, logging.NoOpLogger{}, rc.Logger())
	rc.LogError("ignored")
}
