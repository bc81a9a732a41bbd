package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("bogus"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestZapAdapter_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapAdapter(zap.New(core)).Component("groupchat")

	l.Info("groupchat.round.started", "round", 2, "agent", "Writer")
	l.Debug("groupchat.state", "state", "SELECTING")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "groupchat.round.started", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "groupchat", fields["component"])
	assert.Equal(t, int64(2), fields["round"])
	assert.Equal(t, "Writer", fields["agent"])
}

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))

	l := NewZapAdapter(nil)
	assert.Same(t, l, OrNoOp(l))
}

type recorder struct{ args [][]any }

func (r *recorder) Debug(_ string, args ...any) { r.args = append(r.args, args) }
func (r *recorder) Info(_ string, args ...any)  { r.args = append(r.args, args) }
func (r *recorder) Warn(_ string, args ...any)  { r.args = append(r.args, args) }
func (r *recorder) Error(_ string, args ...any) { r.args = append(r.args, args) }

func TestWith(t *testing.T) {
	rec := &recorder{}
	l := With(rec, "run_id", "r1")

	l.Info("x", "agent", "Writer")
	l.Error("y")

	assert.Equal(t, [][]any{{"run_id", "r1", "agent", "Writer"}, {"run_id", "r1"}}, rec.args)
	assert.Same(t, rec, With(rec))
	assert.IsType(t, NoOpLogger{}, With(nil, "k", "v"))

	core, logs := observer.New(zapcore.DebugLevel)
	With(NewZapAdapter(zap.New(core)), "run_id", "r2").Warn("z")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r2", logs.All()[0].ContextMap()["run_id"])
}
