package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockWorker struct {
	name     string
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (w *mockWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.started = true
	return nil
}

func (w *mockWorker) Stop() error {
	w.stopped = true
	return w.stopErr
}

func (w *mockWorker) Name() string { return w.name }

func TestWorkerManager_Lifecycle(t *testing.T) {
	m := NewWorkerManager(nil)
	ok := &mockWorker{name: "ok"}
	broken := &mockWorker{name: "broken", startErr: errors.New("no interval")}
	m.Register(ok)
	m.Register(broken)

	assert.Equal(t, []string{"ok", "broken"}, m.WorkerNames())
	assert.False(t, m.IsRunning())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, ok.started)
	assert.False(t, broken.started)

	assert.Error(t, m.StartAll(context.Background()), "second start must fail")

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.True(t, ok.stopped)

	assert.NoError(t, m.StopAll(), "stopping twice is a no-op")
}

func TestWorkerManager_StopAllJoinsErrors(t *testing.T) {
	m := NewWorkerManager(nil)
	stopErr := errors.New("stuck")
	m.Register(&mockWorker{name: "a", stopErr: stopErr})
	m.Register(&mockWorker{name: "b"})

	require.NoError(t, m.StartAll(context.Background()))
	err := m.StopAll()

	require.Error(t, err)
	assert.ErrorIs(t, err, stopErr)
	assert.Contains(t, err.Error(), "a: stuck")
}

func TestWorkerManager_LogsLifecycle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := NewWorkerManager(zap.New(core))

	require.NoError(t, m.StopAll())
	assert.Equal(t, 1, logs.FilterMessage("Workers not running, nothing to stop").Len())

	m.Register(&mockWorker{name: "sla_monitor"})
	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())

	stopped := logs.FilterMessage("Worker stopped").All()
	require.Len(t, stopped, 1)
	assert.Equal(t, "sla_monitor", stopped[0].ContextMap()["worker_name"])
	assert.Equal(t, 1, logs.FilterMessage("All workers stopped successfully").Len())
}
