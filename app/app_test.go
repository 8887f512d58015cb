package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/creditpool/logging"
)

type fakeServer struct {
	started chan struct{}
	err     error
}

func (s *fakeServer) Start(ctx context.Context) error {
	close(s.started)
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func (s *fakeServer) Stop(context.Context) error { return nil }

func TestLifecycleStopsInReverseOrder(t *testing.T) {
	l := NewLifecycle(logging.NewNop().Logger)
	var order []string
	for _, name := range []string{"tracer", "cache", "engine"} {
		l.Append(Hook{
			Name:    name,
			OnStart: func(context.Context) error { order = append(order, "start "+name); return nil },
			OnStop:  func(context.Context) error { order = append(order, "stop "+name); return nil },
		})
	}

	require.NoError(t, l.Start(t.Context()))
	require.NoError(t, l.Stop(t.Context()))
	assert.Equal(t, []string{
		"start tracer", "start cache", "start engine",
		"stop engine", "stop cache", "stop tracer",
	}, order)
}

func TestLifecycleStopJoinsErrors(t *testing.T) {
	l := NewLifecycle(logging.NewNop().Logger)
	errA, errB := errors.New("a"), errors.New("b")
	l.Append(Hook{Name: "a", OnStop: func(context.Context) error { return errA }})
	l.Append(Hook{Name: "b", OnStop: func(context.Context) error { return errB }})
	l.Append(Hook{Name: "no-op"})

	err := l.Stop(t.Context())
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestAppRunStopsOnCancel(t *testing.T) {
	logger := logging.NewNop().Logger
	l := NewLifecycle(logger)
	stopped := false
	l.Append(Hook{Name: "cache", OnStop: func(context.Context) error { stopped = true; return nil }})

	srv := &fakeServer{started: make(chan struct{})}
	a := New("test", logger, WithServer(srv), WithLifecycle(l), WithShutdownTimeout(time.Second))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, stopped)
}

func TestAppRunReturnsServerError(t *testing.T) {
	boom := errors.New("listen failed")
	srv := &fakeServer{started: make(chan struct{}), err: boom}
	a := New("test", logging.NewNop().Logger, WithServer(srv))

	assert.ErrorIs(t, a.Run(t.Context()), boom)
}

func TestBootstrapDefaults(t *testing.T) {
	rt, err := Bootstrap("")
	require.NoError(t, err)

	assert.Equal(t, "creditpool", rt.Config.Server.Name)
	assert.Equal(t, 5000, rt.Config.Simulation.MonteCarlo.Paths)
	assert.Equal(t, 1.0, testutil.ToFloat64(rt.Metrics.BuildInfo.WithLabelValues("creditpool", "dev")))
	assert.NotNil(t, rt.Engine())
	assert.NoError(t, rt.Lifecycle.Stop(t.Context()))
}

func TestBootstrapLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creditpool.toml")
	content := `
version = "2.0.0"

[simulation.monte_carlo]
paths = 321
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rt, err := Bootstrap(path)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", rt.Config.Version)
	assert.Equal(t, 321, rt.Config.Simulation.MonteCarlo.Paths)

	_, err = Bootstrap(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
