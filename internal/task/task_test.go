package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haierkeys/page-notes-service/internal/dto"
	"github.com/haierkeys/page-notes-service/pkg/safe_close"
	"github.com/haierkeys/page-notes-service/pkg/workerpool"
	"github.com/haierkeys/page-notes-service/pkg/writequeue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStats struct {
	stats *dto.NoteStatsDTO
	err   error
}

func (f fakeStats) Stats(ctx context.Context) (*dto.NoteStatsDTO, error) {
	return f.stats, f.err
}

type countingTask struct {
	spec    string
	startup bool
	runs    atomic.Int32
	panics  bool
}

func (t *countingTask) Name() string       { return "counting" }
func (t *countingTask) Spec() string       { return t.spec }
func (t *countingTask) IsStartupRun() bool { return t.startup }
func (t *countingTask) Run(ctx context.Context) error {
	t.runs.Add(1)
	if t.panics {
		panic("boom")
	}
	return nil
}

func TestStatsRefreshTask(t *testing.T) {
	reg := prometheus.NewRegistry()
	task := NewStatsRefreshTask(fakeStats{stats: &dto.NoteStatsDTO{TotalNotes: 12, TotalUsers: 3}}, "@every 1m", reg)

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, float64(12), testutil.ToFloat64(task.totalNotes))
	assert.Equal(t, float64(3), testutil.ToFloat64(task.totalUsers))

	failing := NewStatsRefreshTask(fakeStats{err: errors.New("db down")}, "@every 1m", reg)
	assert.Error(t, failing.Run(context.Background()))
	// 复用已注册的 gauge，失败时保留上次的值
	assert.Equal(t, float64(12), testutil.ToFloat64(failing.totalNotes))
}

func TestRuntimeMetricsTask(t *testing.T) {
	reg := prometheus.NewRegistry()
	task := NewRuntimeMetricsTask(func() writequeue.Metrics {
		return writequeue.Metrics{ActiveLanes: 2, Queued: 5, Executed: 40, Failed: 1, Rejected: 3}
	}, func() workerpool.Metrics {
		return workerpool.Metrics{Queued: 7, Dropped: 2}
	}, func() int { return 4 }, reg)

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, float64(2), testutil.ToFloat64(task.activeLanes))
	assert.Equal(t, float64(5), testutil.ToFloat64(task.queued))
	assert.Equal(t, float64(40), testutil.ToFloat64(task.executed))
	assert.Equal(t, float64(3), testutil.ToFloat64(task.rejected))
	assert.Equal(t, float64(4), testutil.ToFloat64(task.subscribers))
	assert.Equal(t, float64(7), testutil.ToFloat64(task.evQueued))
	assert.Equal(t, float64(2), testutil.ToFloat64(task.evDropped))
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(zap.NewNop(), safe_close.NewSafeClose())
	assert.Error(t, s.AddTask(&countingTask{spec: "every minute please"}))
	assert.NoError(t, s.AddTask(&countingTask{spec: "@every 1h"}))
	assert.Len(t, s.tasks, 1)
}

func TestSchedulerStartupRunAndShutdown(t *testing.T) {
	sc := safe_close.NewSafeClose()
	s := NewScheduler(zap.NewNop(), sc)

	ok := &countingTask{spec: "@every 1h", startup: true}
	bad := &countingTask{spec: "@every 1h", startup: true, panics: true}
	require.NoError(t, s.AddTask(ok))
	require.NoError(t, s.AddTask(bad))
	s.Start()

	assert.Eventually(t, func() bool {
		return ok.runs.Load() == 1 && bad.runs.Load() == 1
	}, time.Second, 10*time.Millisecond)

	sc.SendCloseSignal(nil)
	done := make(chan error, 1)
	go func() { done <- sc.WaitClosed() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
