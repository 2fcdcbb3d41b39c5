package task

import (
	"context"

	"github.com/haierkeys/page-notes-service/internal/app"
	"github.com/haierkeys/page-notes-service/pkg/workerpool"
	"github.com/haierkeys/page-notes-service/pkg/writequeue"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeMetricsTask 采集写队列、推送队列和 websocket 连接数
type RuntimeMetricsTask struct {
	queue       func() writequeue.Metrics
	events      func() workerpool.Metrics
	connections func() int

	activeLanes prometheus.Gauge
	queued      prometheus.Gauge
	executed    prometheus.Gauge
	failed      prometheus.Gauge
	rejected    prometheus.Gauge
	subscribers prometheus.Gauge
	evQueued    prometheus.Gauge
	evDropped   prometheus.Gauge
}

// NewRuntimeMetricsTask 创建运行时指标采集任务
func NewRuntimeMetricsTask(queue func() writequeue.Metrics, events func() workerpool.Metrics, connections func() int, reg prometheus.Registerer) *RuntimeMetricsTask {
	return &RuntimeMetricsTask{
		queue:       queue,
		events:      events,
		connections: connections,
		activeLanes: newGauge(reg, "write_queue", "active_lanes", "Users with an active write lane"),
		queued:      newGauge(reg, "write_queue", "queued", "Writes waiting in all lanes"),
		executed:    newGauge(reg, "write_queue", "executed", "Writes executed since start"),
		failed:      newGauge(reg, "write_queue", "failed", "Writes that returned an error since start"),
		rejected:    newGauge(reg, "write_queue", "rejected", "Writes rejected because a lane was full"),
		subscribers: newGauge(reg, "events", "subscribers", "Open websocket change feed connections"),
		evQueued:    newGauge(reg, "events", "queued", "Change events waiting to be pushed"),
		evDropped:   newGauge(reg, "events", "dropped", "Change events dropped because the queue was full"),
	}
}

func (t *RuntimeMetricsTask) Name() string {
	return "RuntimeMetrics"
}

func (t *RuntimeMetricsTask) Spec() string {
	return "@every 15s"
}

func (t *RuntimeMetricsTask) IsStartupRun() bool {
	return false
}

func (t *RuntimeMetricsTask) Run(ctx context.Context) error {
	m := t.queue()
	t.activeLanes.Set(float64(m.ActiveLanes))
	t.queued.Set(float64(m.Queued))
	t.executed.Set(float64(m.Executed))
	t.failed.Set(float64(m.Failed))
	t.rejected.Set(float64(m.Rejected))
	t.subscribers.Set(float64(t.connections()))
	ev := t.events()
	t.evQueued.Set(float64(ev.Queued))
	t.evDropped.Set(float64(ev.Dropped))
	return nil
}

func init() {
	Register(func(a *app.App) (Task, error) {
		return NewRuntimeMetricsTask(a.WriteQueueManager().GetMetrics, a.EventPoolMetrics, a.EventHub.Total, prometheus.DefaultRegisterer), nil
	})
}
