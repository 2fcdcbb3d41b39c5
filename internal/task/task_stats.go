package task

import (
	"context"

	"github.com/haierkeys/page-notes-service/internal/app"
	"github.com/haierkeys/page-notes-service/internal/dto"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource 提供全局笔记统计
type StatsSource interface {
	Stats(ctx context.Context) (*dto.NoteStatsDTO, error)
}

// StatsRefreshTask 定时把笔记统计刷新到 prometheus gauge
type StatsRefreshTask struct {
	source     StatsSource
	spec       string
	totalNotes prometheus.Gauge
	totalUsers prometheus.Gauge
}

// NewStatsRefreshTask 创建统计刷新任务
func NewStatsRefreshTask(source StatsSource, spec string, reg prometheus.Registerer) *StatsRefreshTask {
	return &StatsRefreshTask{
		source:     source,
		spec:       spec,
		totalNotes: newGauge(reg, "notes", "total", "Number of stored page notes"),
		totalUsers: newGauge(reg, "notes", "users", "Number of users owning at least one note"),
	}
}

func (t *StatsRefreshTask) Name() string {
	return "StatsRefresh"
}

func (t *StatsRefreshTask) Spec() string {
	return t.spec
}

func (t *StatsRefreshTask) IsStartupRun() bool {
	return true
}

func (t *StatsRefreshTask) Run(ctx context.Context) error {
	stats, err := t.source.Stats(ctx)
	if err != nil {
		return err
	}
	t.totalNotes.Set(float64(stats.TotalNotes))
	t.totalUsers.Set(float64(stats.TotalUsers))
	return nil
}

func init() {
	Register(func(a *app.App) (Task, error) {
		spec := a.Config().App.StatsRefreshSpec
		if spec == "" {
			return nil, nil
		}
		return NewStatsRefreshTask(a.NoteService, spec, prometheus.DefaultRegisterer), nil
	})
}
