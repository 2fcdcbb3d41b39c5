// Package task 定时任务调度
package task

import (
	"context"
	"time"

	"github.com/haierkeys/page-notes-service/pkg/logger"
	"github.com/haierkeys/page-notes-service/pkg/safe_close"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task 定义任务接口
type Task interface {
	Name() string                  // 任务名称
	Run(ctx context.Context) error // 执行任务
	Spec() string                  // cron 表达式，支持 @every 1m
	IsStartupRun() bool            // 是否立即执行一次
}

// DefaultRunTimeout 单次任务执行超时
const DefaultRunTimeout = time.Minute

// Scheduler 基于 cron 的任务调度器
type Scheduler struct {
	logger *zap.Logger
	cron   *cron.Cron
	tasks  []Task
	sc     *safe_close.SafeClose
}

// NewScheduler 创建任务调度器
func NewScheduler(lg *zap.Logger, sc *safe_close.SafeClose) *Scheduler {
	cl := cronLogger{s: lg.Sugar()}
	return &Scheduler{
		logger: lg,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sc: sc,
	}
}

// AddTask 添加任务，cron 表达式无效时返回错误
func (s *Scheduler) AddTask(task Task) error {
	if _, err := s.cron.AddFunc(task.Spec(), func() { s.run(task, "loopRun") }); err != nil {
		return errors.Wrapf(err, "schedule task %s", task.Name())
	}
	s.tasks = append(s.tasks, task)
	return nil
}

// Start 启动调度器，收到关闭信号后等待正在执行的任务结束
func (s *Scheduler) Start() {
	if len(s.tasks) == 0 {
		s.logger.Info("no tasks to schedule")
		return
	}

	s.logger.Info("tasks starting", zap.Int("count", len(s.tasks)))

	for _, task := range s.tasks {
		if task.IsStartupRun() {
			go s.run(task, "startupRun")
		}
	}

	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		s.cron.Start()
		<-closeSignal

		stopped := s.cron.Stop()
		select {
		case <-stopped.Done():
		case <-time.After(DefaultRunTimeout):
			s.logger.Warn("tasks stop timeout")
		}
		s.logger.Info("tasks stopped")
	})
}

func (s *Scheduler) run(task Task, kind string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panic",
				zap.String(logger.FieldTask, task.Name()),
				zap.String("type", kind),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRunTimeout)
	defer cancel()

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		s.logger.Error("task running error",
			zap.String(logger.FieldTask, task.Name()),
			zap.String("type", kind),
			zap.Error(err))
		return
	}
	s.logger.Debug("task done",
		zap.String(logger.FieldTask, task.Name()),
		zap.String("type", kind),
		zap.Duration(logger.FieldDuration, time.Since(start)))
}

// cronLogger 把 cron 日志转给 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
