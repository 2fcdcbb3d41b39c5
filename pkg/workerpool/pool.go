// Package workerpool 异步任务池，承载不应阻塞请求路径的工作（如变更推送）
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrPoolFull 队列已满
	ErrPoolFull = errors.New("worker pool queue is full")
	// ErrPoolClosed 已关闭
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Config 任务池配置
type Config struct {
	// Workers 并发 worker 数，为 1 时任务按提交顺序执行
	Workers int
	// QueueSize 等待队列长度
	QueueSize int
}

// DefaultConfig 单 worker 保证顺序
func DefaultConfig() Config {
	return Config{Workers: 1, QueueSize: 256}
}

// Task 任务函数，ctx 在强制关闭时被取消
type Task func(ctx context.Context)

// Pool 固定数量 worker 的任务池
type Pool struct {
	cfg    Config
	logger *zap.Logger

	tasks chan Task
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	done    atomic.Int64
	dropped atomic.Int64
	panics  atomic.Int64
}

// New 创建并启动任务池
func New(cfg Config, logger *zap.Logger) *Pool {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    cfg,
		logger: logger,
		tasks:  make(chan Task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.logger.Error("worker pool task panic", zap.Any("panic", r))
		}
	}()
	task(p.ctx)
	p.done.Add(1)
}

// Go 提交任务，不等待执行
// 队列满时返回 ErrPoolFull，任务被丢弃
func (p *Pool) Go(task Task) error {
	// 持有读锁直到入队完成，Shutdown 关闭通道前需要写锁
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		p.dropped.Add(1)
		return ErrPoolFull
	}
}

// Shutdown 停止接收任务并执行完队列中剩余任务
// ctx 超时后取消正在运行的任务并返回 ctx.Err()
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("worker pool shutdown timeout", zap.Int("queued", len(p.tasks)))
		return ctx.Err()
	}
}

// Metrics 任务池计数
type Metrics struct {
	Workers   int
	Queued    int
	Completed int64
	Dropped   int64
	Panics    int64
	Closed    bool
}

// GetMetrics 当前计数快照
func (p *Pool) GetMetrics() Metrics {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	return Metrics{
		Workers:   p.cfg.Workers,
		Queued:    len(p.tasks),
		Completed: p.done.Load(),
		Dropped:   p.dropped.Load(),
		Panics:    p.panics.Load(),
		Closed:    closed,
	}
}
