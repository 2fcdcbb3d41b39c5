// Package writequeue serializes database writes per user
// Package writequeue 按用户串行化数据库写操作
//
// SQLite allows one writer at a time; funnelling each user's writes through a single
// lane keeps "database is locked" errors away while different users still write in parallel.
package writequeue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrWriteQueueFull 用户写队列已满
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed 写队列管理器已关闭
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout 写操作等待超时
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config 写队列配置
type Config struct {
	// QueueCapacity 每用户队列容量，默认 100
	QueueCapacity int
	// WriteTimeout 单次写操作最长等待时间，默认 30 秒
	WriteTimeout time.Duration
	// IdleTimeout 空闲队列回收时间，默认 10 分钟
	IdleTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		QueueCapacity: 100,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   10 * time.Minute,
	}
}

type job struct {
	ctx  context.Context
	fn   func() error
	done chan error
}

// lane 单个用户的写通道
type lane struct {
	uid      int64
	jobs     chan job
	stop     chan struct{}
	stopOnce sync.Once
	lastUsed atomic.Int64
	wg       sync.WaitGroup
}

func (l *lane) halt() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Manager 管理全部用户的写通道
type Manager struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool

	executed atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64

	janitorStop chan struct{}
	janitorWg   sync.WaitGroup
}

// New 创建写队列管理器，cfg 为 nil 时使用默认配置
func New(cfg *Config, logger *zap.Logger) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.QueueCapacity > 0 {
			c.QueueCapacity = cfg.QueueCapacity
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		config:      c,
		logger:      logger,
		lanes:       make(map[int64]*lane),
		janitorStop: make(chan struct{}),
	}

	m.janitorWg.Add(1)
	go m.janitor()

	m.logger.Info("write queue manager started",
		zap.Int("queueCapacity", c.QueueCapacity),
		zap.Duration("writeTimeout", c.WriteTimeout),
		zap.Duration("idleTimeout", c.IdleTimeout))

	return m
}

// Execute runs fn on the lane of uid and waits for its result.
// Writes of the same user run one at a time in submission order.
// Execute 在用户写通道上执行 fn 并等待结果，同一用户按提交顺序串行执行
func (m *Manager) Execute(ctx context.Context, uid int64, fn func() error) error {
	l, err := m.acquire(uid)
	if err != nil {
		return err
	}

	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case l.jobs <- j:
	default:
		m.rejected.Add(1)
		return ErrWriteQueueFull
	}

	timer := time.NewTimer(m.config.WriteTimeout)
	defer timer.Stop()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	}
}

func (m *Manager) acquire(uid int64) (*lane, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrWriteQueueClosed
	}
	l, ok := m.lanes[uid]
	if !ok {
		l = &lane{
			uid:  uid,
			jobs: make(chan job, m.config.QueueCapacity),
			stop: make(chan struct{}),
		}
		m.lanes[uid] = l
		l.wg.Add(1)
		go m.run(l)
		m.logger.Debug("write queue lane created", zap.Int64("uid", uid))
	}
	l.lastUsed.Store(time.Now().UnixNano())
	return l, nil
}

func (m *Manager) run(l *lane) {
	defer l.wg.Done()
	for {
		select {
		case j := <-l.jobs:
			m.do(l, j)
		case <-l.stop:
			// 退出前执行完已入队的操作
			for {
				select {
				case j := <-l.jobs:
					m.do(l, j)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) do(l *lane, j job) {
	l.lastUsed.Store(time.Now().UnixNano())
	if err := j.ctx.Err(); err != nil {
		j.done <- err
		return
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("write queue panic: %v", r)
				m.logger.Error("write queue job panic", zap.Int64("uid", l.uid), zap.Any("panic", r))
			}
		}()
		return j.fn()
	}()

	m.executed.Add(1)
	if err != nil {
		m.failed.Add(1)
	}
	j.done <- err
}

func (m *Manager) janitor() {
	defer m.janitorWg.Done()
	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.janitorStop:
			return
		case <-ticker.C:
			m.reapIdle(time.Now())
		}
	}
}

// reapIdle 回收空闲超时且没有排队操作的通道
func (m *Manager) reapIdle(now time.Time) int {
	threshold := now.Add(-m.config.IdleTimeout).UnixNano()
	reaped := 0

	m.mu.Lock()
	for uid, l := range m.lanes {
		if l.lastUsed.Load() < threshold && len(l.jobs) == 0 {
			delete(m.lanes, uid)
			l.halt()
			reaped++
		}
	}
	m.mu.Unlock()

	if reaped > 0 {
		m.logger.Debug("write queue lanes reaped", zap.Int("count", reaped))
	}
	return reaped
}

// Shutdown stops accepting writes, drains every lane and waits until ctx expires
// Shutdown 停止接收写操作并排空所有通道
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	lanes := make([]*lane, 0, len(m.lanes))
	for _, l := range m.lanes {
		lanes = append(lanes, l)
	}
	m.lanes = make(map[int64]*lane)
	m.mu.Unlock()

	m.logger.Info("write queue manager shutting down", zap.Int("lanes", len(lanes)))
	close(m.janitorStop)

	finished := make(chan struct{})
	go func() {
		for _, l := range lanes {
			l.halt()
		}
		for _, l := range lanes {
			l.wg.Wait()
		}
		m.janitorWg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info("write queue manager shutdown completed")
		return nil
	case <-ctx.Done():
		m.logger.Warn("write queue manager shutdown timeout")
		return ctx.Err()
	}
}

// IsClosed 管理器是否已关闭
func (m *Manager) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// QueuedCount 返回用户通道中等待执行的操作数
func (m *Manager) QueuedCount(uid int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.lanes[uid]; ok {
		return len(l.jobs)
	}
	return 0
}

// Metrics 写队列运行指标
type Metrics struct {
	QueueCapacity int
	ActiveLanes   int
	Queued        int
	Executed      int64
	Failed        int64
	Rejected      int64
	IsClosed      bool
}

func (m *Manager) GetMetrics() Metrics {
	m.mu.Lock()
	out := Metrics{
		QueueCapacity: m.config.QueueCapacity,
		ActiveLanes:   len(m.lanes),
		IsClosed:      m.closed,
	}
	for _, l := range m.lanes {
		out.Queued += len(l.jobs)
	}
	m.mu.Unlock()

	out.Executed = m.executed.Load()
	out.Failed = m.failed.Load()
	out.Rejected = m.rejected.Load()
	return out
}
