// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/page-notes-service/internal/dao"
	"github.com/haierkeys/page-notes-service/internal/domain"
	"github.com/haierkeys/page-notes-service/internal/service"
	pkgapp "github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/workerpool"
	"github.com/haierkeys/page-notes-service/pkg/writequeue"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	DB     *gorm.DB
	Dao    *dao.Dao

	// 并发控制组件
	writeQueueMgr *writequeue.Manager
	eventPool     *workerpool.Pool

	// Repository 层
	NoteRepo domain.NoteRepository

	// Service 层
	NoteService service.NoteService

	// 基础设施组件
	TokenManager pkgapp.TokenManager
	EventHub     *pkgapp.EventHub

	StartTime time.Time

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewApp 创建应用容器实例
// 初始化所有依赖并进行依赖注入
// cfg: 应用配置（必须）
// logger: zap 日志器（必须）
// db: 数据库连接（必须）
func NewApp(cfg *AppConfig, logger *zap.Logger, db *gorm.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		DB:         db,
		StartTime:  time.Now(),
		shutdownCh: make(chan struct{}),
	}

	// 初始化 Write Queue Manager
	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, logger)

	// 初始化 DAO（使用依赖注入）
	a.Dao = dao.New(db,
		dao.WithConfig(cfg.GetDatabaseConfig()),
		dao.WithLogger(logger),
		dao.WithWriteQueueManager(a.writeQueueMgr),
	)

	// 初始化 TokenManager
	a.TokenManager = pkgapp.NewTokenManager(pkgapp.TokenConfig{
		SecretKey:   cfg.Security.AuthTokenKey,
		Expiry:      cfg.GetTokenExpiry(),
		NonceExpiry: cfg.GetNonceExpiry(),
	})

	// 变更推送
	a.EventHub = pkgapp.NewEventHub(pkgapp.WSConfig{
		GWSOption: gws.ServerOption{
			CheckUtf8Enabled:  true,
			ParallelEnabled:   true,                                 // 开启并行消息处理
			Recovery:          gws.Recovery,                         // 开启异常恢复
			PermessageDeflate: gws.PermessageDeflate{Enabled: true}, // 开启压缩
		},
	}, logger)

	// 推送在独立 worker 中执行，写请求不等待 websocket
	a.eventPool = workerpool.New(cfg.GetEventPoolConfig(), logger)

	// 初始化 Repository 层
	a.NoteRepo = dao.NewNoteRepository(a.Dao)

	// 创建 ServiceConfig（从 AppConfig 提取 Service 层需要的配置）
	svcConfig := &service.ServiceConfig{
		User: service.UserServiceConfig{
			AdminUID: cfg.User.AdminUID,
		},
		App: service.AppServiceConfig{
			NotesEnabled: cfg.App.NotesEnabled,
			ListLimit:    cfg.App.ListLimit,
		},
	}

	// 初始化 Service 层（依赖注入）
	a.NoteService = service.NewNoteService(a.NoteRepo, &hubNotifier{hub: a.EventHub, pool: a.eventPool, logger: logger}, logger, svcConfig)

	logger.Info("App container initialized successfully",
		zap.Bool("notesEnabled", cfg.App.NotesEnabled),
		zap.Int("writeQueueCapacity", wqConfig.QueueCapacity))

	return a, nil
}

// hubNotifier 把笔记变更事件推送给用户的 websocket 连接
type hubNotifier struct {
	hub    *pkgapp.EventHub
	pool   *workerpool.Pool
	logger *zap.Logger
}

func (n *hubNotifier) NotifyNote(uid int64, event domain.NoteEvent) {
	payload, err := sonic.Marshal(event)
	if err != nil {
		n.logger.Warn("hubNotifier marshal err", zap.Int64("uid", uid), zap.Error(err))
		return
	}
	err = n.pool.Go(func(ctx context.Context) {
		n.hub.Publish(uid, payload)
	})
	if err != nil {
		n.logger.Warn("hubNotifier dropped event", zap.Int64("uid", uid), zap.Int64("noteId", event.NoteID), zap.Error(err))
	}
}

// Close 释放应用容器持有的资源
func (a *App) Close() error {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.logger.Info("Database connection closed")
	}
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// IsAdmin 判断 uid 是否为配置的管理员
func (a *App) IsAdmin(uid int64) bool {
	return a.config.User.AdminUID > 0 && uid == a.config.User.AdminUID
}

// EventPoolMetrics 推送队列计数
func (a *App) EventPoolMetrics() workerpool.Metrics {
	return a.eventPool.GetMetrics()
}

// WriteQueueManager 获取 Write Queue Manager
func (a *App) WriteQueueManager() *writequeue.Manager {
	return a.writeQueueMgr
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：Write Queue Manager -> 推送队列 -> WebSocket 连接 -> 后台操作 -> Database
// ctx 用于控制关闭超时，如果为 nil 则使用默认 30 秒超时
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("App container shutting down...")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	select {
	case <-a.shutdownCh:
		return nil
	default:
		close(a.shutdownCh)
	}

	var errs []error

	// 1. 关闭 Write Queue Manager（排空所有队列）
	if a.writeQueueMgr != nil {
		a.logger.Info("Shutting down write queue manager...")
		if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
			a.logger.Warn("write queue manager shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("write queue manager shutdown: %w", err))
		}
	}

	// 2. 发送剩余的变更事件
	if a.eventPool != nil {
		if err := a.eventPool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("event pool shutdown: %w", err))
		}
	}

	// 3. 断开 websocket 订阅
	if a.EventHub != nil {
		a.EventHub.Shutdown()
	}

	// 4. 等待所有后台操作完成
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Shutdown timeout waiting for background operations")
		errs = append(errs, fmt.Errorf("background operations timeout: %w", ctx.Err()))
	}

	// 5. 关闭数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}

// TrackOperation 跟踪后台操作（用于优雅关闭时等待）
// 返回一个函数，在操作完成时调用
func (a *App) TrackOperation() func() {
	a.wg.Add(1)
	return func() {
		a.wg.Done()
	}
}
