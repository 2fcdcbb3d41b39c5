// Package dao 实现数据访问层
package dao

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/haierkeys/page-notes-service/pkg/fileurl"
	"github.com/haierkeys/page-notes-service/pkg/util"
	"github.com/haierkeys/page-notes-service/pkg/writequeue"

	"github.com/glebarez/sqlite"
	"github.com/haierkeys/gormTracing"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

// DatabaseConfig 数据库连接配置
type DatabaseConfig struct {
	Type            string
	Path            string
	UserName        string
	Password        string
	Host            string
	Name            string
	TablePrefix     string
	AutoMigrate     bool
	Charset         string
	ParseTime       bool
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime string
	ConnMaxIdleTime string
	Replicas        []string
	RunMode         string
}

// Dao 数据访问对象
type Dao struct {
	Db         *gorm.DB
	config     DatabaseConfig
	logger     *zap.Logger
	writeQueue *writequeue.Manager
}

// DaoOption Dao 构造选项
type DaoOption func(*Dao)

func WithConfig(c DatabaseConfig) DaoOption {
	return func(d *Dao) { d.config = c }
}

func WithLogger(lg *zap.Logger) DaoOption {
	return func(d *Dao) { d.logger = lg }
}

// WithWriteQueueManager 写操作经由 per-user 写队列串行执行
func WithWriteQueueManager(m *writequeue.Manager) DaoOption {
	return func(d *Dao) { d.writeQueue = m }
}

func New(db *gorm.DB, opts ...DaoOption) *Dao {
	d := &Dao{Db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DB 返回带 ctx 的会话
func (d *Dao) DB(ctx context.Context) *gorm.DB {
	return d.Db.WithContext(ctx)
}

// ExecuteWrite runs fn through the per-user write queue when one is configured,
// otherwise directly. fn receives a session bound to ctx.
// ExecuteWrite 通过写队列执行写操作
func (d *Dao) ExecuteWrite(ctx context.Context, uid int64, fn func(db *gorm.DB) error) error {
	if d.writeQueue == nil {
		return fn(d.DB(ctx))
	}
	return d.writeQueue.Execute(ctx, uid, func() error {
		return fn(d.DB(ctx))
	})
}

// NewDBEngineWithConfig opens the database described by c and installs the tracing plugin
// NewDBEngineWithConfig 根据配置创建数据库连接
func NewDBEngineWithConfig(c DatabaseConfig, lg *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(c)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Silent
	if c.RunMode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   c.TablePrefix, // 表名前缀，`PageNote` 的表名应该是 `t_page_note`
			SingularTable: true,          // 使用单数表名
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database failed")
	}

	// 获取通用数据库对象 sql.DB 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB failed")
	}

	if c.Type == "sqlite" {
		// SQLite 只允许单写，连接数过多容易出现 database is locked
		sqlDB.SetMaxOpenConns(1)
	} else {
		if c.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(c.MaxIdleConns)
		}
		if c.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(c.MaxOpenConns)
		}
	}
	sqlDB.SetConnMaxLifetime(util.ParseDurationOr(c.ConnMaxLifetime, 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(util.ParseDurationOr(c.ConnMaxIdleTime, 10*time.Minute))

	replicas, err := replicaDialectors(c)
	if err != nil {
		return nil, err
	}
	if len(replicas) > 0 {
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetConnMaxLifetime(util.ParseDurationOr(c.ConnMaxLifetime, 30*time.Minute)).
			SetConnMaxIdleTime(util.ParseDurationOr(c.ConnMaxIdleTime, 10*time.Minute))
		if c.MaxOpenConns > 0 {
			resolver = resolver.SetMaxOpenConns(c.MaxOpenConns)
		}
		if err := db.Use(resolver); err != nil {
			return nil, errors.Wrap(err, "register read replicas failed")
		}
		if lg != nil {
			lg.Info("read replicas registered", zap.Strings("hosts", c.Replicas))
		}
	}

	if err := db.Use(&gormTracing.OpentracingPlugin{}); err != nil && lg != nil {
		lg.Warn("gorm tracing plugin", zap.Error(err))
	}

	if lg != nil {
		lg.Info("database connected", zap.String("type", c.Type))
	}
	return db, nil
}

// replicaDialectors 为每个副本地址生成与主库同类型的连接
func replicaDialectors(c DatabaseConfig) ([]gorm.Dialector, error) {
	if len(c.Replicas) == 0 {
		return nil, nil
	}
	if c.Type != "mysql" && c.Type != "postgres" {
		return nil, errors.Errorf("read replicas are not supported for database type: %s", c.Type)
	}
	out := make([]gorm.Dialector, 0, len(c.Replicas))
	for _, host := range c.Replicas {
		rc := c
		rc.Host = host
		d, err := dialectorFor(rc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func dialectorFor(c DatabaseConfig) (gorm.Dialector, error) {
	switch c.Type {
	case "mysql":
		charset := c.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=Local",
			c.UserName,
			c.Password,
			c.Host,
			c.Name,
			charset,
			c.ParseTime,
		)), nil
	case "postgres":
		host, port, err := net.SplitHostPort(c.Host)
		if err != nil {
			host, port = c.Host, "5432"
		}
		return postgres.Open(fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=Local",
			host, port, c.UserName, c.Password, c.Name,
		)), nil
	case "sqlite", "":
		if c.Path == "" {
			return nil, errors.New("sqlite path is empty")
		}
		if c.Path == ":memory:" {
			return sqlite.Open(c.Path), nil
		}
		if !fileurl.IsExist(c.Path) {
			if err := fileurl.CreatePath(c.Path, os.ModePerm); err != nil {
				return nil, errors.Wrap(err, "create sqlite dir failed")
			}
		}
		return sqlite.Open(c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), nil
	}
	return nil, errors.Errorf("unsupported database type: %s", c.Type)
}
