// Package upgrade 数据库结构迁移与数据升级
package upgrade

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/haierkeys/page-notes-service/internal/model"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"gorm.io/gorm"
)

// Migration 定义升级接口
type Migration interface {
	Version() string
	Description() string
	Up(ctx context.Context, db *gorm.DB) error
}

// MigrationManager 升级管理器
// 每个脚本执行一次，执行记录写入 schema_version；
// 版本高于当前运行版本的脚本不会执行，避免回滚二进制后执行未来的脚本
type MigrationManager struct {
	db             *gorm.DB
	logger         *zap.Logger
	runningVersion string
	migrations     []Migration
}

// NewMigrationManager 创建升级管理器
func NewMigrationManager(db *gorm.DB, logger *zap.Logger, runningVersion string, migrations ...Migration) *MigrationManager {
	if len(migrations) == 0 {
		// 在这里注册所有的升级脚本
		migrations = []Migration{
			&BackfillTimestampMigrate{},
			&NormalizePageURLMigrate{},
		}
	}
	return &MigrationManager{
		db:             db,
		logger:         logger,
		runningVersion: canonical(runningVersion),
		migrations:     migrations,
	}
}

// canonical 补全 v 前缀，非法版本返回空字符串
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// Run 执行升级
func (m *MigrationManager) Run(ctx context.Context, autoMigrate bool) error {
	if autoMigrate {
		if err := model.AutoMigrateAll(m.db); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	} else if err := model.AutoMigrate(m.db, "SchemaVersion"); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied versions: %w", err)
	}

	pending := make([]Migration, 0, len(m.migrations))
	for _, migration := range m.migrations {
		v := canonical(migration.Version())
		if v == "" {
			m.logger.Warn("skip migration with invalid version", zap.String("scriptVersion", migration.Version()))
			continue
		}
		if applied[v] {
			continue
		}
		if m.runningVersion != "" && semver.Compare(v, m.runningVersion) > 0 {
			m.logger.Info("skip migration newer than running version",
				zap.String("scriptVersion", v),
				zap.String("runningVersion", m.runningVersion))
			continue
		}
		pending = append(pending, migration)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return semver.Compare(canonical(pending[i].Version()), canonical(pending[j].Version())) < 0
	})

	for _, migration := range pending {
		v := canonical(migration.Version())
		m.logger.Info("applying migration",
			zap.String("scriptVersion", v),
			zap.String("desc", migration.Description()))

		// 在事务中执行升级并记录版本
		if err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(ctx, tx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return tx.Create(&model.SchemaVersion{
				Version:     v,
				Description: migration.Description(),
				AppliedAt:   time.Now().UnixMilli(),
			}).Error
		}); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", v, err)
		}
	}

	if len(pending) == 0 {
		m.logger.Info("database is already up to date")
	} else {
		m.logger.Info("upgrade completed", zap.Int("migrations_applied", len(pending)))
	}
	return nil
}

// appliedVersions 获取已应用的版本
func (m *MigrationManager) appliedVersions(ctx context.Context) (map[string]bool, error) {
	var rows []model.SchemaVersion
	if err := m.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(rows))
	for _, row := range rows {
		applied[canonical(row.Version)] = true
	}
	return applied, nil
}

// Execute 执行升级(便捷方法)
func Execute(db *gorm.DB, logger *zap.Logger, runningVersion string, autoMigrate bool) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if logger == nil {
		return fmt.Errorf("logger not initialized")
	}
	return NewMigrationManager(db, logger, runningVersion).Run(context.Background(), autoMigrate)
}
