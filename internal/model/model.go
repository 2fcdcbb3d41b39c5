// Package model 数据库模型
package model

import (
	"gorm.io/gorm"
)

// SchemaVersion 记录已执行的数据库迁移版本
type SchemaVersion struct {
	ID          int64  `gorm:"column:id;primaryKey"`
	Version     string `gorm:"column:version;type:varchar(32);not null;uniqueIndex"`
	Description string `gorm:"column:description;type:varchar(255);default:''"`
	AppliedAt   int64  `gorm:"column:applied_at;not null"` // unix milliseconds
}

func (*SchemaVersion) TableName() string {
	return "schema_version"
}

// AutoMigrate 按模型名迁移表结构
func AutoMigrate(db *gorm.DB, key string) error {
	switch key {
	case "PageNote":
		return db.AutoMigrate(&PageNote{})
	case "SchemaVersion":
		return db.AutoMigrate(&SchemaVersion{})
	}
	return nil
}

// AutoMigrateAll 迁移全部表结构
func AutoMigrateAll(db *gorm.DB) error {
	for _, key := range []string{"SchemaVersion", "PageNote"} {
		if err := AutoMigrate(db, key); err != nil {
			return err
		}
	}
	return nil
}
