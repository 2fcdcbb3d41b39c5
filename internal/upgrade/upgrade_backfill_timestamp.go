package upgrade

import (
	"context"
	"time"

	"github.com/haierkeys/page-notes-service/internal/model"
	"github.com/haierkeys/page-notes-service/pkg/timex"

	"gorm.io/gorm"
)

// BackfillTimestampMigrate 为早期只记录 updated_at 的笔记补全毫秒时间戳和版本号
type BackfillTimestampMigrate struct{}

func (m *BackfillTimestampMigrate) Version() string {
	return "0.2.0"
}

func (m *BackfillTimestampMigrate) Description() string {
	return "Backfill updated_timestamp and version of legacy page notes"
}

func (m *BackfillTimestampMigrate) Up(ctx context.Context, db *gorm.DB) error {
	var rows []*model.PageNote
	return db.Model(&model.PageNote{}).
		Where("updated_timestamp = ? OR version = ?", 0, 0).
		FindInBatches(&rows, 200, func(batch *gorm.DB, _ int) error {
			for _, row := range rows {
				updatedAt := row.UpdatedAt
				if updatedAt.IsZero() {
					updatedAt = row.CreatedAt
				}
				if updatedAt.IsZero() {
					updatedAt = timex.Time(time.Now())
				}
				createdAt := row.CreatedAt
				if createdAt.IsZero() {
					createdAt = updatedAt
				}
				version := row.Version
				if version <= 0 {
					version = 1
				}
				ts := row.UpdatedTimestamp
				if ts == 0 {
					ts = updatedAt.UnixMilli()
				}

				err := db.Model(&model.PageNote{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
					"updated_timestamp": ts,
					"updated_at":        updatedAt,
					"created_at":        createdAt,
					"version":           version,
				}).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}
