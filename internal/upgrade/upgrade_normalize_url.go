package upgrade

import (
	"context"

	"github.com/haierkeys/page-notes-service/internal/model"
	"github.com/haierkeys/page-notes-service/pkg/util"

	"gorm.io/gorm"
)

// NormalizePageURLMigrate 按当前规则重新规范化已存储的页面地址并重算哈希
// 无法规范化的地址保持原样
type NormalizePageURLMigrate struct{}

func (m *NormalizePageURLMigrate) Version() string {
	return "0.3.0"
}

func (m *NormalizePageURLMigrate) Description() string {
	return "Re-normalize stored page urls and recompute page_url_hash"
}

func (m *NormalizePageURLMigrate) Up(ctx context.Context, db *gorm.DB) error {
	var rows []*model.PageNote
	return db.Model(&model.PageNote{}).
		Select("id", "page_url", "page_url_hash").
		FindInBatches(&rows, 500, func(batch *gorm.DB, _ int) error {
			for _, row := range rows {
				normalized, err := util.NormalizePageURL(row.PageURL)
				if err != nil {
					continue
				}
				hash := util.EncodeHash32(normalized)
				if normalized == row.PageURL && hash == row.PageURLHash {
					continue
				}
				err = db.Model(&model.PageNote{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
					"page_url":      normalized,
					"page_url_hash": hash,
				}).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}
