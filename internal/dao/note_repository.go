package dao

import (
	"context"
	"time"

	"github.com/haierkeys/page-notes-service/internal/domain"
	"github.com/haierkeys/page-notes-service/internal/model"
	"github.com/haierkeys/page-notes-service/pkg/timex"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// noteRepository 实现 domain.NoteRepository 接口
type noteRepository struct {
	dao *Dao
}

// NewNoteRepository 创建 NoteRepository 实例
func NewNoteRepository(dao *Dao) domain.NoteRepository {
	return &noteRepository{dao: dao}
}

// toDomain 将数据库模型转换为领域模型
func (r *noteRepository) toDomain(m *model.PageNote) *domain.Note {
	if m == nil {
		return nil
	}
	return &domain.Note{
		ID:               m.ID,
		UID:              m.UID,
		PageURL:          m.PageURL,
		PageURLHash:      m.PageURLHash,
		PageTitle:        m.PageTitle,
		Content:          m.Content,
		Version:          m.Version,
		UpdatedTimestamp: m.UpdatedTimestamp,
		CreatedAt:        time.Time(m.CreatedAt),
		UpdatedAt:        time.Time(m.UpdatedAt),
	}
}

func (r *noteRepository) toDomainList(ms []*model.PageNote) []*domain.Note {
	out := make([]*domain.Note, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.toDomain(m))
	}
	return out
}

// scope 限定到用户
func (r *noteRepository) scope(ctx context.Context, uid int64) *gorm.DB {
	return r.dao.DB(ctx).Model(&model.PageNote{}).Where("uid = ?", uid)
}

// nextTimestamp returns a millisecond timestamp strictly greater than prev
func nextTimestamp(prev int64) int64 {
	now := time.Now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}

// GetByID 根据 ID 获取用户笔记
func (r *noteRepository) GetByID(ctx context.Context, id, uid int64) (*domain.Note, error) {
	m := &model.PageNote{}
	// 变更前的所有权检查读主库，避免副本延迟
	if err := r.scope(ctx, uid).Clauses(dbresolver.Write).Where("id = ?", id).First(m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// Create 创建笔记，CreatedAt 与 UpdatedAt 相同，版本号为 1
func (r *noteRepository) Create(ctx context.Context, note *domain.Note, uid int64) (*domain.Note, error) {
	var result *domain.Note

	err := r.dao.ExecuteWrite(ctx, uid, func(db *gorm.DB) error {
		ts := nextTimestamp(0)
		m := &model.PageNote{
			UID:              uid,
			PageURL:          note.PageURL,
			PageURLHash:      note.PageURLHash,
			PageTitle:        note.PageTitle,
			Content:          note.Content,
			Version:          1,
			UpdatedTimestamp: ts,
			CreatedAt:        timex.FromUnixMilli(ts),
			UpdatedAt:        timex.FromUnixMilli(ts),
		}
		if err := db.Create(m).Error; err != nil {
			return err
		}
		result = r.toDomain(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateContent 更新笔记内容，版本号递增，更新时间严格递增
func (r *noteRepository) UpdateContent(ctx context.Context, note *domain.Note, expectedVersion int64, uid int64) (*domain.Note, error) {
	var result *domain.Note

	err := r.dao.ExecuteWrite(ctx, uid, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			current := &model.PageNote{}
			if err := tx.Where("id = ? AND uid = ?", note.ID, uid).First(current).Error; err != nil {
				return err
			}
			if expectedVersion > 0 && current.Version != expectedVersion {
				return &domain.VersionConflictError{Current: r.toDomain(current)}
			}

			ts := nextTimestamp(current.UpdatedTimestamp)
			updates := map[string]interface{}{
				"content":           note.Content,
				"version":           current.Version + 1,
				"updated_timestamp": ts,
				"updated_at":        timex.FromUnixMilli(ts),
			}
			// version 作为条件，防止并发写覆盖
			res := tx.Model(&model.PageNote{}).
				Where("id = ? AND uid = ? AND version = ?", current.ID, uid, current.Version).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &domain.VersionConflictError{Current: r.toDomain(current)}
			}

			current.Content = note.Content
			current.Version++
			current.UpdatedTimestamp = ts
			current.UpdatedAt = timex.FromUnixMilli(ts)
			result = r.toDomain(current)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete 物理删除用户笔记
func (r *noteRepository) Delete(ctx context.Context, id, uid int64) (int64, error) {
	var affected int64
	err := r.dao.ExecuteWrite(ctx, uid, func(db *gorm.DB) error {
		res := db.Where("id = ? AND uid = ?", id, uid).Delete(&model.PageNote{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// ListByPage 按页面获取笔记，同时匹配哈希与完整 URL
func (r *noteRepository) ListByPage(ctx context.Context, pageURL, pageURLHash string, limit int, uid int64) ([]*domain.Note, error) {
	var ms []*model.PageNote
	err := r.scope(ctx, uid).
		Where("page_url_hash = ? AND page_url = ?", pageURLHash, pageURL).
		Order("updated_timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainList(ms), nil
}

// List 分页获取用户全部笔记
func (r *noteRepository) List(ctx context.Context, offset, limit int, uid int64) ([]*domain.Note, error) {
	var ms []*model.PageNote
	err := r.scope(ctx, uid).
		Order("updated_timestamp DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainList(ms), nil
}

// Count 获取用户笔记数量
func (r *noteRepository) Count(ctx context.Context, uid int64) (int64, error) {
	var n int64
	err := r.scope(ctx, uid).Count(&n).Error
	return n, err
}

// Stats 获取全局统计
func (r *noteRepository) Stats(ctx context.Context) (*domain.NoteStats, error) {
	stats := &domain.NoteStats{}
	db := r.dao.DB(ctx)
	if err := db.Model(&model.PageNote{}).Count(&stats.TotalNotes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.PageNote{}).Distinct("uid").Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
