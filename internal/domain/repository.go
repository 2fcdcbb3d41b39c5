package domain

import "context"

// NoteRepository 页面笔记仓储接口
// 所有方法都以 uid 限定范围，其他用户的笔记对调用方不可见
type NoteRepository interface {
	// GetByID 根据 ID 获取用户笔记，不存在或不属于该用户时返回 gorm.ErrRecordNotFound
	GetByID(ctx context.Context, id, uid int64) (*Note, error)

	// Create 创建笔记
	Create(ctx context.Context, note *Note, uid int64) (*Note, error)

	// UpdateContent replaces the content of a note owned by uid and bumps its version.
	// When expectedVersion > 0 the row is only written if its version still matches.
	// UpdateContent 更新笔记内容并递增版本号
	UpdateContent(ctx context.Context, note *Note, expectedVersion int64, uid int64) (*Note, error)

	// Delete 物理删除笔记，返回受影响行数
	Delete(ctx context.Context, id, uid int64) (int64, error)

	// ListByPage 按页面获取笔记，按更新时间倒序
	ListByPage(ctx context.Context, pageURL, pageURLHash string, limit int, uid int64) ([]*Note, error)

	// List 获取用户全部笔记中从 offset 开始的 limit 条，按更新时间倒序
	List(ctx context.Context, offset, limit int, uid int64) ([]*Note, error)

	// Count 获取用户笔记数量
	Count(ctx context.Context, uid int64) (int64, error)

	// Stats 获取全局统计
	Stats(ctx context.Context) (*NoteStats, error)
}

// NoteNotifier 笔记变更通知
type NoteNotifier interface {
	NotifyNote(uid int64, event NoteEvent)
}
