package dto

import (
	"github.com/haierkeys/page-notes-service/pkg/timex"
)

// NoteDTO Note data transfer object
// NoteDTO 笔记数据传输对象，不包含所有者
type NoteDTO struct {
	ID               int64      `json:"id"`
	PageURL          string     `json:"pageUrl"`
	PageTitle        string     `json:"pageTitle"`
	Content          string     `json:"content"`
	Version          int64      `json:"version"`
	UpdatedTimestamp int64      `json:"updatedTimestamp"`
	CreatedAt        timex.Time `json:"createdAt"`
	UpdatedAt        timex.Time `json:"updatedAt"`
}

// NoteAddRequest Request parameters for creating a note
// NoteAddRequest 新增笔记请求参数
// PageTitle 原样最长 2048，保存前去除标签并截断到 util.MaxPageTitleLength 个字符
type NoteAddRequest struct {
	PageURL   string `json:"pageUrl" form:"pageUrl" binding:"required,max=2048"`
	PageTitle string `json:"pageTitle" form:"pageTitle" binding:"max=2048"`
	Content   string `json:"content" form:"content" binding:"required"`
}

// NoteUpdateRequest Request parameters for replacing note content
// NoteUpdateRequest 修改笔记内容请求参数
// Version 可选，大于 0 时作为期望版本校验
type NoteUpdateRequest struct {
	ID      int64  `json:"id" form:"id" binding:"required,gte=1"`
	Content string `json:"content" form:"content" binding:"required"`
	Version int64  `json:"version" form:"version" binding:"gte=0"`
}

// NoteDeleteRequest Request parameters for deleting a note
// NoteDeleteRequest 删除笔记请求参数
type NoteDeleteRequest struct {
	ID int64 `json:"id" form:"id" binding:"required,gte=1"`
}

// NoteListForPageRequest Request parameters for listing notes of one page
// NoteListForPageRequest 获取页面笔记请求参数
type NoteListForPageRequest struct {
	PageURL string `json:"pageUrl" form:"pageUrl" binding:"required"`
}

// NoteStatsDTO global note statistics
// NoteStatsDTO 全局笔记统计
type NoteStatsDTO struct {
	TotalNotes int64 `json:"totalNotes"`
	TotalUsers int64 `json:"totalUsers"`
}
