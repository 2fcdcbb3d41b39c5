// Package domain 定义领域模型和接口
package domain

import (
	"fmt"
	"time"
)

// NoteAction 笔记变更类型
type NoteAction string

const (
	NoteActionCreate NoteAction = "create"
	NoteActionModify NoteAction = "modify"
	NoteActionDelete NoteAction = "delete"
)

// Note 页面笔记领域模型
type Note struct {
	ID               int64
	UID              int64
	PageURL          string
	PageURLHash      string
	PageTitle        string
	Content          string
	Version          int64
	UpdatedTimestamp int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NoteEvent is published after every successful mutation of a note
// NoteEvent 笔记变更事件
type NoteEvent struct {
	Action           NoteAction `json:"action"`
	NoteID           int64      `json:"noteId"`
	PageURL          string     `json:"pageUrl"`
	Version          int64      `json:"version"`
	UpdatedTimestamp int64      `json:"updatedTimestamp"`
}

// NoteStats 全局笔记统计
type NoteStats struct {
	TotalNotes int64
	TotalUsers int64
}

// VersionConflictError is returned when an update carries an expected version that no longer matches.
// Current holds the stored note at the time of the check.
// VersionConflictError 版本冲突错误
type VersionConflictError struct {
	Current *Note
}

func (e *VersionConflictError) Error() string {
	if e.Current == nil {
		return "note version conflict"
	}
	return fmt.Sprintf("note %d version conflict, current version %d", e.Current.ID, e.Current.Version)
}
