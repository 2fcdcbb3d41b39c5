package model

import "github.com/haierkeys/page-notes-service/pkg/timex"

const TableNamePageNote = "page_note"

// PageNote mapped from table <page_note>
type PageNote struct {
	ID               int64      `gorm:"column:id;primaryKey" json:"id" form:"id"`
	UID              int64      `gorm:"column:uid;not null;index:idx_page_note_uid_url,priority:1;index:idx_page_note_uid_updated,priority:1" json:"uid" form:"uid"`
	PageURL          string     `gorm:"column:page_url;type:varchar(2048);not null" json:"pageUrl" form:"pageUrl"`
	PageURLHash      string     `gorm:"column:page_url_hash;type:varchar(32);not null;index:idx_page_note_uid_url,priority:2" json:"pageUrlHash" form:"pageUrlHash"`
	PageTitle        string     `gorm:"column:page_title;type:varchar(512);default:''" json:"pageTitle" form:"pageTitle"`
	Content          string     `gorm:"column:content;type:text;not null" json:"content" form:"content"`
	Version          int64      `gorm:"column:version;not null;default:1" json:"version" form:"version"`
	UpdatedTimestamp int64      `gorm:"column:updated_timestamp;not null;default:0;index:idx_page_note_uid_updated,priority:2" json:"updatedTimestamp" form:"updatedTimestamp"`
	CreatedAt        timex.Time `gorm:"column:created_at;default:NULL;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	UpdatedAt        timex.Time `gorm:"column:updated_at;default:NULL;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName PageNote's table name
func (*PageNote) TableName() string {
	return TableNamePageNote
}
