package app

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// PaginationConfig 分页配置
type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultPaginationConfig 默认分页配置
var DefaultPaginationConfig = PaginationConfig{
	DefaultPageSize: 20,
	MaxPageSize:     100,
}

// ParsePager reads page and pageSize from the query string.
// Missing or invalid values fall back to page 1 and the configured default size;
// oversized pages are clamped to MaxPageSize.
// ParsePager 解析分页参数
func ParsePager(c *gin.Context, cfg PaginationConfig) *Pager {
	p := &Pager{
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "pageSize"),
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	switch {
	case p.PageSize <= 0:
		p.PageSize = cfg.DefaultPageSize
	case cfg.MaxPageSize > 0 && p.PageSize > cfg.MaxPageSize:
		p.PageSize = cfg.MaxPageSize
	}
	return p
}

// Offset 当前页第一行的偏移量
func (p *Pager) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
