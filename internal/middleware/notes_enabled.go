package middleware

import (
	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// NotesEnabled 笔记功能关闭时拒绝请求，开关在每次请求时读取
func NotesEnabled(enabled func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled() {
			app.NewResponse(c).ToResponse(code.ErrorNotesDisabled)
			c.Abort()
			return
		}
		c.Next()
	}
}
