package middleware

import (
	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// NotFound answers unknown routes with the envelope instead of gin's plain text page
// NotFound 未匹配路由返回统一响应，details 带上请求方法与路径
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		app.NewResponse(c).ToResponse(code.ErrorNotFoundAPI.WithDetails(c.Request.Method + " " + c.Request.URL.Path))
		c.Abort()
	}
}
