package middleware

import (
	"github.com/gin-gonic/gin"
)

// HeaderServerVersion 响应头，客户端据此判断服务端版本
const HeaderServerVersion = "X-Server-Version"

// ServerHeader 在每个响应上标注服务名与版本
func ServerHeader(name, version string) gin.HandlerFunc {
	value := name + "/" + version
	return func(c *gin.Context) {
		c.Header(HeaderServerVersion, value)
		c.Next()
	}
}
