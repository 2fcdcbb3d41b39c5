package middleware

import (
	"strings"

	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// tokenFromRequest 按 Header -> Query 的顺序读取用户 Token，支持 Bearer 前缀
func tokenFromRequest(c *gin.Context) string {
	var token string
	if s := c.GetHeader("Authorization"); len(s) != 0 {
		token = s
	} else if s = c.GetHeader("Token"); len(s) != 0 {
		token = s
	} else if s, exist := c.GetQuery("authorization"); exist {
		token = s
	} else if s, exist := c.GetQuery("token"); exist {
		token = s
	}
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// UserAuthTokenWithConfig 用户 Token 认证中间件（使用注入的密钥）
func UserAuthTokenWithConfig(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := app.NewResponse(c)

		token := tokenFromRequest(c)
		if token == "" {
			response.ToResponse(code.ErrorNotUserAuthToken)
			c.Abort()
			return
		}

		user, err := app.ParseTokenWithKey(token, secretKey)
		if err != nil || user.UID <= 0 {
			response.ToResponse(code.ErrorInvalidUserAuthToken)
			c.Abort()
			return
		}
		app.SetUser(c, user)

		c.Next()
	}
}

// AdminOnly 仅允许配置的管理员访问，adminUID 为 0 时全部拒绝
func AdminOnly(adminUID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminUID <= 0 || app.GetUID(c) != adminUID {
			app.NewResponse(c).ToResponse(code.ErrorUserIsNotAdmin)
			c.Abort()
			return
		}
		c.Next()
	}
}
