package middleware

import (
	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// RequestNonceHeader 请求校验令牌的请求头
const RequestNonceHeader = "X-Request-Nonce"

// RequestNonce verifies the forged-request nonce of a mutating call.
// It must run after UserAuthTokenWithConfig; the nonce has to be bound to the same uid.
// RequestNonce 校验请求校验令牌，需在用户认证之后执行
func RequestNonce(tm app.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce := c.GetHeader(RequestNonceHeader)
		if nonce == "" {
			nonce = c.Query("nonce")
		}
		if nonce == "" && c.ContentType() != "application/json" {
			nonce = c.PostForm("nonce")
		}

		if err := tm.VerifyNonce(nonce, app.GetUID(c)); err != nil {
			app.NewResponse(c).ToResponse(code.ErrorInvalidRequestNonce)
			c.Abort()
			return
		}
		c.Next()
	}
}
