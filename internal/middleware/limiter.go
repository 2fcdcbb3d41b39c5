package middleware

import (
	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"
	"github.com/haierkeys/page-notes-service/pkg/limiter"

	"github.com/gin-gonic/gin"
)

// RateLimiter rejects requests whose bucket is empty; keys without a bucket pass through
// RateLimiter 限流中间件，未配置令牌桶的键直接放行
func RateLimiter(limiters ...limiter.Face) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, l := range limiters {
			bucket, ok := l.GetBucket(l.Key(c))
			if !ok {
				continue
			}
			if bucket.TakeAvailable(1) == 0 {
				c.Header("Retry-After", "1")
				app.NewResponse(c).ToResponse(code.ErrorTooManyRequests)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
