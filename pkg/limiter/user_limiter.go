package limiter

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// UserLimiter gives every authenticated user their own bucket built from a template rule.
// Anonymous requests share the bucket of uid 0.
// UserLimiter 为每个用户按模板规则创建独立令牌桶
type UserLimiter struct {
	*Limiter
	template BucketRule
	uidFunc  func(c *gin.Context) int64
}

func NewUserLimiter(template BucketRule, uidFunc func(c *gin.Context) int64) *UserLimiter {
	if template.FillInterval <= 0 {
		template.FillInterval = time.Second
	}
	return &UserLimiter{
		Limiter:  &Limiter{limiterBuckets: make(map[string]*ratelimit.Bucket)},
		template: template,
		uidFunc:  uidFunc,
	}
}

func (l *UserLimiter) Key(c *gin.Context) string {
	key := "uid:" + strconv.FormatInt(l.uidFunc(c), 10)
	if _, ok := l.GetBucket(key); !ok {
		rule := l.template
		rule.Key = key
		l.addBuckets(rule)
	}
	return key
}

func (l *UserLimiter) AddBuckets(rules ...BucketRule) Face {
	l.addBuckets(rules...)
	return l
}
