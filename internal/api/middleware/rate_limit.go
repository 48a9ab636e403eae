package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lookfree/techAssis-sub000/pkg/redis"
	"github.com/lookfree/techAssis-sub000/pkg/response"
)

// RateLimit 基于 Redis 固定窗口的速率限制中间件
// 签到接口按"用户 + 路由"限流，抵御验证码爆破；未认证请求退回按 IP。
// rdb 为 nil 或 Redis 出错时降级放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if uid, exists := c.Get("user_id"); exists {
			subject = uid.(string)
		}
		key := fmt.Sprintf("rate_limit:%s:%s", subject, c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
