package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"nova-chat/internal/model"
	"nova-chat/pkg/log"
	"nova-chat/pkg/metrics"
	"nova-chat/pkg/ratelimit"
)

// RateLimit 按客户端 IP 限流，超限返回 429。
// 限流器自身出错时放行请求。
func RateLimit(limiter ratelimit.Limiter, recorder *metrics.Recorder) gin.HandlerFunc {
	retryAfter := strconv.Itoa(max(1, int(limiter.Window().Seconds())))
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warnw("rate limiter unavailable, allowing request", "error", err, "requestId", GetRequestID(c))
			c.Next()
			return
		}
		if !ok {
			recorder.ObserveRateLimited()
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{Error: model.ErrMsgTooManyRequests})
			return
		}
		c.Next()
	}
}
