// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"nova-chat/pkg/log"
	"nova-chat/pkg/metrics"
)

const (
	// RequestIDHeader 是透传请求 ID 的头。
	RequestIDHeader = "X-Request-ID"
	// ContextRequestIDKey 是请求 ID 在 gin.Context 中的键。
	ContextRequestIDKey = "requestId"
)

// RequestID 读取或生成请求 ID，并写回响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 返回当前请求的 ID，没有经过 RequestID 中间件时为空。
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextRequestIDKey)
}

// RequestLogger 记录每个请求的结构化日志并计数。
// 不记录请求体，聊天内容不落盘。
func RequestLogger(recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		recorder.ObserveRequest(c.Request.Method, strconv.Itoa(statusCode))
		log.Infow("HTTP Request Log",
			"statusCode", statusCode,
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestId", GetRequestID(c),
		)
	}
}
