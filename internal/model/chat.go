// Package model 包含了应用的数据模型定义。
package model

import "errors"

// 对外可见的错误文案，前端只区分成功与失败。
const (
	ErrMsgMethodNotAllowed = "Method not allowed"
	ErrMsgMessageRequired  = "Message is required"
	ErrMsgTooManyRequests  = "Too many requests"
)

// ErrInvalidMessage message 缺失、不是字符串或去空白后为空。
var ErrInvalidMessage = errors.New(ErrMsgMessageRequired)

// ChatRequest 是聊天接口的请求体。
// Message 用指针区分字段缺失和空字符串。
type ChatRequest struct {
	Message *string `json:"message"`
}

// ChatResponse 是聊天接口的成功响应。
type ChatResponse struct {
	Reply     string `json:"reply"`
	Timestamp int64  `json:"timestamp"` // 毫秒时间戳
}

// ErrorResponse 是所有错误响应的统一结构。
type ErrorResponse struct {
	Error string `json:"error"`
}
