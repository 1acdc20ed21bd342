package model

// KeywordEntry 把一组触发子串映射到一条固定回复。
type KeywordEntry struct {
	Name     string
	Keywords []string
	Reply    string
}

// RuleFallback 是没有命中任何关键词时的规则名。
const RuleFallback = "fallback"

// Resolution 是一次回复解析的结果，Rule 为命中的规则名或 RuleFallback。
type Resolution struct {
	Reply string
	Rule  string
}

// 事件产生的传输通道
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// ReplyEvent 是发送到 Kafka 的回复事件，不包含用户消息原文。
type ReplyEvent struct {
	RequestID string `json:"requestId"`
	Rule      string `json:"rule"`
	Transport string `json:"transport"`
	Timestamp int64  `json:"timestamp"`
}
