package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"nova-chat/internal/model"
	"nova-chat/pkg/log"
	"nova-chat/pkg/ratelimit"
)

// WebSocketHandler 以 WebSocket 帧的形式提供同样的一问一答。
type WebSocketHandler struct {
	chat     *ChatHandler
	limiter  ratelimit.Limiter
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建 WebSocketHandler，allowOrigins 含 "*" 时允许所有来源。
// limiter 不为 nil 时每一帧都计入该客户端 IP 的限流窗口。
func NewWebSocketHandler(chat *ChatHandler, limiter ratelimit.Limiter, allowOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		chat:    chat,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowOrigins, "*") || slices.Contains(allowOrigins, origin)
			},
		},
	}
}

// Handle 处理一个 WebSocket 连接，每收到一帧回复一帧。
func (h *WebSocketHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	ctx := c.Request.Context()
	clientIP := c.ClientIP()
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var out interface{}
		if !h.allow(ctx, clientIP) {
			out = model.ErrorResponse{Error: model.ErrMsgTooManyRequests}
		} else if message, err := parseMessage(data); err != nil {
			out = model.ErrorResponse{Error: model.ErrMsgMessageRequired}
		} else {
			// 每一帧都是独立的一次请求
			out = h.chat.reply(ctx, message, uuid.NewString(), model.TransportWebSocket)
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Warnf("写入 WebSocket 消息失败: %v", err)
			return
		}
	}
}

// allow 对单帧做限流检查，限流器出错时放行。
func (h *WebSocketHandler) allow(ctx context.Context, clientIP string) bool {
	if h.limiter == nil {
		return true
	}
	ok, err := h.limiter.Allow(ctx, clientIP)
	if err != nil {
		log.Warnw("rate limiter unavailable, allowing frame", "error", err)
		return true
	}
	if !ok {
		h.chat.recorder.ObserveRateLimited()
	}
	return ok
}
