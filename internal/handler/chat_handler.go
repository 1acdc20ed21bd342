// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"nova-chat/internal/middleware"
	"nova-chat/internal/model"
	"nova-chat/internal/service"
	"nova-chat/pkg/kafka"
	"nova-chat/pkg/log"
	"nova-chat/pkg/metrics"
)

// maxBodyBytes 限制单条聊天请求体的大小。
const maxBodyBytes = 1 << 20

// ChatHandler 处理聊天请求。
type ChatHandler struct {
	replyService service.ReplyService
	publisher    kafka.Publisher
	recorder     *metrics.Recorder
	now          func() time.Time
}

// NewChatHandler 创建一个新的 ChatHandler。publisher 和 recorder 可以为 nil。
func NewChatHandler(replyService service.ReplyService, publisher kafka.Publisher, recorder *metrics.Recorder) *ChatHandler {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &ChatHandler{
		replyService: replyService,
		publisher:    publisher,
		recorder:     recorder,
		now:          time.Now,
	}
}

// Chat 处理 /api/chat。只接受 POST。
func (h *ChatHandler) Chat(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		c.JSON(http.StatusMethodNotAllowed, model.ErrorResponse{Error: model.ErrMsgMethodNotAllowed})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: model.ErrMsgMessageRequired})
		return
	}
	message, err := parseMessage(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: model.ErrMsgMessageRequired})
		return
	}

	resp := h.reply(c.Request.Context(), message, middleware.GetRequestID(c), model.TransportHTTP)
	c.JSON(http.StatusOK, resp)
}

// parseMessage 从 JSON 请求体中取出去掉首尾空白的 message。
func parseMessage(body []byte) (string, error) {
	var req model.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", model.ErrInvalidMessage
	}
	if req.Message == nil {
		return "", model.ErrInvalidMessage
	}
	message := strings.TrimSpace(*req.Message)
	if message == "" {
		return "", model.ErrInvalidMessage
	}
	return message, nil
}

// reply 解析回复、记录指标并发布事件，返回待发送的响应。
func (h *ChatHandler) reply(ctx context.Context, message, requestID, transport string) model.ChatResponse {
	resolution := h.replyService.Resolve(message)
	h.recorder.ObserveReply(resolution.Rule, transport)

	resp := model.ChatResponse{Reply: resolution.Reply, Timestamp: h.now().UnixMilli()}
	event := model.ReplyEvent{
		RequestID: requestID,
		Rule:      resolution.Rule,
		Transport: transport,
		Timestamp: resp.Timestamp,
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		log.Warnw("failed to publish reply event", "error", err, "requestId", requestID)
	}
	return resp
}
