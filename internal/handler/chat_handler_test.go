package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nova-chat/internal/model"
	"nova-chat/internal/service"
	"nova-chat/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ReplyEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e model.ReplyEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []model.ReplyEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ReplyEvent(nil), p.events...)
}

func replyFor(t *testing.T, name string) string {
	t.Helper()
	for _, e := range service.KeywordTable() {
		if e.Name == name {
			return e.Reply
		}
	}
	t.Fatalf("no keyword entry named %q", name)
	return ""
}

func newChatEngine(h *ChatHandler) *gin.Engine {
	r := gin.New()
	r.Any("/api/chat", h.Chat)
	return r
}

func doRequest(r http.Handler, method, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/api/chat", nil)
	} else {
		req = httptest.NewRequest(method, "/api/chat", strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatGreeting(t *testing.T) {
	r := newChatEngine(NewChatHandler(service.NewReplyService(), nil, nil))

	before := time.Now().UnixMilli()
	w := doRequest(r, http.MethodPost, `{"message": "hello"}`)
	after := time.Now().UnixMilli()

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, replyFor(t, "greeting"), resp.Reply)
	assert.GreaterOrEqual(t, resp.Timestamp, before)
	assert.LessOrEqual(t, resp.Timestamp, after)
}

func TestChatThanksSubstring(t *testing.T) {
	r := newChatEngine(NewChatHandler(service.NewReplyService(), nil, nil))

	w := doRequest(r, http.MethodPost, `{"message": "thanks a lot"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, replyFor(t, "thanks"), resp.Reply)
}

func TestChatTrimsBeforeResolving(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewChatHandler(service.NewReplyService(), pub, nil)
	h.now = func() time.Time { return time.UnixMilli(1_700_000_000_123) }
	r := newChatEngine(h)

	w := doRequest(r, http.MethodPost, `{"message": "  \n HELP  "}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":"`+replyFor(t, "help")+`","timestamp":1700000000123}`, w.Body.String())
}

func TestChatRejectsInvalidMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"blank", `{"message": "   "}`},
		{"empty string", `{"message": ""}`},
		{"missing field", `{}`},
		{"no body", ``},
		{"null body", `null`},
		{"null message", `{"message": null}`},
		{"number", `{"message": 42}`},
		{"array", `{"message": ["hi"]}`},
		{"invalid json", `{"message": `},
		{"not an object", `"hello"`},
	}
	r := newChatEngine(NewChatHandler(service.NewReplyService(), nil, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Message is required"}`, w.Body.String())
		})
	}
}

func TestChatMethodNotAllowed(t *testing.T) {
	r := newChatEngine(NewChatHandler(service.NewReplyService(), nil, nil))
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			w := doRequest(r, method, `{"message":"hello"}`)
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, "POST", w.Header().Get("Allow"))
			assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
		})
	}
}

func TestChatPublishesEventAndCountsReply(t *testing.T) {
	pub := &recordingPublisher{}
	rec := metrics.New()
	r := newChatEngine(NewChatHandler(service.NewReplyService(), pub, rec))

	doRequest(r, http.MethodPost, `{"message":"what are your features"}`)
	doRequest(r, http.MethodPost, `{"message":"   "}`)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "features", events[0].Rule)
	assert.Equal(t, model.TransportHTTP, events[0].Transport)
	assert.NotZero(t, events[0].Timestamp)
}

func TestChatPublishFailureDoesNotAffectResponse(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	r := newChatEngine(NewChatHandler(service.NewReplyService(), pub, nil))

	w := doRequest(r, http.MethodPost, `{"message":"hey"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseMessage(t *testing.T) {
	msg, err := parseMessage([]byte(`{"message":" hi ","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", msg)

	_, err = parseMessage([]byte(`{"message":"\t"}`))
	assert.ErrorIs(t, err, model.ErrInvalidMessage)
}
