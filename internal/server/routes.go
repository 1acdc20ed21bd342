// Package server 组装 Gin 引擎、中间件和路由。
package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"nova-chat/internal/config"
	"nova-chat/internal/handler"
	"nova-chat/internal/middleware"
	"nova-chat/internal/service"
	"nova-chat/pkg/kafka"
	"nova-chat/pkg/metrics"
	"nova-chat/pkg/ratelimit"
)

// Deps 是路由需要的依赖，Limiter、Publisher、Recorder 都可以为空。
type Deps struct {
	ReplyService service.ReplyService
	Limiter      ratelimit.Limiter
	Publisher    kafka.Publisher
	Recorder     *metrics.Recorder
}

// NewRouter 创建注册好全部路由的 gin.Engine。
func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(deps.Recorder))
	r.Use(cors.New(corsConfig(cfg.CORS)))

	chatHandler := handler.NewChatHandler(deps.ReplyService, deps.Publisher, deps.Recorder)
	wsHandler := handler.NewWebSocketHandler(chatHandler, deps.Limiter, cfg.CORS.AllowOrigins)

	// gin 的 Any 只覆盖标准方法，其余方法落到 NoRoute，这里同样返回 405
	r.NoRoute(func(c *gin.Context) {
		if c.Request.URL.Path == "/api/chat" {
			chatHandler.Chat(c)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	r.GET("/", handler.Index)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled && deps.Recorder != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(deps.Recorder.Handler()))
	}

	api := r.Group("/api")
	if deps.Limiter != nil {
		api.Use(middleware.RateLimit(deps.Limiter, deps.Recorder))
	}
	{
		// 所有方法都交给 Chat，由它返回 405
		api.Any("/chat", chatHandler.Chat)
		api.GET("/chat/ws", wsHandler.Handle)
	}
	return r
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Allow", "Retry-After", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
	}
	return c
}
