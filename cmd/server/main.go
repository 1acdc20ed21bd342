// Package main 是聊天组件服务的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"nova-chat/internal/config"
	"nova-chat/internal/server"
	"nova-chat/internal/service"
	"nova-chat/pkg/database"
	"nova-chat/pkg/kafka"
	"nova-chat/pkg/log"
	"nova-chat/pkg/metrics"
	"nova-chat/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", envOr("NOVA_CONFIG", "./configs/config.yaml"), "path to the YAML config file")
	flag.Parse()

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 可选依赖：Redis（限流）和 Kafka（回复事件）
	if err := database.InitRedis(cfg.Database.Redis); err != nil {
		log.Fatal("Redis 初始化失败", err)
	}
	defer database.CloseRedis()

	publisher := kafka.NewPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("关闭 Kafka 生产者失败", err)
		}
	}()

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		if database.RDB != nil {
			limiter = ratelimit.NewRedisLimiter(database.RDB, cfg.RateLimit.Window, cfg.RateLimit.Capacity)
		} else {
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Window, cfg.RateLimit.Capacity)
		}
		log.Infow("限流已启用", "window", cfg.RateLimit.Window.String(), "capacity", cfg.RateLimit.Capacity, "redis", database.RDB != nil)
	}

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
	}

	// 4. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := server.NewRouter(cfg, server.Deps{
		ReplyService: service.NewReplyService(),
		Limiter:      limiter,
		Publisher:    publisher,
		Recorder:     recorder,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}
	log.Info("服务已优雅关闭")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
