// Package database 管理外部存储的客户端连接。
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"nova-chat/internal/config"
	"nova-chat/pkg/log"
)

var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接，未配置地址时保持 RDB 为 nil。
func InitRedis(cfg config.RedisConfig) error {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	RDB = client
	log.Info("Redis client connected successfully")
	return nil
}

// CloseRedis 关闭 Redis 连接。
func CloseRedis() {
	if RDB == nil {
		return
	}
	if err := RDB.Close(); err != nil {
		log.Error("关闭 Redis 连接失败", err)
	}
}
