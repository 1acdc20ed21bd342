// Package kafka 提供了回复事件的发布与消费。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nova-chat/internal/config"
	"nova-chat/internal/model"
	"nova-chat/pkg/log"

	"github.com/segmentio/kafka-go"
)

// Publisher 发布回复事件。
type Publisher interface {
	Publish(ctx context.Context, event model.ReplyEvent) error
	Close() error
}

// messageWriter 是 *kafka.Writer 中我们用到的部分。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type producer struct {
	writer messageWriter
}

// NewPublisher 根据配置创建 Publisher，未配置 brokers 时返回空实现。
func NewPublisher(cfg config.KafkaConfig) Publisher {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		Async:        true, // 不阻塞聊天响应
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Errorf("回复事件写入 Kafka 失败: count=%d, err=%v", len(messages), err)
			}
		},
	}
	log.Infof("Kafka 生产者初始化成功, topic=%s", cfg.Topic)
	return &producer{writer: w}
}

// Publish 把事件序列化后写入 Kafka，以规则名作为 key。
func (p *producer) Publish(ctx context.Context, event model.ReplyEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.Rule), Value: value}); err != nil {
		return fmt.Errorf("failed to write reply event: %w", err)
	}
	return nil
}

func (p *producer) Close() error {
	return p.writer.Close()
}

// NopPublisher 在未启用 Kafka 时使用。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.ReplyEvent) error { return nil }
func (NopPublisher) Close() error                                    { return nil }

// EventHandler 处理一条消费到的回复事件。
type EventHandler func(ctx context.Context, event model.ReplyEvent) error

// messageReader 是 *kafka.Reader 中我们用到的部分。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartConsumer 消费回复事件直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, handle EventHandler) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.BrokerList(),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	return consume(ctx, r, handle)
}

func consume(ctx context.Context, r messageReader, handle EventHandler) error {
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("从 Kafka 读取消息失败: %w", err)
		}

		var event model.ReplyEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			// 格式错误的消息直接提交，避免阻塞队列
			log.Errorf("无法解析 Kafka 消息: %v, offset=%d", err, m.Offset)
		} else if err := handle(ctx, event); err != nil {
			log.Errorf("处理回复事件失败: offset=%d, err=%v", m.Offset, err)
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}
