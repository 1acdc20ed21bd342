// Command replytail 消费回复事件并打印到日志，用于观察规则命中情况。
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"nova-chat/internal/config"
	"nova-chat/internal/model"
	"nova-chat/pkg/kafka"
	"nova-chat/pkg/log"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	config.Init(*configPath)
	cfg := config.Conf
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	if len(cfg.Kafka.BrokerList()) == 0 {
		log.Fatalf("kafka.brokers 未配置，无法消费主题 %s", cfg.Kafka.Topic)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counts := make(map[string]int)
	err := kafka.StartConsumer(ctx, cfg.Kafka, func(_ context.Context, e model.ReplyEvent) error {
		counts[e.Rule]++
		log.Infow("reply event",
			"requestId", e.RequestID,
			"rule", e.Rule,
			"transport", e.Transport,
			"timestamp", e.Timestamp,
			"ruleCount", counts[e.Rule],
		)
		return nil
	})
	if err != nil {
		log.Error("消费回复事件失败", err)
	}
	log.Infow("replytail 退出", "counts", counts)
}
