package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/food-storefront/internal/config"
	orderapp "github.com/dmehra2102/food-storefront/internal/order/application"
	orderkafka "github.com/dmehra2102/food-storefront/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/food-storefront/pkg/idempotency"
	"github.com/dmehra2102/food-storefront/pkg/logging"
	"github.com/dmehra2102/food-storefront/pkg/shutdown"
	"github.com/dmehra2102/food-storefront/pkg/tracing"
)

// kitchen-feed follows the storefront change topic and keeps a log of the
// orders the kitchen still has to prepare.
func main() {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	if len(cfg.KafkaBrokers) == 0 {
		log.Error("KAFKA_ADDR is required")
		os.Exit(1)
	}

	tp, err := tracing.Init(ctx, cfg.ServiceName+"-kitchen", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var idem orderkafka.Deduper
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		idem = idempotency.NewStore(rdb, cfg.IdempotencyTTL)
	}

	kitchen := orderapp.NewKitchen(log)
	reader := orderkafka.NewReader(cfg.KafkaBrokers, cfg.OutboxTopic, cfg.KitchenGroup)
	consumer := orderkafka.NewConsumer(log, reader, idem, kitchen.Apply)

	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("kitchen-feed shutdown", "open_orders", len(kitchen.Open()))
			return
		case <-ticker.C:
			log.Info("kitchen backlog", "open_orders", len(kitchen.Open()))
		}
	}
}
