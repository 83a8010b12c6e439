package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/food-storefront/internal/order/domain"
	"github.com/dmehra2102/food-storefront/internal/realtime"
	"github.com/dmehra2102/food-storefront/pkg/outbox"
	"github.com/dmehra2102/food-storefront/pkg/tracing"
)

const ordersCollection = "orders"

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
}

type HandlerFunc func(ctx context.Context, ev domain.OrderChanged) error

// change mirrors the payload the realtime postgres store writes to the outbox.
type change struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Value any    `json:"value"`
	At    int64  `json:"at"`
}

// Consumer reads realtime change events and hands order changes to a handler.
type Consumer struct {
	log    *slog.Logger
	reader MessageReader
	idem   Deduper
	handle HandlerFunc
	tracer trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

// NewConsumer builds a consumer; idem may be nil to disable deduplication.
func NewConsumer(log *slog.Logger, reader MessageReader, idem Deduper, handle HandlerFunc) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		idem:   idem,
		handle: handle,
		tracer: otel.Tracer("kitchen-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if c.duplicate(ctx, msg) {
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}
		c.process(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) duplicate(ctx context.Context, msg kafka.Message) bool {
	if c.idem == nil {
		return false
	}
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Error("idempotency check failed", "err", err)
		return false
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
	}
	return seen
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderChange")
	defer span.End()

	ev, ok, err := Decode(msg)
	if err != nil {
		c.log.Error("unmarshal failed", "offset", msg.Offset, "err", err)
		span.RecordError(err)
		return
	}
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("order.id", ev.OrderID), attribute.String("order.op", ev.Op))
	if err := c.handle(msgCtx, ev); err != nil {
		c.log.Error("order change handler failed", "order_id", ev.OrderID, "err", err)
		span.RecordError(err)
	}
}

// Decode turns a change message into an OrderChanged. ok is false for
// changes outside a single order record.
func Decode(msg kafka.Message) (domain.OrderChanged, bool, error) {
	var ch change
	if err := json.Unmarshal(msg.Value, &ch); err != nil {
		return domain.OrderChanged{}, false, err
	}
	segs := realtime.Split(ch.Path)
	if len(segs) != 2 || segs[0] != ordersCollection {
		return domain.OrderChanged{}, false, nil
	}
	ev := domain.OrderChanged{OrderID: segs[1], Op: ch.Op}
	if ch.Value != nil {
		o := domain.Normalize(segs[1], ch.Value, time.UnixMilli(ch.At))
		ev.Order = &o
	}
	if ev.Op == "" {
		ev.Op = tracing.HeaderValue(msg.Headers, outbox.HeaderOp)
	}
	return ev, true, nil
}
