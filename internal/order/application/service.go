package application

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/food-storefront/internal/order/domain"
	"github.com/dmehra2102/food-storefront/internal/realtime"
)

const OrdersPath = "orders"

var (
	ErrNoGeneratedKey = errors.New("store did not return a key for the new order")
	ErrMissingID      = errors.New("order id is required")
	ErrInvalidStatus  = errors.New("invalid order status")
)

// Service is the typed client over the "orders" collection.
type Service struct {
	log    *slog.Logger
	store  OrderStore
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(log *slog.Logger, store OrderStore) *Service {
	return &Service{
		log:    log,
		store:  store,
		tracer: otel.Tracer("order-store"),
		now:    time.Now,
	}
}

func (s *Service) Create(ctx context.Context, items []domain.OrderItem, notes string, status domain.OrderStatus) (string, error) {
	ctx, span := s.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	if status == "" {
		status = domain.StatusCreated
	}
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	id, err := s.store.Push(ctx, OrdersPath, domain.NewRecord(items, notes, status, s.now()))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("create order: %w", err)
	}
	if id == "" {
		span.RecordError(ErrNoGeneratedKey)
		return "", ErrNoGeneratedKey
	}
	span.SetAttributes(attribute.String("order.id", id))
	s.log.Info("order created", "order_id", id, "items", len(items))
	return id, nil
}

func (s *Service) CreateFromCart(ctx context.Context, items []domain.OrderItem, notes string) (string, error) {
	return s.Create(ctx, items, notes, domain.StatusCreated)
}

func (s *Service) Patch(ctx context.Context, id string, fields map[string]any) error {
	ctx, span := s.tracer.Start(ctx, "PatchOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if id == "" {
		return ErrMissingID
	}
	fields = maps.Clone(fields)
	if st, ok := fields["status"]; ok {
		if v, isStatus := st.(domain.OrderStatus); isStatus {
			fields["status"] = string(v)
		}
		if v, _ := fields["status"].(string); !domain.OrderStatus(v).Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidStatus, st)
		}
	}
	if err := s.store.Update(ctx, realtime.Join(OrdersPath, id), fields); err != nil {
		span.RecordError(err)
		return fmt.Errorf("patch order %s: %w", id, err)
	}
	s.log.Info("order updated", "order_id", id)
	return nil
}

func (s *Service) MarkPaid(ctx context.Context, id string) error {
	return s.Patch(ctx, id, map[string]any{"status": string(domain.StatusPaid)})
}

func (s *Service) DeleteByID(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "DeleteOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if id == "" {
		return ErrMissingID
	}
	if err := s.store.Remove(ctx, realtime.Join(OrdersPath, id)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	s.log.Warn("order deleted", "order_id", id)
	return nil
}

// ListOnce reads the collection once, normalized like the feed.
func (s *Service) ListOnce(ctx context.Context) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "ListOrders")
	defer span.End()

	snap, err := s.store.Get(ctx, OrdersPath)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return domain.NormalizeCollection(snap.Value, s.now()), nil
}

// Subscribe opens a feed of full, normalized snapshots of the collection.
func (s *Service) Subscribe(ctx context.Context) (*Feed, error) {
	f := newFeed()
	unsub, err := s.store.Listen(ctx, OrdersPath,
		func(snap realtime.Snapshot) {
			f.send(Update{Orders: domain.NormalizeCollection(snap.Value, s.now())})
		},
		func(err error) {
			s.log.Error("order subscribe error", "err", err)
			f.send(Update{Err: err})
		},
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe orders: %w", err)
	}
	f.unsub = unsub
	s.log.Debug("orders feed opened")
	return f, nil
}
