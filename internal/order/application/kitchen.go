package application

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/dmehra2102/food-storefront/internal/order/domain"
)

// Kitchen keeps the orders still to be prepared, fed from the change stream.
// Cancelled and deleted orders leave the board.
type Kitchen struct {
	log *slog.Logger

	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewKitchen(log *slog.Logger) *Kitchen {
	return &Kitchen{log: log, orders: map[string]domain.Order{}}
}

func (k *Kitchen) Apply(ctx context.Context, ev domain.OrderChanged) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if ev.Order == nil || ev.Order.Status == domain.StatusCancelled {
		if _, ok := k.orders[ev.OrderID]; ok {
			delete(k.orders, ev.OrderID)
			k.log.Info("order left kitchen", "order_id", ev.OrderID, "op", ev.Op)
		}
		return nil
	}

	prev, known := k.orders[ev.OrderID]
	k.orders[ev.OrderID] = *ev.Order
	switch {
	case !known:
		k.log.Info("new order for kitchen", "order_id", ev.OrderID, "items", len(ev.Order.Items), "total", ev.Order.Total.String())
	case prev.Status != ev.Order.Status:
		k.log.Info("order status changed", "order_id", ev.OrderID, "from", prev.Status, "to", ev.Order.Status)
	}
	return nil
}

// Open lists the orders on the board ordered by key.
func (k *Kitchen) Open() []domain.Order {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]domain.Order, 0, len(k.orders))
	for _, o := range k.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
