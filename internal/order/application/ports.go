package application

import (
	"context"

	"github.com/dmehra2102/food-storefront/internal/realtime"
)

// OrderStore is the part of the realtime store the order client needs.
type OrderStore interface {
	Push(ctx context.Context, path string, value any) (string, error)
	Update(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error
	Get(ctx context.Context, path string) (realtime.Snapshot, error)
	Listen(ctx context.Context, path string, onValue func(realtime.Snapshot), onError func(error)) (realtime.Unsubscribe, error)
}
