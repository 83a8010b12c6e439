package application

import (
	"context"

	"github.com/dmehra2102/food-storefront/internal/realtime"
)

// DataStore is the part of the realtime store used for profiles and credentials.
type DataStore interface {
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Get(ctx context.Context, path string) (realtime.Snapshot, error)
}
