package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/food-storefront/internal/realtime"
	"github.com/dmehra2102/food-storefront/internal/realtime/realtimetest"
	"github.com/dmehra2102/food-storefront/pkg/logging"
)

func TestContract(t *testing.T) {
	realtimetest.Run(t, func(t *testing.T) realtime.Store {
		s := New(logging.Discard())
		t.Cleanup(s.Close)
		return s
	})
}

func TestListenersCount(t *testing.T) {
	s := New(logging.Discard())
	defer s.Close()
	ctx := context.Background()

	u1, err := s.Listen(ctx, "orders", nil, nil)
	require.NoError(t, err)
	u2, err := s.Listen(ctx, "users", nil, nil)
	require.NoError(t, err)

	n, err := s.Listeners(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	u1()
	u2()
	n, err = s.Listeners(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClosedStore(t *testing.T) {
	s := New(logging.Discard())
	s.Close()
	s.Close()

	err := s.Set(context.Background(), "orders/x", 1)
	require.ErrorIs(t, err, realtime.ErrClosed)
}

func TestEmptyKeyFunc(t *testing.T) {
	s := New(logging.Discard(), WithKeyFunc(func() string { return "" }))
	defer s.Close()

	key, err := s.Push(context.Background(), "orders", map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(logging.Discard())
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "orders/o1", map[string]any{"status": "CREATED"}))
	snap, err := s.Get(ctx, "orders/o1")
	require.NoError(t, err)
	snap.Children()["status"] = "PAID"

	snap, err = s.Get(ctx, "orders/o1/status")
	require.NoError(t, err)
	assert.Equal(t, "CREATED", snap.Value)
}
