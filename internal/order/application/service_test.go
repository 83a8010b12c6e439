package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/food-storefront/internal/order/domain"
	"github.com/dmehra2102/food-storefront/internal/realtime"
	"github.com/dmehra2102/food-storefront/internal/realtime/memory"
	"github.com/dmehra2102/food-storefront/pkg/logging"
)

func newService(t *testing.T, opts ...memory.Option) (*Service, *memory.Store) {
	t.Helper()
	rt := memory.New(logging.Discard(), opts...)
	t.Cleanup(rt.Close)
	return NewService(logging.Discard(), rt), rt
}

func sampleItems() []domain.OrderItem {
	return []domain.OrderItem{{ID: 1, Name: "Hamburguesa de Pollo", Price: decimal.NewFromInt(24), Quantity: 3}}
}

func TestCreateAndList(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	id, err := svc.CreateFromCart(ctx, sampleItems(), "sin cebolla")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	orders, err := svc.ListOnce(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, id, orders[0].ID)
	assert.Equal(t, domain.StatusCreated, orders[0].Status)
	assert.Equal(t, "sin cebolla", orders[0].Notes)
	assert.True(t, orders[0].Total.Equal(decimal.NewFromInt(72)))
}

func TestCreateWithoutGeneratedKey(t *testing.T) {
	svc, rt := newService(t, memory.WithKeyFunc(func() string { return "" }))
	ctx := context.Background()

	_, err := svc.CreateFromCart(ctx, sampleItems(), "")
	require.ErrorIs(t, err, ErrNoGeneratedKey)

	snap, err := rt.Get(ctx, OrdersPath)
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), nil, "", domain.OrderStatus("SHIPPED"))
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestMarkPaidAndDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	id, err := svc.CreateFromCart(ctx, sampleItems(), "")
	require.NoError(t, err)

	require.NoError(t, svc.MarkPaid(ctx, id))
	orders, err := svc.ListOnce(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StatusPaid, orders[0].Status)
	assert.Len(t, orders[0].Items, 1, "patch keeps other fields")

	require.NoError(t, svc.DeleteByID(ctx, id))
	orders, err = svc.ListOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	require.ErrorIs(t, svc.DeleteByID(ctx, ""), ErrMissingID)
	require.ErrorIs(t, svc.Patch(ctx, id, map[string]any{"status": "LOST"}), ErrInvalidStatus)
}

func TestPatchLeavesCallerFieldsAlone(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	id, err := svc.CreateFromCart(ctx, sampleItems(), "")
	require.NoError(t, err)

	fields := map[string]any{"status": domain.StatusCancelled, "notes": "changed"}
	require.NoError(t, svc.Patch(ctx, id, fields))
	assert.Equal(t, domain.StatusCancelled, fields["status"])
	assert.Len(t, fields, 2)

	orders, err := svc.ListOnce(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StatusCancelled, orders[0].Status)
}

func TestSubscribeDeliversFullSnapshots(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	feed, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	defer feed.Close()

	next := func() Update {
		select {
		case u := <-feed.Updates():
			return u
		case <-time.After(2 * time.Second):
			t.Fatal("no update")
			return Update{}
		}
	}

	first := next()
	require.NoError(t, first.Err)
	assert.Empty(t, first.Orders)

	_, err = svc.CreateFromCart(ctx, sampleItems(), "")
	require.NoError(t, err)
	_, err = svc.CreateFromCart(ctx, sampleItems(), "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case u := <-feed.Updates():
			return len(u.Orders) == 2
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFeedCloseStopsDelivery(t *testing.T) {
	svc, rt := newService(t)
	ctx := context.Background()

	feed, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	feed.Close()
	feed.Close()

	n, err := rt.Listeners(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	select {
	case <-feed.Done():
	default:
		t.Fatal("feed not done")
	}
}

type failingStore struct {
	OrderStore
	err error
}

func (f failingStore) Push(context.Context, string, any) (string, error) { return "", f.err }
func (f failingStore) Listen(context.Context, string, func(realtime.Snapshot), func(error)) (realtime.Unsubscribe, error) {
	return nil, f.err
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(logging.Discard(), failingStore{err: boom})

	_, err := svc.CreateFromCart(context.Background(), sampleItems(), "")
	require.ErrorIs(t, err, boom)

	_, err = svc.Subscribe(context.Background())
	require.ErrorIs(t, err, boom)
}
