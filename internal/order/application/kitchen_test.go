package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/food-storefront/internal/order/domain"
	"github.com/dmehra2102/food-storefront/pkg/logging"
)

func TestKitchenBoard(t *testing.T) {
	k := NewKitchen(logging.Discard())
	ctx := context.Background()

	created := domain.Order{ID: "b", Status: domain.StatusCreated}
	require.NoError(t, k.Apply(ctx, domain.OrderChanged{OrderID: "b", Op: "set", Order: &created}))
	other := domain.Order{ID: "a", Status: domain.StatusCreated}
	require.NoError(t, k.Apply(ctx, domain.OrderChanged{OrderID: "a", Op: "set", Order: &other}))

	paid := created
	paid.Status = domain.StatusPaid
	require.NoError(t, k.Apply(ctx, domain.OrderChanged{OrderID: "b", Op: "update", Order: &paid}))

	open := k.Open()
	require.Len(t, open, 2)
	assert.Equal(t, "a", open[0].ID)
	assert.Equal(t, domain.StatusPaid, open[1].Status)

	require.NoError(t, k.Apply(ctx, domain.OrderChanged{OrderID: "b", Op: "remove"}))
	cancelled := other
	cancelled.Status = domain.StatusCancelled
	require.NoError(t, k.Apply(ctx, domain.OrderChanged{OrderID: "a", Op: "update", Order: &cancelled}))
	assert.Empty(t, k.Open())
}
