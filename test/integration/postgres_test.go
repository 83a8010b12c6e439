//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderapp "github.com/dmehra2102/food-storefront/internal/order/application"
	orderdomain "github.com/dmehra2102/food-storefront/internal/order/domain"
	orderkafka "github.com/dmehra2102/food-storefront/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/food-storefront/internal/realtime"
	rtpg "github.com/dmehra2102/food-storefront/internal/realtime/postgres"
	"github.com/dmehra2102/food-storefront/internal/realtime/realtimetest"
	"github.com/dmehra2102/food-storefront/pkg/logging"
	"github.com/dmehra2102/food-storefront/pkg/outbox"
)

func openPool(t *testing.T, url string) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, rtpg.EnsureSchema(ctx, pool))
	return pool
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE realtime_nodes, outbox RESTART IDENTITY`)
	require.NoError(t, err)
}

func TestPostgresStoreContract(t *testing.T) {
	ctx := context.Background()
	env, err := Setup(ctx, false)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	pool := openPool(t, env.PGURL)
	realtimetest.Run(t, func(t *testing.T) realtime.Store {
		truncate(t, pool)
		return rtpg.NewStore(logging.Discard(), pool)
	})
}

func TestOrderChangesReachKitchen(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	env, err := Setup(ctx, true)
	require.NoError(t, err)
	defer env.Teardown(context.Background())

	log := logging.Discard()
	pool := openPool(t, env.PGURL)
	truncate(t, pool)

	writer := orderkafka.NewWriter(env.KAddr)
	defer writer.Close()
	relay := outbox.NewRelay(log, rtpg.NewOutboxStore(log, pool),
		outbox.NewDispatcher(log, writer, "storefront.changes"), "it-relay",
		outbox.WithInterval(100*time.Millisecond))
	go func() { _ = relay.Run(ctx) }()

	kitchen := orderapp.NewKitchen(log)
	consumer := orderkafka.NewConsumer(log,
		orderkafka.NewReader(env.KAddr, "storefront.changes", "it-kitchen"), nil, kitchen.Apply)
	go func() { _ = consumer.Run(ctx) }()

	orders := orderapp.NewService(log, rtpg.NewStore(log, pool))
	id, err := orders.CreateFromCart(ctx, []orderdomain.OrderItem{
		{ID: 1, Name: "Pizza", Price: decimal.NewFromInt(24), Quantity: 2},
	}, "no onions")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		open := kitchen.Open()
		return len(open) == 1 && open[0].ID == id
	}, time.Minute, 200*time.Millisecond)

	require.NoError(t, orders.DeleteByID(ctx, id))
	require.Eventually(t, func() bool { return len(kitchen.Open()) == 0 }, time.Minute, 200*time.Millisecond)

	var sent int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE status='sent'`).Scan(&sent))
	assert.Equal(t, 2, sent)
}
