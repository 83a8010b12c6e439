package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmehra2102/food-storefront/internal/food/domain"
)

// OrdersService is the health service name that follows the orders
// subscription.
const OrdersService = "storefront.orders"

// Health exposes the standard gRPC health service. The overall status is
// SERVING while the process runs; OrdersService mirrors the subscription.
type Health struct {
	log *slog.Logger
	srv *health.Server

	mu   sync.Mutex
	last healthpb.HealthCheckResponse_ServingStatus
}

func NewHealth(log *slog.Logger) *Health {
	h := &Health{log: log, srv: health.NewServer(), last: healthpb.HealthCheckResponse_NOT_SERVING}
	h.srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.srv.SetServingStatus(OrdersService, h.last)
	return h
}

func (h *Health) Server() healthpb.HealthServer { return h.srv }

// Observe is registered as a Store observer.
func (h *Health) Observe(st domain.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if st.OrdersStatus == domain.SubscriptionSucceeded {
		status = healthpb.HealthCheckResponse_SERVING
	}

	h.mu.Lock()
	changed := status != h.last
	h.last = status
	h.mu.Unlock()
	if !changed {
		return
	}
	h.srv.SetServingStatus(OrdersService, status)
	h.log.Info("health status changed", "service", OrdersService, "status", status.String(), "orders_status", st.OrdersStatus)
}

// Serve runs a gRPC server with the health service on addr until ctx is done.
func (h *Health) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, h.srv)

	go func() {
		<-ctx.Done()
		h.srv.Shutdown()
		gs.GracefulStop()
	}()
	h.log.Info("grpc listening", "addr", addr)
	return gs.Serve(lis)
}
