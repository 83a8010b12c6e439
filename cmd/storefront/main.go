package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmehra2102/food-storefront/internal/config"
	foodapp "github.com/dmehra2102/food-storefront/internal/food/application"
	fooddomain "github.com/dmehra2102/food-storefront/internal/food/domain"
	foodgrpc "github.com/dmehra2102/food-storefront/internal/food/infrastructure/grpc"
	foodhttp "github.com/dmehra2102/food-storefront/internal/food/infrastructure/http"
	"github.com/dmehra2102/food-storefront/internal/food/infrastructure/menufile"
	orderapp "github.com/dmehra2102/food-storefront/internal/order/application"
	orderkafka "github.com/dmehra2102/food-storefront/internal/order/infrastructure/kafka"
	rtpg "github.com/dmehra2102/food-storefront/internal/realtime/postgres"
	userapp "github.com/dmehra2102/food-storefront/internal/user/application"
	userhttp "github.com/dmehra2102/food-storefront/internal/user/infrastructure/http"
	"github.com/dmehra2102/food-storefront/pkg/discovery"
	"github.com/dmehra2102/food-storefront/pkg/idempotency"
	"github.com/dmehra2102/food-storefront/pkg/logging"
	"github.com/dmehra2102/food-storefront/pkg/outbox"
	"github.com/dmehra2102/food-storefront/pkg/shutdown"
	"github.com/dmehra2102/food-storefront/pkg/tracing"
)

func main() {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	if err := cfg.RequireAuth(); err != nil {
		log.Error("config invalid", "err", err)
		os.Exit(1)
	}

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}

	be, err := openBackend(ctx, cfg, log, rdb)
	if err != nil {
		log.Error("store open failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer be.close()
	log.Info("realtime store ready", "driver", cfg.StoreDriver)

	menu := fooddomain.DefaultMenu()
	if cfg.MenuFile != "" {
		if menu, err = menufile.Load(cfg.MenuFile); err != nil {
			log.Error("menu load failed", "path", cfg.MenuFile, "err", err)
			os.Exit(1)
		}
	}

	// Services
	orders := orderapp.NewService(log, be.store)
	users := userapp.NewService(log, be.store)
	auth := userapp.NewAuth(log, be.store, users, userapp.AuthConfig{
		Secret:              []byte(cfg.JWTSecret),
		BootstrapAdminEmail: cfg.AdminBootstrapEmail,
		Issuer:              cfg.ServiceName,
	})
	if cfg.AdminBootstrapEmail != "" {
		log.Warn("bootstrap admin email is configured", "email", cfg.AdminBootstrapEmail)
	}

	store := foodapp.NewStore(log, fooddomain.NewState(menu))
	ctrl := foodapp.NewOrdersController(log, store, orders)
	health := foodgrpc.NewHealth(log)
	store.Subscribe(health.Observe)

	// HTTP
	userHandler := userhttp.NewHandler(log, auth, users)
	foodHandler := foodhttp.NewHandler(log, store, ctrl, orders, userHandler.RequireAdmin)

	r := chi.NewRouter()
	if rdb != nil {
		r.Use(idempotency.Middleware(log, idempotency.NewStore(rdb, cfg.IdempotencyTTL)))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	foodHandler.Mount(r)
	userHandler.Mount(r)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", idempotency.Header},
	})
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      corsHandler.Handler(otelhttp.NewHandler(r, cfg.ServiceName, otelhttp.WithSpanNameFormatter(spanName))),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Orders subscription
	if err := ctrl.Start(ctx); err != nil {
		log.Error("orders subscription failed to start", "err", err)
	}

	// Change feed relay
	if be.pool != nil && len(cfg.KafkaBrokers) > 0 {
		writer := orderkafka.NewWriter(cfg.KafkaBrokers)
		defer writer.Close()
		dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
		relay := outbox.NewRelay(log, rtpg.NewOutboxStore(log, be.pool), dispatch, cfg.ServiceID+"-relay")
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("relay stopped with error", "err", err)
			}
		}()
	}

	// gRPC health
	go func() {
		if err := health.Serve(ctx, cfg.GRPCAddr); err != nil {
			log.Error("grpc server error", "err", err)
		}
	}()

	// Service discovery
	if cfg.ConsulAddr != "" {
		if deregister := registerConsul(cfg, log); deregister != nil {
			defer deregister()
		}
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = ctrl.Stop(shutdownCtx)
	_ = srv.Shutdown(shutdownCtx)
	log.Info("storefront shutdown complete")
}

// registerConsul returns the deregistration func, or nil when Consul could
// not be reached. Discovery is best effort.
func registerConsul(cfg *config.Config, log *slog.Logger) func() {
	consul, err := discovery.NewConsulClient(cfg.ConsulAddr)
	if err != nil {
		log.Warn("consul unavailable", "err", err)
		return nil
	}
	if err := consul.RegisterService(cfg.ServiceID, cfg.ServiceName, cfg.HTTPAddr); err != nil {
		log.Warn("consul registration failed", "err", err)
		return nil
	}
	log.Info("registered with consul", "service_id", cfg.ServiceID)
	return func() {
		if err := consul.DeregisterService(cfg.ServiceID); err != nil {
			log.Warn("consul deregistration failed", "err", err)
		}
	}
}

func spanName(_ string, r *http.Request) string {
	return "HTTP " + r.Method + " " + r.URL.Path
}
