package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/taskrent-backend/api/controllers"
	uploadcontrollers "github.com/angelmondragon/taskrent-backend/api/controllers/uploads"
	"github.com/angelmondragon/taskrent-backend/api/middleware"
	"github.com/angelmondragon/taskrent-backend/api/routes"
	"github.com/angelmondragon/taskrent-backend/internal/orderstore"
	"github.com/angelmondragon/taskrent-backend/internal/ticketstore"
	"github.com/angelmondragon/taskrent-backend/internal/wallets"
	"github.com/angelmondragon/taskrent-backend/pkg/config"
	"github.com/angelmondragon/taskrent-backend/pkg/db"
	"github.com/angelmondragon/taskrent-backend/pkg/env"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/metrics"
	"github.com/angelmondragon/taskrent-backend/pkg/migrate"
	"github.com/angelmondragon/taskrent-backend/pkg/outbox"
	pkgredis "github.com/angelmondragon/taskrent-backend/pkg/redis"
	"github.com/angelmondragon/taskrent-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{"db": dbClient}
	params := routes.Params{Config: cfg, Logger: logg}

	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := pkgredis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		readiness["redis"] = redisClient
		params.Idempotency = redisClient
		params.RateLimits = middleware.RateLimiterStore(redisClient)
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency and rate limits disabled")
	}

	if cfg.GCS.Enabled() {
		gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		defer func() {
			if err := gcsClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing gcs", err)
			}
		}()
		readiness["gcs"] = gcsClient
		params.Uploader = uploadcontrollers.Uploader(gcsClient)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	params.Gatherer = registry
	params.Readiness = readiness

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	walletService, err := wallets.NewService(wallets.NewRepository(dbClient.DB()), cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ticketService, err := ticketstore.NewService(ticketstore.ServiceParams{
		Repo:           ticketstore.NewRepository(dbClient.DB()),
		Tx:             dbClient,
		Outbox:         emitter,
		Logger:         logg,
		MaxAttachments: cfg.Tickets.MaxAttachments,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ticket service", err)
		os.Exit(1)
	}

	orderService, err := orderstore.NewService(orderstore.ServiceParams{
		Repo:           orderstore.NewRepository(dbClient.DB()),
		Tx:             dbClient,
		Outbox:         emitter,
		Tickets:        ticketService,
		Wallets:        walletService,
		Metrics:        metrics.NewOrderTransitionMetrics(registry),
		Logger:         logg,
		MaxLeaseDays:   cfg.Orders.MaxLeaseDays,
		PlatformFeeBPS: cfg.Orders.PlatformFeeBPS,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	params.Orders = orderService
	params.Tickets = ticketService
	params.Wallets = walletService

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
		"instance":    env.InstanceID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
