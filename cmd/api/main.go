package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/qatalysthq/qatalyst-backend/api/routes"
	"github.com/qatalysthq/qatalyst-backend/internal/agents"
	"github.com/qatalysthq/qatalyst-backend/internal/airtime"
	"github.com/qatalysthq/qatalyst-backend/internal/queue"
	"github.com/qatalysthq/qatalyst-backend/internal/ussd"
	"github.com/qatalysthq/qatalyst-backend/pkg/config"
	"github.com/qatalysthq/qatalyst-backend/pkg/db"
	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
	"github.com/qatalysthq/qatalyst-backend/pkg/metrics"
	"github.com/qatalysthq/qatalyst-backend/pkg/migrate"
	"github.com/qatalysthq/qatalyst-backend/pkg/outbox"
	"github.com/qatalysthq/qatalyst-backend/pkg/redis"
)

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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	queueMetrics := metrics.NewQueueMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	queueService, err := queue.NewService(
		queue.NewRepository(dbClient.DB()),
		agents.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		logg,
		queueMetrics,
		cfg.Queue.MinutesPerTicket,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create queue service", err)
		os.Exit(1)
	}

	airtimeService, err := airtime.NewService(airtime.NewProviderChain(cfg.Airtime, logg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create airtime service", err)
		os.Exit(1)
	}

	ussdEngine, err := ussd.NewEngine(queueService, airtimeService, logg, queueMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ussd engine", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			queueService,
			agents.NewRepository(dbClient.DB()),
			ussdEngine,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
