package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pierrevannier/freelancehub-backend/api/routes"
	"github.com/pierrevannier/freelancehub-backend/internal/licenses"
	"github.com/pierrevannier/freelancehub-backend/internal/plans"
	"github.com/pierrevannier/freelancehub-backend/internal/subscriptions"
	"github.com/pierrevannier/freelancehub-backend/internal/users"
	"github.com/pierrevannier/freelancehub-backend/pkg/auth/session"
	"github.com/pierrevannier/freelancehub-backend/pkg/config"
	"github.com/pierrevannier/freelancehub-backend/pkg/db"
	"github.com/pierrevannier/freelancehub-backend/pkg/logger"
	"github.com/pierrevannier/freelancehub-backend/pkg/metrics"
	"github.com/pierrevannier/freelancehub-backend/pkg/migrate"
	"github.com/pierrevannier/freelancehub-backend/pkg/outbox"
	"github.com/pierrevannier/freelancehub-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	licensingMetrics := metrics.NewLicensingMetrics(prometheus.DefaultRegisterer)

	catalog := plans.NewCatalog()
	codec := licenses.NewCodec(catalog)

	licenseRepo := licenses.NewRepository(dbClient.DB())
	subscriptionsRepo := subscriptions.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	licenseService, err := licenses.NewService(
		codec,
		catalog,
		licenseRepo,
		subscriptionsRepo,
		usersRepo,
		dbClient,
		outboxService,
		logg,
		licensingMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create license service", err)
		os.Exit(1)
	}

	gate := subscriptions.NewGate(subscriptionsRepo, logg, licensingMetrics)

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
			sessionManager,
			catalog,
			licenseService,
			subscriptionsRepo,
			gate,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error draining api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
