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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/localdrop-backend/api/routes"
	"github.com/angelmondragon/localdrop-backend/internal/catalog"
	"github.com/angelmondragon/localdrop-backend/internal/checkout"
	"github.com/angelmondragon/localdrop-backend/internal/orders"
	"github.com/angelmondragon/localdrop-backend/internal/profiles"
	stripewebhook "github.com/angelmondragon/localdrop-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/localdrop-backend/pkg/config"
	"github.com/angelmondragon/localdrop-backend/pkg/db"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
	"github.com/angelmondragon/localdrop-backend/pkg/maps"
	"github.com/angelmondragon/localdrop-backend/pkg/metrics"
	"github.com/angelmondragon/localdrop-backend/pkg/migrate"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox"
	"github.com/angelmondragon/localdrop-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/localdrop-backend/pkg/stripe"
)

const (
	shutdownTimeout   = 15 * time.Second
	webhookGuardScope = "stripe-webhook"
	readHeaderTimeout = 10 * time.Second
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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	gormDB := dbClient.DB()
	catalogRepo := catalog.NewRepository(gormDB)
	profileRepo := profiles.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	authorizations := checkout.NewAuthorizationRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	checkoutParams := checkout.ServiceParams{
		Logger:         logg,
		DB:             dbClient,
		Catalog:        catalogRepo,
		Profiles:       profileRepo,
		Payments:       stripeClient,
		Authorizations: authorizations,
		Outbox:         outboxService,
		Metrics:        pipelineMetrics,
		Marketplace:    cfg.Marketplace,
		Currency:       stripeClient.Currency(),
	}
	if mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey); err == nil {
		checkoutParams.Places = mapsClient
	} else {
		logg.Warn(context.Background(), "google maps not configured, place ids will be rejected")
	}
	checkoutService, err := checkout.NewService(checkoutParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	materializer, err := orders.NewMaterializer(orders.MaterializerParams{
		Logger:         logg,
		DB:             dbClient,
		Repo:           ordersRepo,
		Payments:       stripeClient,
		Catalog:        catalogRepo,
		Authorizations: authorizations,
		Outbox:         outboxService,
		Metrics:        pipelineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order materializer", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Repo:     ordersRepo,
		Profiles: profileRepo,
		Payments: stripeClient,
		Outbox:   outboxService,
		Metrics:  pipelineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:    ordersService,
		Transfers: stripeClient,
		Logger:    logg,
		Metrics:   pipelineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewEventGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, webhookGuardScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: readHeaderTimeout,
		Handler: routes.NewRouter(routes.Params{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Checkout:     checkoutService,
			Confirmer:    materializer,
			Orders:       ordersService,
			Webhooks:     webhookService,
			StripeClient: stripeClient,
			WebhookGuard: webhookGuard,
			Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
