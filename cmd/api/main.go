package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/boxoffice-backend/api/controllers"
	"github.com/angelmondragon/boxoffice-backend/api/routes"
	"github.com/angelmondragon/boxoffice-backend/internal/cart"
	"github.com/angelmondragon/boxoffice-backend/internal/checkout"
	"github.com/angelmondragon/boxoffice-backend/internal/fetch"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/internal/panel"
	"github.com/angelmondragon/boxoffice-backend/internal/ticketing"
	"github.com/angelmondragon/boxoffice-backend/pkg/clock"
	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/angelmondragon/boxoffice-backend/pkg/db"
	"github.com/angelmondragon/boxoffice-backend/pkg/env"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
	"github.com/angelmondragon/boxoffice-backend/pkg/migrate"
	"github.com/angelmondragon/boxoffice-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	ticketingClient, err := ticketing.NewClient(cfg.Ticketing.BaseURL,
		ticketing.WithAPIKey(cfg.Ticketing.APIKey),
		ticketing.WithTimeout(cfg.Ticketing.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ticketing client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	clk := clock.Real()

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, clk)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	carts := cart.NewSessions(cart.NewRedisBackend(redisClient, cfg.Cart.TTL), logg,
		cart.WithClock(clk),
		cart.WithMaxIdle(cfg.Cart.SessionIdle),
	)
	checkouts := checkout.NewManager(carts, checkout.Deps{
		API:     ticketingClient,
		Orders:  ordersService,
		Lock:    redis.NewLocker(redisClient),
		LockKey: redisClient.CheckoutLockKey,
		Clock:   clk,
		Metrics: metrics.NewCheckoutMetrics(registry),
		Logger:  logg,
		Options: checkout.OptionsFromConfig(cfg.Checkout),
	}).WithMaxIdle(cfg.Cart.SessionIdle)

	runner := fetch.NewRunner(fetch.PolicyFromConfig(cfg.Fetch), clk, metrics.NewFetchMetrics(registry), logg)
	panels := panel.NewManager(runner, ticketingClient, logg)

	addr := ":" + env.Get("PORT", cfg.App.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": env.InstanceID(),
		"driver":   dbClient.Driver(),
	})
	logg.Info(ctx, "starting api server")

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go checkouts.RunJanitor(janitorCtx, cfg.Cart.SweepInterval)

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			Gatherer: registry,
			Metrics:  metrics.NewHTTPMetrics(registry),
			Ready: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Events:   ticketingClient,
			Carts:    carts,
			Checkout: checkouts,
			Orders:   ordersService,
			Panels:   panels,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first, then drain every timer-driven component
	// before the stores they write to are closed.
	shutdownErr := server.Shutdown(shutdownCtx)
	stopJanitor()
	checkouts.CloseAll()
	panels.CloseAll()
	shutdownErr = multierr.Combine(shutdownErr, redisClient.Close(), dbClient.Close())
	if shutdownErr != nil {
		logg.Error(ctx, "api server shutdown incomplete", shutdownErr)
		exitCode = 1
	} else {
		logg.Info(ctx, "api server shut down gracefully")
	}

	os.Exit(exitCode)
}
