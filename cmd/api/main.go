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
	"go.uber.org/multierr"

	"github.com/openlots/openlots-backend/api/routes"
	"github.com/openlots/openlots-backend/internal/auth"
	"github.com/openlots/openlots-backend/internal/bids"
	"github.com/openlots/openlots-backend/internal/comments"
	"github.com/openlots/openlots-backend/internal/listings"
	"github.com/openlots/openlots-backend/internal/watchlist"
	"github.com/openlots/openlots-backend/pkg/clock"
	"github.com/openlots/openlots-backend/pkg/config"
	"github.com/openlots/openlots-backend/pkg/db"
	"github.com/openlots/openlots-backend/pkg/logger"
	"github.com/openlots/openlots-backend/pkg/metrics"
	"github.com/openlots/openlots-backend/pkg/migrate"
	"github.com/openlots/openlots-backend/pkg/redis"
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	clk := clock.NewSystem(cfg.Clock.ZoneName, cfg.Clock.OffsetHours)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bidMetrics := metrics.NewBidMetrics(registry)

	userRepo := auth.NewRepository(dbClient.DB())
	listingRepo := listings.NewRepository(dbClient.DB())
	bidRepo := bids.NewRepository(dbClient.DB())
	commentRepo := comments.NewRepository(dbClient.DB())
	watchRepo := watchlist.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:    userRepo,
		JWTConfig:   cfg.JWT,
		PasswordCfg: cfg.Password,
		Clock:       clk,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	listingService, err := listings.NewService(listings.ServiceParams{
		Repo:   listingRepo,
		Tx:     dbClient,
		Clock:  clk,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listing service", err)
		os.Exit(1)
	}

	bidService, err := bids.NewService(bids.ServiceParams{
		BidRepo:     bidRepo,
		ListingRepo: listingRepo,
		Tx:          dbClient,
		Clock:       clk,
		Logger:      logg,
		Metrics:     bidMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bid service", err)
		os.Exit(1)
	}

	commentService, err := comments.NewService(comments.ServiceParams{
		CommentRepo: commentRepo,
		ListingRepo: listingRepo,
		Clock:       clk,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create comment service", err)
		os.Exit(1)
	}

	watchlistService, err := watchlist.NewService(watchlist.ServiceParams{
		WatchRepo:      watchRepo,
		ListingRepo:    listingRepo,
		ListingService: listingService,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create watchlist service", err)
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			DBPinger:         dbClient,
			RedisClient:      redisClient,
			Registry:         registry,
			AuthService:      authService,
			ListingService:   listingService,
			BidService:       bidService,
			CommentService:   commentService,
			WatchlistService: watchlistService,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		err = multierr.Append(err, redisClient.Close())
		err = multierr.Append(err, dbClient.Close())
		if err != nil {
			logg.Error(ctx, "shutdown finished with errors", err)
			os.Exit(1)
		}
		logg.Info(ctx, "shutdown complete")
	}
}
