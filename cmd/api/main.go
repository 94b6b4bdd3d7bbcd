package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/storefront-coins/api/routes"
	"github.com/ArowuTest/storefront-coins/internal/config"
	"github.com/ArowuTest/storefront-coins/internal/handlers"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/ArowuTest/storefront-coins/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/storefront-coins/internal/repositories/mongodb"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/ArowuTest/storefront-coins/pkg/cache"
	"github.com/ArowuTest/storefront-coins/pkg/jwt"
	"github.com/ArowuTest/storefront-coins/pkg/logger"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	mongodb "github.com/ArowuTest/storefront-coins/pkg/mongodb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Options{AppEnv: cfg.AppEnv, AppName: cfg.AppName, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Error("server exited with error", zap.Error(err))
		_ = zlog.Sync()
		os.Exit(1)
	}
	zlog.Info("server exiting")
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer closeStore()

	var pickupCache services.JSONCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			// The cache is optional; lookups fall back to the store.
			zlog.Warn("redis unavailable, pickup point cache disabled", zap.Error(err))
		} else {
			defer func() { _ = rc.Close() }()
			pickupCache = rc
		}
	}

	m := metrics.New()
	tokens := jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// Initialize Services
	customerService := services.NewCustomerService(store.Customers, zlog)
	authService := services.NewAuthService(store.AdminUsers, customerService, tokens, zlog)
	ledgerService := services.NewLedgerService(store, services.LedgerOptions{
		AllowNegativeBalance: cfg.Ledger.AllowNegativeBalance,
		HistoryLimit:         cfg.Ledger.HistoryLimit,
	}, zlog, m)
	redemptionService := services.NewRedemptionService(store, ledgerService, zlog, m)
	rewardService := services.NewRewardService(store, ledgerService, zlog, m)
	pickupService := services.NewPickupService(store.PickupPoints, pickupCache, services.PickupOptions{
		ThresholdKm: cfg.Delivery.ThresholdKm,
		CacheTTL:    cfg.Redis.PickupTTL,
	}, zlog, m)
	reviewService := services.NewReviewService(store.Reviews, store.Customers)

	if err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		AuthHandler:     handlers.NewAuthHandler(authService),
		CustomerHandler: handlers.NewCustomerHandler(customerService, ledgerService),
		WalletHandler:   handlers.NewWalletHandler(ledgerService),
		RedeemHandler:   handlers.NewRedeemHandler(redemptionService),
		RewardHandler:   handlers.NewRewardHandler(rewardService),
		PickupHandler:   handlers.NewPickupHandler(pickupService),
		ReviewHandler:   handlers.NewReviewHandler(reviewService),
		HealthHandler:   handlers.NewHealthHandler(store.Pinger, zlog),
		Tokens:          tokens,
		Metrics:         m,
		Logger:          zlog,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore connects the configured backend and returns its repositories with a cleanup func.
func openStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*repositories.Store, func(), error) {
	if cfg.Store.Driver == config.DriverMemory {
		zlog.Warn("using the in-memory store, data is lost on restart")
		return memory.New().Repositories(), func() {}, nil
	}

	client, err := mongodb.NewClient(ctx, mongodb.Options{
		URI:              cfg.MongoDB.URI,
		ConnectTimeout:   cfg.MongoDB.ConnectTimeout,
		OperationTimeout: cfg.MongoDB.OperationTimeout,
		MaxPoolSize:      cfg.MongoDB.MaxPoolSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			zlog.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}

	db := client.Database(cfg.MongoDB.Database)
	indexCtx, cancel := context.WithTimeout(ctx, cfg.MongoDB.OperationTimeout)
	defer cancel()
	if err := mongorepo.EnsureIndexes(indexCtx, db); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	zlog.Info("connected to MongoDB", zap.String("database", cfg.MongoDB.Database))
	return mongorepo.NewStore(client.Mongo(), db), closeFn, nil
}
