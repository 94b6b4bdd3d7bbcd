package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/config"
	"github.com/ArowuTest/storefront-coins/internal/importer"
	mongorepo "github.com/ArowuTest/storefront-coins/internal/repositories/mongodb"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/ArowuTest/storefront-coins/pkg/logger"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	mongodb "github.com/ArowuTest/storefront-coins/pkg/mongodb"
	"go.uber.org/zap"
)

const usage = "usage: seed <pickup-points|redeem-codes> <file.csv>"

// Seed imports pickup points or redeem codes from a CSV file into MongoDB
func main() {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}
	kind, path := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zlog, err := logger.New(logger.Options{AppEnv: cfg.AppEnv, AppName: cfg.AppName + "-seed", Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, cfg, zlog, kind, path)
	if err != nil {
		zlog.Error("import failed", zap.String("kind", kind), zap.String("file", path), zap.Error(err))
		_ = zlog.Sync()
		os.Exit(1)
	}
	for _, msg := range res.Errors {
		zlog.Warn("row rejected", zap.String("detail", msg))
	}
	fmt.Printf("rows=%d created=%d skipped=%d failed=%d\n", res.TotalRows, res.Created, res.Skipped, res.Failed)
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger, kind, path string) (*importer.Result, error) {
	if cfg.Store.Driver == config.DriverMemory {
		return nil, errors.New("seeding the in-memory store has no effect, set STORE_DRIVER=mongodb")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	client, err := mongodb.NewClient(ctx, mongodb.Options{
		URI:              cfg.MongoDB.URI,
		ConnectTimeout:   cfg.MongoDB.ConnectTimeout,
		OperationTimeout: cfg.MongoDB.OperationTimeout,
		MaxPoolSize:      cfg.MongoDB.MaxPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	db := client.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	store := mongorepo.NewStore(client.Mongo(), db)

	m := metrics.New()
	ledger := services.NewLedgerService(store, services.LedgerOptions{
		AllowNegativeBalance: cfg.Ledger.AllowNegativeBalance,
		HistoryLimit:         cfg.Ledger.HistoryLimit,
	}, zlog, m)
	// Running APIs keep serving cached pickup points until the TTL lapses.
	pickup := services.NewPickupService(store.PickupPoints, nil, services.PickupOptions{ThresholdKm: cfg.Delivery.ThresholdKm}, zlog, m)
	codes := services.NewRedemptionService(store, ledger, zlog, m)
	imp := importer.NewCSVImporter(pickup, codes, zlog)

	switch kind {
	case "pickup-points":
		return imp.ImportPickupPoints(ctx, file)
	case "redeem-codes":
		createdBy := config.GetEnv("SEED_CREATED_BY", cfg.Admin.Email)
		if createdBy == "" {
			createdBy = "seed"
		}
		return imp.ImportRedeemCodes(ctx, file, createdBy)
	default:
		return nil, errors.New(usage)
	}
}
