package main

import (
	"context"
	"fmt"

	tradeapp "github.com/storefront/backend/internal/application/trade"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/persistence/document"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"go.uber.org/zap"
)

// stores is the persistence backend selected by database.driver
type stores struct {
	users    identity.UserRepository
	products catalog.ProductRepository
	orders   trade.OrderRepository
	txScope  tradeapp.TransactionScope
	pinger   handler.Pinger
	close    func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	switch cfg.Database.Driver {
	case config.DriverMongoDB:
		return openDocumentStores(ctx, cfg, log)
	case config.DriverPostgres, config.DriverSQLite:
		return openSQLStores(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func openSQLStores(cfg *config.Config, log *zap.Logger) (*stores, error) {
	var gormOpts []logger.GormLoggerOption
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		gormOpts = append(gormOpts, logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	}
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), gormOpts...)

	db, err := persistence.NewDatabase(cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log)
	if err := tracing.Register(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}

	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))
	return &stores{
		users:    persistence.NewGormUserRepository(db.DB),
		products: persistence.NewGormProductRepository(db.DB),
		orders:   persistence.NewGormOrderRepository(db.DB),
		txScope:  persistence.NewGormTransactionScope(db.DB),
		pinger:   db,
		close:    func(context.Context) error { return db.Close() },
	}, nil
}

func openDocumentStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	store, err := document.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	mdb := store.Database()
	return &stores{
		users:    document.NewUserRepository(mdb),
		products: document.NewProductRepository(mdb),
		orders:   document.NewOrderRepository(mdb),
		txScope:  document.NewTransactionScope(store),
		pinger:   store,
		close:    store.Close,
	}, nil
}
