// Package document is the MongoDB implementation of the storefront
// repositories. It is selected with database.driver = "mongodb" and needs a
// replica set for multi-document transactions during checkout.
package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Store wraps a connected client and the storefront database
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect opens a client for cfg.URI, pings the primary and ensures indexes
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mongo")

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMonitor(NewCommandMonitor(logger)).
		SetConnectTimeout(connectTimeout)
	if cfg.MaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxOpenConns))
	}
	if cfg.MaxIdleConns > 0 {
		opts.SetMinPoolSize(uint64(cfg.MaxIdleConns))
	}
	if cfg.ConnMaxIdleTime > 0 {
		opts.SetMaxConnIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	store := &Store{client: client, db: client.Database(cfg.DBName), logger: logger}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Connected to MongoDB", zap.String("database", cfg.DBName))
	return store, nil
}

// Database returns the underlying database handle
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Client returns the underlying client
func (s *Store) Client() *mongo.Client {
	return s.client
}

// Ping checks the connection to the primary
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
// CreateMany is idempotent for identical specifications.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_order_number")},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("user_created")},
			{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status")},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}}, Options: options.Index().SetName("category")},
			{Keys: bson.D{{Key: "brand", Value: 1}}, Options: options.Index().SetName("brand")},
		},
	}
	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// mapNotFound converts the driver's no-document error to shared.ErrNotFound
func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return shared.ErrNotFound
	}
	return err
}
