package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geoprompt/config"
	"geoprompt/internal/storage"
)

// Result holds the usage logger and the storage it owns, if any.
type Result struct {
	Logger  LoggerInterface
	Storage storage.Storage
}

// Close flushes the logger, then closes owned storage.
func (r *Result) Close() error {
	var errs []error
	if r.Logger != nil {
		if err := r.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// New opens storage and returns a running Logger. With usage tracking
// disabled it returns a NoopLogger and opens nothing.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if !cfg.Usage.Enabled {
		return &Result{Logger: &NoopLogger{}}, nil
	}

	store, err := storage.New(ctx, buildStorageConfig(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	usageStore, err := createUsageStore(ctx, store, cfg.Usage.RetentionDays)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Result{
		Logger:  NewLogger(usageStore, buildLoggerConfig(cfg.Usage)),
		Storage: store,
	}, nil
}

func buildStorageConfig(cfg config.StorageConfig) storage.Config {
	return storage.Config{
		Type:   cfg.Type,
		SQLite: storage.SQLiteConfig{Path: cfg.SQLite.Path},
		PostgreSQL: storage.PostgreSQLConfig{
			URL:      cfg.PostgreSQL.URL,
			MaxConns: cfg.PostgreSQL.MaxConns,
		},
		MongoDB: storage.MongoDBConfig{
			URL:      cfg.MongoDB.URL,
			Database: cfg.MongoDB.Database,
		},
	}
}

func createUsageStore(ctx context.Context, store storage.Storage, retentionDays int) (UsageStore, error) {
	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.SQLiteDB(), retentionDays)
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, store.PostgreSQLPool(), retentionDays)
	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, store.MongoDatabase(), retentionDays)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}

func buildLoggerConfig(cfg config.UsageConfig) Config {
	out := DefaultConfig()
	out.Enabled = cfg.Enabled
	out.RetentionDays = cfg.RetentionDays
	if cfg.BufferSize > 0 {
		out.BufferSize = cfg.BufferSize
	}
	if cfg.FlushInterval > 0 {
		out.FlushInterval = time.Duration(cfg.FlushInterval) * time.Second
	}
	return out
}
