package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/pdavault/internal/config"
)

// Backends holds the optional external services. In development either may be nil.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Connect opens Postgres and Redis when configured and applies the schema. Outside
// development both are required.
func Connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}
	if cfg.DatabaseURL != "" {
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			return nil, err
		}
		b.DB = db
		if err := Migrate(ctx, db); err != nil {
			b.Close(logger)
			return nil, err
		}
	} else if !cfg.IsDev() {
		return nil, fmt.Errorf("database is required when APP_ENV=%s", cfg.AppEnv)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory ledger store")
	}

	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			b.Close(logger)
			return nil, err
		}
		b.Cache = cache
	} else if !cfg.IsDev() {
		b.Close(logger)
		return nil, fmt.Errorf("redis is required when APP_ENV=%s", cfg.AppEnv)
	} else {
		logger.Warn("REDIS_URL not set, idempotency and rate limiting disabled")
	}
	return b, nil
}

// Close releases every open backend.
func (b *Backends) Close(logger *slog.Logger) {
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	if b.DB != nil {
		b.DB.Close()
	}
}
