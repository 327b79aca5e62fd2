package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"subcon/internal/config"
)

// Open builds the record store selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (RecordStore, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "", "file":
		return NewFileStore(cfg.Path)
	case "sqlite":
		path := cfg.Path
		if filepath.Ext(path) == "" && path != ":memory:" {
			path = filepath.Join(path, "records.db")
		}
		return NewSQLStore(cfg.SQLDriver, path)
	case "redis":
		return NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
