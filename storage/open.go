package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"llamarural/config"
	"llamarural/utils"
)

// OpenResultCache builds the backend named by cfg.CacheBackend. Network
// backends are pinged with retry before being returned.
func OpenResultCache(ctx context.Context, cfg *config.Config, logger *utils.Logger) (ResultCache, error) {
	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   500 * time.Millisecond,
		Logger:      logger,
	}

	switch cfg.CacheBackend {
	case "", "file":
		logger.Info("[cache] Using file cache at %s", cfg.CachePath)
		return NewFileCache(cfg.CachePath), nil

	case "memory":
		logger.Info("[cache] Using in-memory cache")
		return NewMemoryCache(), nil

	case "redis":
		rc := NewRedisCache(OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.RedisKey, cfg.CacheTTL)
		if err := retry.Do(ctx, "redis ping", rc.Ping); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		logger.Info("[cache] Using redis cache at %s (key %s)", cfg.RedisAddr, cfg.RedisKey)
		return rc, nil

	case "postgres":
		c, err := OpenSQLCache(ctx, "postgres", cfg.DSN(), retry)
		if err != nil {
			return nil, err
		}
		logger.Info("[cache] Using postgres cache (%s:%s/%s)", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
		return c, nil

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
		c, err := OpenSQLCache(ctx, "sqlite", cfg.SQLitePath, retry)
		if err != nil {
			return nil, err
		}
		logger.Info("[cache] Using sqlite cache at %s", cfg.SQLitePath)
		return c, nil
	}

	return nil, fmt.Errorf("cache: unknown backend %q", cfg.CacheBackend)
}
