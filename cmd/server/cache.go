package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/tasklane-api/internal/cache"
	"github.com/phrazzld/tasklane-api/internal/config"
	"github.com/phrazzld/tasklane-api/internal/platform/redis"
)

// setupCacheBackend returns the Redis backend when a Redis URL is configured
// and the in-process memory backend otherwise. The returned close function
// releases the backend's client.
func setupCacheBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Backend, func() error, error) {
	if cfg.Redis.URL == "" {
		logger.Warn("no redis URL configured, using in-process cache backend")
		return cache.NewMemoryBackend(), func() error { return nil }, nil
	}

	opts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Redis connection established", "prefix", cfg.Redis.Prefix)
	return redis.NewBackend(client, redis.WithPrefix(cfg.Redis.Prefix)), client.Close, nil
}
