package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
)

// keyspace prefixes every key so the service can share a redis database.
const keyspace = "orderdesk:"

var errEmptyKey = errors.New("cache key is required")

type redisStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func newRedisStore(lc fx.Lifecycle, cfg config.Cache, logger *zap.Logger) *redisStore {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	log := logger.With(zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
			}
			log.Info("redis cache connected", zap.Duration("default_ttl", cfg.DefaultTTL))
			return nil
		},
		OnStop: func(context.Context) error {
			log.Info("closing redis cache")
			return client.Close()
		},
	})

	return &redisStore{client: client, ttl: cfg.DefaultTTL}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheMiss
	}
	raw, err := s.client.Get(ctx, keyspace+key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Set falls back to the configured default TTL when ttl is not positive.
func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	return s.client.Set(ctx, keyspace+key, value, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, keyspace+key).Err()
}
