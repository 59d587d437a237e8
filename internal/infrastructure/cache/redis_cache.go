package cache

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"freestylecal/internal/bootstrap/config"
	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
	"freestylecal/internal/ports"
)

const scanBatch = 100

// RedisCache keeps entries under "<namespace>:" so several deployments can
// share one Redis database.
type RedisCache struct {
	client    redis.UniversalClient
	namespace string
}

var _ ports.Cache = (*RedisCache)(nil)

func NewRedisCache(client redis.UniversalClient, namespace string) *RedisCache {
	return &RedisCache{client: client, namespace: strings.Trim(strings.TrimSpace(namespace), ":")}
}

// OpenRedis connects and pings the configured server.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.Wrapf(err, "ping redis %s", cfg.Addr)
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "cache.redis")),
		"redis connected",
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
	)
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	full, err := c.prepare(ctx, key)
	if err != nil {
		return "", false, err
	}

	value, err := c.client.Get(ctx, full).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.Wrap(err, "redis get")
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	full, err := c.prepare(ctx, key)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, full, value, ttl).Err(); err != nil {
		return errs.Wrap(err, "redis set")
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	full, err := c.prepare(ctx, key)
	if err != nil {
		return err
	}
	if err := c.client.Del(ctx, full).Err(); err != nil {
		return errs.Wrap(err, "redis del")
	}
	return nil
}

func (c *RedisCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	base := c.fullKey("")
	pattern := escapeGlob(base+prefix) + "*"

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), base))
	}
	if err := iter.Err(); err != nil {
		return nil, errs.Wrap(err, "redis scan")
	}

	// SCAN may return a key more than once.
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

func (c *RedisCache) prepare(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", errors.New("key is required")
	}
	return c.fullKey(trimmedKey), nil
}

func (c *RedisCache) fullKey(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
