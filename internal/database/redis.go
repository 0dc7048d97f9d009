package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/internal/config"
	"github.com/shard-legends/hatchery-service/pkg/logger"
	"github.com/shard-legends/hatchery-service/pkg/metrics"
)

type RedisClient struct {
	client     *redis.Client
	authClient *redis.Client // база auth сервиса с отозванными JWT
}

func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client, err := newClient(cfg.URL, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	authClient, err := newClient(cfg.AuthURL, cfg)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse redis auth URL: %w", err)
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		authClient.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if err := authClient.Ping(ctx).Err(); err != nil {
		client.Close()
		authClient.Close()
		return nil, fmt.Errorf("failed to ping redis auth: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Duration("read_timeout", cfg.ReadTimeout),
		zap.Duration("write_timeout", cfg.WriteTimeout),
	)

	return &RedisClient{
		client:     client,
		authClient: authClient,
	}, nil
}

func newClient(url string, cfg *config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	opt.MaxRetries = cfg.MaxRetries
	opt.PoolSize = cfg.MaxConnections
	opt.ReadTimeout = cfg.ReadTimeout
	opt.WriteTimeout = cfg.WriteTimeout

	return redis.NewClient(opt), nil
}

func (r *RedisClient) Close() error {
	var errs []error

	if r.client != nil {
		if err := r.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis cache connection: %w", err))
		}
	}

	if r.authClient != nil {
		if err := r.authClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis auth connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("redis close errors: %w", errors.Join(errs...))
	}

	logger.Info("Redis connections closed")
	return nil
}

func (r *RedisClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis cache health check failed: %w", err)
	}

	if err := r.authClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis auth health check failed: %w", err)
	}

	return nil
}

// Get возвращает "" и nil, если ключа нет
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		metrics.RecordRedisOperation("get", "miss")
		return "", nil
	}
	if err != nil {
		metrics.RecordRedisOperation("get", "error")
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	metrics.RecordRedisOperation("get", "hit")
	return val, nil
}

func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		metrics.RecordRedisOperation("set", "error")
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	metrics.RecordRedisOperation("set", "ok")
	return nil
}

func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		metrics.RecordRedisOperation("del", "error")
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	metrics.RecordRedisOperation("del", "ok")
	return nil
}

func (r *RedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		metrics.RecordRedisOperation("setnx", "error")
		return false, fmt.Errorf("failed to setnx key %s: %w", key, err)
	}
	metrics.RecordRedisOperation("setnx", "ok")
	return ok, nil
}

// IsJWTRevoked проверяет revoked:<jti> в базе auth сервиса
func (r *RedisClient) IsJWTRevoked(ctx context.Context, jti string) (bool, error) {
	count, err := r.authClient.Exists(ctx, fmt.Sprintf("revoked:%s", jti)).Result()
	if err != nil {
		metrics.RecordRedisOperation("revocation_check", "error")
		return false, fmt.Errorf("failed to check jwt revocation for jti %s: %w", jti, err)
	}
	metrics.RecordRedisOperation("revocation_check", "ok")
	return count > 0, nil
}
