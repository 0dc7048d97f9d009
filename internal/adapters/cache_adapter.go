package adapters

import (
	"context"
	"time"

	"github.com/shard-legends/hatchery-service/internal/storage"
)

// KeyValueStore то подмножество RedisClient, которым пользуется сервис
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Health(ctx context.Context) error
}

// CacheAdapter держит все ключи сервиса под общим префиксом,
// чтобы не пересекаться с другими сервисами в той же базе Redis
type CacheAdapter struct {
	store  KeyValueStore
	prefix string
}

func NewCacheAdapter(store KeyValueStore, prefix string) storage.CacheInterface {
	return &CacheAdapter{store: store, prefix: prefix}
}

func (a *CacheAdapter) key(key string) string {
	return a.prefix + key
}

func (a *CacheAdapter) Get(ctx context.Context, key string) (string, error) {
	return a.store.Get(ctx, a.key(key))
}

func (a *CacheAdapter) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return a.store.Set(ctx, a.key(key), value, ttl)
}

// SetNX пишет значение, только если ключа ещё нет
func (a *CacheAdapter) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return a.store.SetNX(ctx, a.key(key), value, ttl)
}

func (a *CacheAdapter) Del(ctx context.Context, key string) error {
	return a.store.Delete(ctx, a.key(key))
}

func (a *CacheAdapter) Health(ctx context.Context) error {
	return a.store.Health(ctx)
}
