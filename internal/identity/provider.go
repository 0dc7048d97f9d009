package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const identityKeyPrefix = "trainer_identity:"

// Provider сопоставляет ключ клиента с trainer id, создавая его при первом обращении
type Provider interface {
	GetOrCreate(ctx context.Context, clientKey string) (uuid.UUID, error)
}

// Store подмножество key-value операций для однократной инициализации
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// RedisProvider хранит идентификаторы в Redis без TTL. Параллельные первые
// вызовы для одного ключа соревнуются на SETNX и получают id победителя.
type RedisProvider struct {
	store  Store
	logger *zap.Logger
}

func NewRedisProvider(store Store, logger *zap.Logger) *RedisProvider {
	return &RedisProvider{store: store, logger: logger}
}

func (p *RedisProvider) GetOrCreate(ctx context.Context, clientKey string) (uuid.UUID, error) {
	if clientKey == "" {
		return uuid.Nil, fmt.Errorf("client key is empty")
	}
	key := identityKeyPrefix + clientKey

	existing, err := p.lookup(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != uuid.Nil {
		return existing, nil
	}

	candidate := uuid.New()
	created, err := p.store.SetNX(ctx, key, candidate.String(), 0)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to store trainer identity: %w", err)
	}
	if created {
		p.logger.Info("Trainer identity created",
			zap.String("client_key", clientKey),
			zap.String("trainer_id", candidate.String()))
		return candidate, nil
	}

	// Другой запрос этого клиента успел раньше
	existing, err = p.lookup(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}
	if existing == uuid.Nil {
		return uuid.Nil, fmt.Errorf("trainer identity for %s vanished after SETNX", clientKey)
	}
	return existing, nil
}

func (p *RedisProvider) lookup(ctx context.Context, key string) (uuid.UUID, error) {
	value, err := p.store.Get(ctx, key)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read trainer identity: %w", err)
	}
	if value == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("stored trainer identity %q is not a UUID: %w", value, err)
	}
	return id, nil
}
