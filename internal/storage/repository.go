package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/internal/models"
)

// TrainerRepository хранит записи тренеров по trainer id
type TrainerRepository interface {
	// Load возвращает nil, nil, если записи еще нет
	Load(ctx context.Context, trainerID uuid.UUID) (*models.TrainerRecord, error)

	// Save перезаписывает запись (побеждает последняя запись)
	Save(ctx context.Context, record *models.TrainerRecord) error

	// EnsureSchema создает таблицу trainer_data, если ее нет
	EnsureSchema(ctx context.Context) error
}

// RepositoryDependencies общие зависимости репозиториев
type RepositoryDependencies struct {
	DB               DatabaseInterface
	Cache            CacheInterface
	MetricsCollector MetricsInterface
	Logger           *zap.Logger
	CacheTTL         time.Duration
}

// DatabaseInterface подмножество пула pgx, нужное репозиториям
type DatabaseInterface interface {
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
	Exec(ctx context.Context, query string, args ...interface{}) error
	Health(ctx context.Context) error
}

// CacheInterface подмножество Redis для репозиториев и провайдера идентификаторов
type CacheInterface interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Health(ctx context.Context) error
}

// MetricsInterface собирает метрики хранилища
type MetricsInterface interface {
	IncDBQuery(operation string)
	IncCacheHit(cacheType string)
	IncCacheMiss(cacheType string)
	ObserveDBQueryDuration(operation string, duration time.Duration)
}

// Row результат запроса одной строки
type Row interface {
	Scan(dest ...interface{}) error
}
