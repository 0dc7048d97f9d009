package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/internal/models"
)

const (
	trainerCacheKeyPrefix = "trainer:"
	defaultTrainerTTL     = 10 * time.Minute
)

const createTrainerDataTable = `
	CREATE TABLE IF NOT EXISTS trainer_data (
		trainer_id        UUID PRIMARY KEY,
		tokens            INTEGER NOT NULL CHECK (tokens >= 0),
		collected_pokemon JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

const selectTrainerData = `
	SELECT tokens, collected_pokemon
	FROM trainer_data
	WHERE trainer_id = $1
`

const upsertTrainerData = `
	INSERT INTO trainer_data (trainer_id, tokens, collected_pokemon, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (trainer_id) DO UPDATE
	SET tokens = EXCLUDED.tokens,
		collected_pokemon = EXCLUDED.collected_pokemon,
		updated_at = NOW()
`

type trainerRepository struct {
	db       DatabaseInterface
	cache    CacheInterface
	metrics  MetricsInterface
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewTrainerRepository создает репозиторий на PostgreSQL с read-through кешем в Redis
func NewTrainerRepository(deps *RepositoryDependencies) TrainerRepository {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultTrainerTTL
	}
	return &trainerRepository{
		db:       deps.DB,
		cache:    deps.Cache,
		metrics:  deps.MetricsCollector,
		logger:   log,
		cacheTTL: ttl,
	}
}

func (r *trainerRepository) EnsureSchema(ctx context.Context) error {
	r.metrics.IncDBQuery("trainer_ensure_schema")
	if err := r.db.Exec(ctx, createTrainerDataTable); err != nil {
		return fmt.Errorf("failed to create trainer_data table: %w", err)
	}
	return nil
}

func (r *trainerRepository) Load(ctx context.Context, trainerID uuid.UUID) (*models.TrainerRecord, error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveDBQueryDuration("trainer_load", time.Since(start))
	}()

	cacheKey := trainerCacheKey(trainerID)
	if record, err := r.getCached(ctx, cacheKey); err != nil {
		r.logger.Warn("Trainer cache read failed, falling back to database",
			zap.String("trainer_id", trainerID.String()),
			zap.Error(err))
	} else if record != nil {
		r.metrics.IncCacheHit("trainer")
		return record, nil
	}
	r.metrics.IncCacheMiss("trainer")

	r.metrics.IncDBQuery("trainer_load")

	var tokens int
	var collected []byte
	err := r.db.QueryRow(ctx, selectTrainerData, trainerID).Scan(&tokens, &collected)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trainer %s: %w", trainerID, err)
	}

	record := &models.TrainerRecord{
		TrainerID:        trainerID,
		Tokens:           tokens,
		CollectedPokemon: []models.Creature{},
	}
	if len(collected) > 0 {
		if err := json.Unmarshal(collected, &record.CollectedPokemon); err != nil {
			return nil, fmt.Errorf("failed to decode collection of trainer %s: %w", trainerID, err)
		}
	}

	r.setCached(ctx, cacheKey, record)

	return record, nil
}

func (r *trainerRepository) Save(ctx context.Context, record *models.TrainerRecord) error {
	start := time.Now()
	defer func() {
		r.metrics.ObserveDBQueryDuration("trainer_save", time.Since(start))
	}()

	if record.Tokens < 0 {
		return fmt.Errorf("refusing to save trainer %s with negative balance %d", record.TrainerID, record.Tokens)
	}

	collected := record.CollectedPokemon
	if collected == nil {
		collected = []models.Creature{}
	}
	data, err := json.Marshal(collected)
	if err != nil {
		return fmt.Errorf("failed to encode collection of trainer %s: %w", record.TrainerID, err)
	}

	r.metrics.IncDBQuery("trainer_save")
	if err := r.db.Exec(ctx, upsertTrainerData, record.TrainerID, record.Tokens, string(data)); err != nil {
		// Иначе устаревшая запись в кеше переживет неудачную запись
		if delErr := r.cache.Del(ctx, trainerCacheKey(record.TrainerID)); delErr != nil {
			r.logger.Warn("Failed to invalidate trainer cache", zap.Error(delErr))
		}
		return fmt.Errorf("failed to save trainer %s: %w", record.TrainerID, err)
	}

	r.setCached(ctx, trainerCacheKey(record.TrainerID), record)

	return nil
}

func (r *trainerRepository) getCached(ctx context.Context, cacheKey string) (*models.TrainerRecord, error) {
	data, err := r.cache.Get(ctx, cacheKey)
	if err != nil {
		return nil, err
	}
	if data == "" {
		return nil, nil
	}

	var record models.TrainerRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", cacheKey, err)
	}
	if record.CollectedPokemon == nil {
		record.CollectedPokemon = []models.Creature{}
	}
	return &record, nil
}

func (r *trainerRepository) setCached(ctx context.Context, cacheKey string, record *models.TrainerRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		r.logger.Warn("Failed to encode trainer for cache", zap.Error(err))
		return
	}
	if err := r.cache.Set(ctx, cacheKey, string(data), r.cacheTTL); err != nil {
		r.logger.Warn("Failed to cache trainer record",
			zap.String("cache_key", cacheKey),
			zap.Error(err))
	}
}

func trainerCacheKey(trainerID uuid.UUID) string {
	return trainerCacheKeyPrefix + trainerID.String()
}
