package adapters

import (
	"time"

	"github.com/shard-legends/hatchery-service/internal/storage"
	"github.com/shard-legends/hatchery-service/pkg/metrics"
)

const trainerTable = "trainer_data"

// MetricsAdapter передает метрики хранилища в коллекторы Prometheus
type MetricsAdapter struct{}

func NewMetricsAdapter() storage.MetricsInterface {
	return &MetricsAdapter{}
}

func (a *MetricsAdapter) IncDBQuery(operation string) {
	metrics.DBQueriesTotal.WithLabelValues(operation, trainerTable).Inc()
}

func (a *MetricsAdapter) IncCacheHit(cacheType string) {
	metrics.RecordRedisOperation(cacheType+"_lookup", "hit")
}

func (a *MetricsAdapter) IncCacheMiss(cacheType string) {
	metrics.RecordRedisOperation(cacheType+"_lookup", "miss")
}

func (a *MetricsAdapter) ObserveDBQueryDuration(operation string, duration time.Duration) {
	metrics.DBQueryDuration.WithLabelValues(operation, trainerTable).Observe(duration.Seconds())
}
