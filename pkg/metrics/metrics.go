package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hatchery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hatchery_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchery_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hatchery_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)

	RedisOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchery_redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)

	GeneratorAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchery_generator_api_calls_total",
			Help: "Total number of calls to the creature generation API",
		},
		[]string{"classification"},
	)

	GeneratorAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hatchery_generator_api_call_duration_seconds",
			Help:    "Creature generation API call duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"classification"},
	)

	GenerationBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchery_generation_batches_total",
			Help: "Generation batches by outcome",
		},
		[]string{"outcome"},
	)

	CreaturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchery_creatures_total",
			Help: "Creature lifecycle transitions",
		},
		[]string{"transition", "rarity"},
	)

	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchery_tokens_total",
			Help: "Tokens spent on generation and credited by sales",
		},
		[]string{"direction"},
	)

	PersistenceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatchery_persistence_failures_total",
			Help: "Trainer record load/save failures",
		},
		[]string{"operation"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hatchery_active_sessions",
			Help: "Trainer sessions currently held in memory",
		},
	)

	ServiceUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hatchery_service_uptime_seconds",
			Help: "Time since Hatchery Service started in seconds",
		},
	)

	ServiceInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hatchery_service_info",
			Help: "Hatchery Service information",
		},
		[]string{"version", "build_time"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordDBQuery(queryType, table string, duration float64) {
	DBQueriesTotal.WithLabelValues(queryType, table).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration)
}

func RecordRedisOperation(operation, status string) {
	RedisOperationsTotal.WithLabelValues(operation, status).Inc()
}

func RecordGeneratorCall(classification string, duration float64) {
	GeneratorAPICallsTotal.WithLabelValues(classification).Inc()
	GeneratorAPICallDuration.WithLabelValues(classification).Observe(duration)
}

func RecordGenerationBatch(outcome string) {
	GenerationBatchesTotal.WithLabelValues(outcome).Inc()
}

func RecordCreature(transition, rarity string) {
	CreaturesTotal.WithLabelValues(transition, rarity).Inc()
}

func RecordTokensSpent(amount int) {
	TokensTotal.WithLabelValues("spent").Add(float64(amount))
}

func RecordTokensCredited(amount int) {
	TokensTotal.WithLabelValues("credited").Add(float64(amount))
}

func RecordPersistenceFailure(operation string) {
	PersistenceFailuresTotal.WithLabelValues(operation).Inc()
}
