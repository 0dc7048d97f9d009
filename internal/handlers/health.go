package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthChecker is a dependency that can report its own health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// PoolStatsSource exposes connection pool statistics
type PoolStatsSource interface {
	Stats() *pgxpool.Stat
}

type HealthHandler struct {
	db        HealthChecker
	redis     HealthChecker
	poolStats PoolStatsSource
}

func NewHealthHandler(db, redis HealthChecker, poolStats PoolStatsSource) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		poolStats: poolStats,
	}
}

type HealthResponse struct {
	Status       string             `json:"status"`
	Services     map[string]string  `json:"services"`
	DatabasePool *DatabasePoolStats `json:"database_pool,omitempty"`
}

type DatabasePoolStats struct {
	TotalConns    int32 `json:"total_connections"`
	IdleConns     int32 `json:"idle_connections"`
	AcquiredConns int32 `json:"acquired_connections"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	response := HealthResponse{
		Status:   "ok",
		Services: make(map[string]string),
	}

	check := func(name string, checker HealthChecker) {
		if err := checker.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Services[name] = "down: " + err.Error()
			return
		}
		response.Services[name] = "ok"
	}
	check("database", h.db)
	check("redis", h.redis)

	if h.poolStats != nil {
		if stats := h.poolStats.Stats(); stats != nil {
			response.DatabasePool = &DatabasePoolStats{
				TotalConns:    stats.TotalConns(),
				IdleConns:     stats.IdleConns(),
				AcquiredConns: stats.AcquiredConns(),
			}
		}
	}

	statusCode := http.StatusOK
	if response.Status != "ok" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.db.Health(ctx); err != nil {
		http.Error(w, "Database not ready", http.StatusServiceUnavailable)
		return
	}

	if err := h.redis.Health(ctx); err != nil {
		http.Error(w, "Redis not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
