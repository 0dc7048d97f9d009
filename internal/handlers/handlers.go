package handlers

import (
	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/internal/database"
	"github.com/shard-legends/hatchery-service/internal/handlers/public"
)

// Handlers содержит все HTTP обработчики сервиса
type Handlers struct {
	Health  *HealthHandler
	Trainer *public.TrainerHandler
}

// HandlerDependencies зависимости для NewHandlers
type HandlerDependencies struct {
	TrainerService public.TrainerService
	DB             *database.DB
	Redis          *database.RedisClient
	Logger         *zap.Logger
}

func NewHandlers(deps *HandlerDependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.DB, deps.Redis, deps.DB),
		Trainer: public.NewTrainerHandler(deps.TrainerService, deps.Logger),
	}
}
