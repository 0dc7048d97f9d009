package public

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/internal/auth"
	"github.com/shard-legends/hatchery-service/internal/models"
	"github.com/shard-legends/hatchery-service/internal/service"
)

// maxRequestBody ограничивает тело запроса генерации
const maxRequestBody = 16 << 10

// TrainerService API состояния тренера, которым пользуется обработчик
type TrainerService interface {
	State(ctx context.Context, trainerID uuid.UUID) (*models.TrainerStateResponse, error)
	Generate(ctx context.Context, trainerID uuid.UUID, req models.GenerateRequest) (*models.GenerateResponse, error)
	Accept(ctx context.Context, trainerID, creatureID uuid.UUID) (*models.AcceptResponse, error)
	Discard(ctx context.Context, trainerID, creatureID uuid.UUID) (*models.DiscardResponse, error)
	Sell(ctx context.Context, trainerID, creatureID uuid.UUID) (*models.SellResponse, error)
	Collection(ctx context.Context, trainerID uuid.UUID, opts service.ViewOptions) (*models.CollectionResponse, error)
}

// TrainerHandler обслуживает публичный API /hatchery
type TrainerHandler struct {
	trainerService TrainerService
	logger         *zap.Logger
	validator      *validator.Validate
}

func NewTrainerHandler(trainerService TrainerService, logger *zap.Logger) *TrainerHandler {
	return &TrainerHandler{
		trainerService: trainerService,
		logger:         logger,
		validator:      validator.New(),
	}
}

// RegisterRoutes регистрирует маршруты тренера; аутентификация уже должна быть подключена
func (h *TrainerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/trainer", h.GetTrainer)
	r.Post("/generate", h.Generate)
	r.Post("/staged/{creatureID}/accept", h.AcceptStaged)
	r.Delete("/staged/{creatureID}", h.DiscardStaged)
	r.Get("/collection", h.GetCollection)
	r.Post("/collection/{creatureID}/sell", h.SellCreature)
}

// GetTrainer обрабатывает GET /hatchery/trainer
func (h *TrainerHandler) GetTrainer(w http.ResponseWriter, r *http.Request) {
	trainerID, ok := h.trainerID(w, r)
	if !ok {
		return
	}

	state, err := h.trainerService.State(r.Context(), trainerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, state)
}

// Generate обрабатывает POST /hatchery/generate
func (h *TrainerHandler) Generate(w http.ResponseWriter, r *http.Request) {
	trainerID, ok := h.trainerID(w, r)
	if !ok {
		return
	}

	var req models.GenerateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body", nil)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeValidation, "Request validation failed",
			map[string]interface{}{"validation_errors": err.Error()})
		return
	}

	h.logger.Info("Generating creatures",
		zap.String("trainer_id", trainerID.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("request_id", getRequestID(r)),
	)

	resp, err := h.trainerService.Generate(r.Context(), trainerID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// AcceptStaged обрабатывает POST /hatchery/staged/{creatureID}/accept
func (h *TrainerHandler) AcceptStaged(w http.ResponseWriter, r *http.Request) {
	trainerID, ok := h.trainerID(w, r)
	if !ok {
		return
	}
	creatureID, ok := h.creatureID(w, r)
	if !ok {
		return
	}

	resp, err := h.trainerService.Accept(r.Context(), trainerID, creatureID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// DiscardStaged обрабатывает DELETE /hatchery/staged/{creatureID}
func (h *TrainerHandler) DiscardStaged(w http.ResponseWriter, r *http.Request) {
	trainerID, ok := h.trainerID(w, r)
	if !ok {
		return
	}
	creatureID, ok := h.creatureID(w, r)
	if !ok {
		return
	}

	resp, err := h.trainerService.Discard(r.Context(), trainerID, creatureID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// GetCollection обрабатывает GET /hatchery/collection?sort=&rarity=
func (h *TrainerHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	trainerID, ok := h.trainerID(w, r)
	if !ok {
		return
	}

	opts, err := service.ParseViewOptions(r.URL.Query().Get("sort"), r.URL.Query().Get("rarity"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid sort key",
			map[string]interface{}{
				"allowed_values": []string{
					string(service.SortByName),
					string(service.SortByRarity),
					string(service.SortByRecency),
				},
			})
		return
	}

	resp, err := h.trainerService.Collection(r.Context(), trainerID, opts)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

// SellCreature обрабатывает POST /hatchery/collection/{creatureID}/sell
func (h *TrainerHandler) SellCreature(w http.ResponseWriter, r *http.Request) {
	trainerID, ok := h.trainerID(w, r)
	if !ok {
		return
	}
	creatureID, ok := h.creatureID(w, r)
	if !ok {
		return
	}

	resp, err := h.trainerService.Sell(r.Context(), trainerID, creatureID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, resp)
}

func (h *TrainerHandler) trainerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	trainerID, err := auth.GetTrainerID(r.Context())
	if err != nil {
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeMissingUserID, "Trainer not found in context", nil)
		return uuid.Nil, false
	}
	return trainerID, true
}

func (h *TrainerHandler) creatureID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	creatureID, err := uuid.Parse(chi.URLParam(r, "creatureID"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid creature ID format", nil)
		return uuid.Nil, false
	}
	return creatureID, true
}

// writeServiceError преобразует ошибки сервиса в HTTP ответы
func (h *TrainerHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *service.InsufficientTokensError
	var genErr *service.GenerationError

	switch {
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrInvalidSortKey):
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeValidation, err.Error(), nil)
	case errors.As(err, &insufficient):
		h.writeErrorResponse(w, http.StatusPaymentRequired, models.ErrorCodeInsufficientTokens, "Not enough tokens",
			map[string]interface{}{
				"required":  insufficient.Required,
				"available": insufficient.Available,
			})
	case errors.Is(err, service.ErrDuplicateItem):
		h.writeErrorResponse(w, http.StatusConflict, models.ErrorCodeDuplicateItem, "Creature is already in the collection", nil)
	case errors.Is(err, service.ErrNotStaged):
		h.writeErrorResponse(w, http.StatusNotFound, models.ErrorCodeItemNotStaged, "Creature is not staged", nil)
	case errors.As(err, &genErr):
		status := http.StatusBadGateway
		if genErr.Classification == service.GenerationRateLimited {
			status = http.StatusTooManyRequests
		}
		details := map[string]interface{}{"classification": string(genErr.Classification)}
		if genErr.StatusCode != 0 {
			details["upstream_status"] = genErr.StatusCode
		}
		h.writeErrorResponse(w, status, models.ErrorCodeGenerationFailed, genErr.Message, details)
	case errors.Is(err, service.ErrPersistenceUnavailable):
		h.writeErrorResponse(w, http.StatusServiceUnavailable, models.ErrorCodePersistenceUnavailable, "Trainer data is temporarily unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.writeErrorResponse(w, http.StatusGatewayTimeout, models.ErrorCodeRequestTimeout, "Request ended before the trainer became available", nil)
	default:
		h.logger.Error("Unhandled trainer service error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", getRequestID(r)),
		)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error", nil)
	}
}

// writeJSONResponse отправляет JSON ответ
func (h *TrainerHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse отправляет ответ с ошибкой
func (h *TrainerHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, details map[string]interface{}) {
	h.writeJSONResponse(w, statusCode, models.ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

func getRequestID(r *http.Request) string {
	if requestID := chimiddleware.GetReqID(r.Context()); requestID != "" {
		return requestID
	}
	if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
		return requestID
	}
	return "unknown"
}
