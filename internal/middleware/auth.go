package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/internal/auth"
	"github.com/shard-legends/hatchery-service/internal/identity"
	"github.com/shard-legends/hatchery-service/internal/models"
	"github.com/shard-legends/hatchery-service/pkg/jwt"
	"github.com/shard-legends/hatchery-service/pkg/logger"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*jwt.CustomClaims, error)
}

// Auth validates the bearer JWT and resolves its subject to a trainer id
func Auth(validator TokenValidator, identities identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, models.ErrorCodeMissingToken, "Missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeAuthError(w, http.StatusUnauthorized, models.ErrorCodeInvalidToken, "Invalid authorization header format")
				return
			}

			claims, err := validator.ValidateToken(r.Context(), tokenString)
			if err != nil {
				logger.Debug("Token validation failed",
					zap.String("error", err.Error()),
					zap.String("path", r.URL.Path),
				)
				writeAuthError(w, http.StatusUnauthorized, models.ErrorCodeInvalidToken, "Invalid token")
				return
			}

			trainerID, err := identities.GetOrCreate(r.Context(), claims.Subject)
			if err != nil {
				logger.Error("Failed to resolve trainer identity",
					zap.String("subject", claims.Subject),
					zap.Error(err),
				)
				writeAuthError(w, http.StatusServiceUnavailable, models.ErrorCodeIdentityUnavailable, "Trainer identity is temporarily unavailable")
				return
			}

			ctx := auth.WithTrainer(r.Context(), &auth.TrainerContext{
				Subject:    claims.Subject,
				TelegramID: claims.TelegramID,
				TrainerID:  trainerID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{Error: code, Message: message}); err != nil {
		logger.Error("Failed to encode auth error response", zap.Error(err))
	}
}
