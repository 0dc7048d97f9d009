package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/internal/auth"
	"github.com/shard-legends/hatchery-service/internal/config"
	"github.com/shard-legends/hatchery-service/internal/handlers"
	"github.com/shard-legends/hatchery-service/pkg/jwt"
)

const validToken = "valid-token"

type stubValidator struct{}

func (stubValidator) ValidateToken(ctx context.Context, tokenString string) (*jwt.CustomClaims, error) {
	if tokenString != validToken {
		return nil, errors.New("token is malformed")
	}
	return &jwt.CustomClaims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "client-key"}}, nil
}

type stubIdentities struct {
	trainerID uuid.UUID
}

func (s stubIdentities) GetOrCreate(ctx context.Context, clientKey string) (uuid.UUID, error) {
	return s.trainerID, nil
}

type stubChecker struct{}

func (stubChecker) Health(ctx context.Context) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{AllowedOrigins: []string{"*"}},
		Timeouts: config.TimeoutsConfig{HTTPMiddleware: time.Minute},
	}
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPortSeparation(t *testing.T) {
	trainerID := uuid.New()
	cfg := testConfig()
	log := zap.NewNop()

	var seenTrainer uuid.UUID
	publicRouter := newPublicRouter(cfg, log, stubValidator{}, stubIdentities{trainerID: trainerID}, func(r chi.Router) {
		r.Get("/trainer", func(w http.ResponseWriter, r *http.Request) {
			seenTrainer, _ = auth.GetTrainerID(r.Context())
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"tokens":100}`))
		})
	})
	internalRouter := newInternalRouter(cfg, log, handlers.NewHealthHandler(stubChecker{}, stubChecker{}, nil))

	t.Run("Public router does not expose internal endpoints", func(t *testing.T) {
		for _, path := range []string{"/metrics", "/health", "/ready"} {
			rec := serve(publicRouter, http.MethodGet, path, "")
			assert.Equal(t, http.StatusNotFound, rec.Code, "%s must not be served on the public port", path)
		}
	})

	t.Run("Internal router exposes probes and metrics", func(t *testing.T) {
		for _, path := range []string{"/health", "/ready", "/metrics"} {
			rec := serve(internalRouter, http.MethodGet, path, "")
			assert.Equal(t, http.StatusOK, rec.Code, "%s must be served on the internal port", path)
		}
	})

	t.Run("Internal router does not expose the hatchery API", func(t *testing.T) {
		rec := serve(internalRouter, http.MethodGet, "/hatchery/trainer", validToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Hatchery API requires a bearer token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(publicRouter, http.MethodGet, "/hatchery/trainer", "").Code)
		assert.Equal(t, http.StatusUnauthorized, serve(publicRouter, http.MethodGet, "/hatchery/trainer", "forged").Code)
	})

	t.Run("Hatchery API resolves the trainer", func(t *testing.T) {
		rec := serve(publicRouter, http.MethodGet, "/hatchery/trainer", validToken)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, trainerID, seenTrainer)
	})
}
