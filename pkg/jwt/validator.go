package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/pkg/logger"
)

// CustomClaims are the claims issued by the auth service
type CustomClaims struct {
	jwt.RegisteredClaims
	TelegramID int64 `json:"telegram_id"`
}

// RevocationChecker reports whether a token id was revoked by the auth service
type RevocationChecker interface {
	IsJWTRevoked(ctx context.Context, jti string) (bool, error)
}

type Validator struct {
	publicKey    *rsa.PublicKey
	publicKeyURL string
	revocations  RevocationChecker
	httpTimeout  time.Duration
	mu           sync.RWMutex
}

func NewValidator(publicKeyURL string, revocations RevocationChecker, httpTimeout time.Duration) *Validator {
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	return &Validator{
		publicKeyURL: publicKeyURL,
		revocations:  revocations,
		httpTimeout:  httpTimeout,
	}
}

func (v *Validator) Initialize(ctx context.Context) error {
	publicKey, err := v.fetchPublicKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch public key: %w", err)
	}

	v.mu.Lock()
	v.publicKey = publicKey
	v.mu.Unlock()

	logger.Info("JWT validator initialized with public key from auth service")
	return nil
}

func (v *Validator) fetchPublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.publicKeyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: v.httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	keyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}

	if block, _ := pem.Decode(keyData); block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	return publicKey, nil
}

// ValidateToken parses an RS256 bearer token and checks it against the revocation list
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*CustomClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	tokenString = strings.TrimSpace(tokenString)

	v.mu.RLock()
	publicKey := v.publicKey
	v.mu.RUnlock()

	if publicKey == nil {
		return nil, fmt.Errorf("public key not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ID == "" {
		return nil, fmt.Errorf("missing jti claim")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing sub claim")
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsJWTRevoked(ctx, claims.ID)
		if err != nil {
			// Redis outage must not lock every trainer out
			logger.Error("Failed to check token revocation", zap.Error(err))
		} else if revoked {
			return nil, fmt.Errorf("token has been revoked")
		}
	}

	return claims, nil
}

func (v *Validator) RefreshPublicKey(ctx context.Context) error {
	publicKey, err := v.fetchPublicKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh public key: %w", err)
	}

	v.mu.Lock()
	v.publicKey = publicKey
	v.mu.Unlock()

	logger.Info("JWT public key refreshed")
	return nil
}

// StartKeyRefresh refetches the public key every interval until ctx is done
func (v *Validator) StartKeyRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := v.RefreshPublicKey(ctx); err != nil {
					logger.Warn("JWT public key refresh failed, keeping previous key", zap.Error(err))
				}
			}
		}
	}()
}
