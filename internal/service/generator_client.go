package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/pkg/metrics"
)

// maxErrorBody ограничивает чтение тела ответа с ошибкой
const maxErrorBody = 64 << 10

// GenerationRequest параметры одного вызова генерации
type GenerationRequest struct {
	Prompt    string
	TrainerID uuid.UUID
	Seed      *int64
}

// GeneratedCreature ответ генератора; id и время создания сервис назначает сам
type GeneratedCreature struct {
	Name      string `json:"name"`
	Rarity    string `json:"rarity"`
	Image     string `json:"image"`
	Timestamp string `json:"timestamp"`
}

// GenerationClient выполняет один удаленный вызов генерации. Ошибки имеют тип *GenerationError.
type GenerationClient interface {
	RequestOne(ctx context.Context, req GenerationRequest) (*GeneratedCreature, error)
}

type generationPayload struct {
	Prompt    string `json:"prompt"`
	TrainerID string `json:"trainerId"`
	Seed      *int64 `json:"seed,omitempty"`
}

// HTTPGenerationClient обращается к генератору существ по HTTP
type HTTPGenerationClient struct {
	endpoint   string
	apiToken   string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPGenerationClient(endpoint, apiToken string, timeout time.Duration, logger *zap.Logger) *HTTPGenerationClient {
	return &HTTPGenerationClient{
		endpoint: endpoint,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *HTTPGenerationClient) RequestOne(ctx context.Context, req GenerationRequest) (*GeneratedCreature, error) {
	start := time.Now()

	creature, err := c.do(ctx, req)

	classification := "ok"
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			classification = string(genErr.Classification)
		}
	}
	metrics.RecordGeneratorCall(classification, time.Since(start).Seconds())

	return creature, err
}

func (c *HTTPGenerationClient) do(ctx context.Context, req GenerationRequest) (*GeneratedCreature, error) {
	body, err := json.Marshal(generationPayload{
		Prompt:    req.Prompt,
		TrainerID: req.TrainerID.String(),
		Seed:      req.Seed,
	})
	if err != nil {
		return nil, unknownGenerationError(pkgerrors.Wrap(err, "failed to marshal generation request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, unknownGenerationError(pkgerrors.Wrap(err, "failed to create generation request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		genErr := statusError(resp)
		c.logger.Warn("Generator returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("classification", string(genErr.Classification)),
			zap.String("message", genErr.Message))
		return nil, genErr
	}

	var creature GeneratedCreature
	if err := json.NewDecoder(resp.Body).Decode(&creature); err != nil {
		return nil, unknownGenerationError(pkgerrors.Wrap(err, "failed to decode generation response"))
	}
	if creature.Name == "" || creature.Image == "" {
		return nil, unknownGenerationError(pkgerrors.New("generation response is missing name or image"))
	}

	return &creature, nil
}

func (c *HTTPGenerationClient) transportError(ctx context.Context, err error) *GenerationError {
	// Вызов отменила вызывающая сторона (ошибка соседнего вызова, клиент ушел, дедлайн);
	// сам генератор может быть исправен
	if ctxErr := ctx.Err(); ctxErr != nil {
		message := "generation request cancelled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			message = "generation request timed out"
		}
		return &GenerationError{
			Classification: GenerationUnknown,
			Message:        message,
			cause:          pkgerrors.Wrap(err, message),
		}
	}

	c.logger.Warn("Generator unreachable", zap.Error(err))
	return &GenerationError{
		Classification: GenerationNetworkUnreachable,
		Message:        "could not connect to the creature generation service",
		cause:          pkgerrors.Wrap(err, "failed to send generation request"),
	}
}

func unknownGenerationError(err error) *GenerationError {
	return &GenerationError{
		Classification: GenerationUnknown,
		Message:        pkgerrors.Cause(err).Error(),
		cause:          err,
	}
}

// statusError разбирает ответ не-2xx; поле "message" из JSON заменяет текст по умолчанию
func statusError(resp *http.Response) *GenerationError {
	genErr := &GenerationError{StatusCode: resp.StatusCode}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		genErr.Classification = GenerationBadRequest
		genErr.Message = "bad request, check the creature description"
	case http.StatusUnauthorized:
		genErr.Classification = GenerationUnauthorized
		genErr.Message = "generator rejected the service credentials"
	case http.StatusForbidden:
		genErr.Classification = GenerationForbidden
		genErr.Message = "access to the generation service is denied"
	case http.StatusTooManyRequests:
		genErr.Classification = GenerationRateLimited
		genErr.Message = "generation limit reached, wait and try again"
	case http.StatusInternalServerError:
		genErr.Classification = GenerationServerError
		genErr.Message = "generation service encountered an internal error"
	default:
		genErr.Classification = GenerationStatusError
		statusText := http.StatusText(resp.StatusCode)
		if statusText == "" {
			statusText = "Unknown error"
		}
		genErr.Message = fmt.Sprintf("%d %s", resp.StatusCode, statusText)
	}

	var body struct {
		Message string `json:"message"`
	}
	if data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); err == nil {
		if json.Unmarshal(data, &body) == nil && body.Message != "" {
			genErr.Message = body.Message
		}
	}

	return genErr
}
