package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity размер партии вне диапазона 1..max_batch_size
	ErrInvalidQuantity = errors.New("invalid generation quantity")

	// ErrNotStaged существо отсутствует в списке ожидания
	ErrNotStaged = errors.New("creature is not staged")

	// ErrDuplicateItem существо с таким id уже есть в коллекции
	ErrDuplicateItem = errors.New("creature is already in the collection")

	// ErrPersistenceUnavailable оборачивает ошибки хранилища
	ErrPersistenceUnavailable = errors.New("trainer persistence unavailable")

	// ErrInvalidSortKey неизвестный ключ сортировки
	ErrInvalidSortKey = errors.New("invalid sort key")
)

// InsufficientTokensError тренеру не хватает токенов на партию
type InsufficientTokensError struct {
	Required  int
	Available int
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("insufficient tokens: required %d, available %d", e.Required, e.Available)
}

// GenerationErrorClass класс ошибки вызова генерации
type GenerationErrorClass string

const (
	GenerationBadRequest         GenerationErrorClass = "bad_request"
	GenerationUnauthorized       GenerationErrorClass = "unauthorized"
	GenerationForbidden          GenerationErrorClass = "forbidden"
	GenerationRateLimited        GenerationErrorClass = "rate_limited"
	GenerationServerError        GenerationErrorClass = "server_error"
	GenerationStatusError        GenerationErrorClass = "status_error"
	GenerationNetworkUnreachable GenerationErrorClass = "network_unreachable"
	GenerationUnknown            GenerationErrorClass = "unknown"
)

// GenerationError единственная ошибка, возвращаемая для партии
type GenerationError struct {
	Classification GenerationErrorClass
	Message        string
	StatusCode     int
	cause          error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation failed (%s, HTTP %d): %s", e.Classification, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("generation failed (%s): %s", e.Classification, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.cause
}
