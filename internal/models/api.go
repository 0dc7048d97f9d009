package models

import (
	"github.com/google/uuid"
)

// GenerateRequest тело запроса POST /hatchery/generate
type GenerateRequest struct {
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Prompt   string `json:"prompt,omitempty" validate:"max=500"`
	Seed     *int64 `json:"seed,omitempty"`
}

// EconomyInfo константы экономики, нужные клиенту для расчета цен
type EconomyInfo struct {
	GenerateCost       int            `json:"generate_cost"`
	MaxBatchSize       int            `json:"max_batch_size"`
	ResellValues       map[Rarity]int `json:"resell_values"`
	DefaultResellValue int            `json:"default_resell_value"`
}

// TrainerStateResponse полный снимок состояния тренера
type TrainerStateResponse struct {
	TrainerID          uuid.UUID   `json:"trainer_id"`
	Tokens             int         `json:"tokens"`
	Collection         []Creature  `json:"collection"`
	Staged             []Creature  `json:"staged"`
	Economy            EconomyInfo `json:"economy"`
	PersistenceWarning string      `json:"persistence_warning,omitempty"`
}

// GenerateResponse ответ после успешной генерации партии
type GenerateResponse struct {
	Staged             []Creature `json:"staged"`
	Tokens             int        `json:"tokens"`
	Spent              int        `json:"spent"`
	PersistenceWarning string     `json:"persistence_warning,omitempty"`
}

// AcceptResponse ответ после переноса существа в коллекцию
type AcceptResponse struct {
	Creature           Creature   `json:"creature"`
	Tokens             int        `json:"tokens"`
	CollectionSize     int        `json:"collection_size"`
	Staged             []Creature `json:"staged"`
	PersistenceWarning string     `json:"persistence_warning,omitempty"`
}

// DiscardResponse ответ после удаления существа из списка ожидания
type DiscardResponse struct {
	Discarded uuid.UUID  `json:"discarded"`
	Staged    []Creature `json:"staged"`
}

// SellResponse результат продажи; Sold равен false, если существо
// не принадлежит тренеру
type SellResponse struct {
	Sold               bool      `json:"sold"`
	CreatureID         uuid.UUID `json:"creature_id"`
	Credited           int       `json:"credited"`
	Tokens             int       `json:"tokens"`
	CollectionSize     int       `json:"collection_size"`
	PersistenceWarning string    `json:"persistence_warning,omitempty"`
}

// CollectionEntry существо вместе с ценой продажи
type CollectionEntry struct {
	Creature
	SellValue int `json:"sell_value"`
}

// CollectionResponse отсортированная и отфильтрованная коллекция
type CollectionResponse struct {
	Sort              string            `json:"sort"`
	Rarity            string            `json:"rarity"`
	Items             []CollectionEntry `json:"items"`
	Total             int               `json:"total"`
	AvailableRarities []Rarity          `json:"available_rarities"`
}

// ErrorResponse единый формат ошибки
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

const (
	ErrorCodeValidation             = "validation_error"
	ErrorCodeInsufficientTokens     = "insufficient_tokens"
	ErrorCodeDuplicateItem          = "duplicate_item"
	ErrorCodeItemNotStaged          = "item_not_staged"
	ErrorCodeGenerationFailed       = "generation_failed"
	ErrorCodePersistenceUnavailable = "persistence_unavailable"
	ErrorCodeMissingToken           = "missing_token"
	ErrorCodeInvalidToken           = "invalid_token"
	ErrorCodeIdentityUnavailable    = "identity_unavailable"
	ErrorCodeMissingUserID          = "missing_user_id"
	ErrorCodeBadRequest             = "bad_request"
	ErrorCodeRequestTimeout         = "request_timeout"
	ErrorCodeInternalError          = "internal_error"
)
