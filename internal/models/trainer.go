package models

import (
	"time"

	"github.com/google/uuid"
)

// Creature сгенерированное существо. После создания не изменяется.
type Creature struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Rarity    Rarity    `json:"rarity"`
	ImageURL  string    `json:"imageUrl"`
	Timestamp time.Time `json:"timestamp"`
}

// TrainerRecord сохраняемый документ тренера
type TrainerRecord struct {
	TrainerID        uuid.UUID  `json:"trainerId"`
	Tokens           int        `json:"tokens"`
	CollectedPokemon []Creature `json:"collectedPokemon"`
}

// NewTrainerRecord создает первую запись тренера
func NewTrainerRecord(trainerID uuid.UUID, initialTokens int) *TrainerRecord {
	return &TrainerRecord{
		TrainerID:        trainerID,
		Tokens:           initialTokens,
		CollectedPokemon: []Creature{},
	}
}

// Clone возвращает копию с независимым срезом коллекции
func (r *TrainerRecord) Clone() *TrainerRecord {
	collected := make([]Creature, len(r.CollectedPokemon))
	copy(collected, r.CollectedPokemon)
	return &TrainerRecord{
		TrainerID:        r.TrainerID,
		Tokens:           r.Tokens,
		CollectedPokemon: collected,
	}
}

// IndexOf возвращает позицию creatureID в коллекции или -1
func (r *TrainerRecord) IndexOf(creatureID uuid.UUID) int {
	for i := range r.CollectedPokemon {
		if r.CollectedPokemon[i].ID == creatureID {
			return i
		}
	}
	return -1
}
