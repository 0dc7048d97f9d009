package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type contextKey string

const trainerContextKey contextKey = "trainer"

// TrainerContext identifies the caller of a public request
type TrainerContext struct {
	// Subject is the JWT sub claim, the stable client key
	Subject    string
	TelegramID int64
	TrainerID  uuid.UUID
}

func WithTrainer(ctx context.Context, trainer *TrainerContext) context.Context {
	return context.WithValue(ctx, trainerContextKey, trainer)
}

func GetTrainer(ctx context.Context) (*TrainerContext, error) {
	trainer, ok := ctx.Value(trainerContextKey).(*TrainerContext)
	if !ok || trainer == nil {
		return nil, fmt.Errorf("trainer not found in context")
	}
	return trainer, nil
}

func GetTrainerID(ctx context.Context) (uuid.UUID, error) {
	trainer, err := GetTrainer(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return trainer.TrainerID, nil
}
