package foods

import (
	"context"

	"mealtrack/internal/models"
)

// Repository describes operations for the food catalog. Names are unique per
// user, compared case-insensitively.
type Repository interface {
	// Save adds a food item, stamping it pending. When an item with the
	// same name (case-insensitive) already exists for the user, Save is a
	// no-op and returns the existing row's id.
	Save(ctx context.Context, userID, name string, calories *float64) (int64, error)

	// List returns all food items for the user.
	List(ctx context.Context, userID string) ([]models.Food, error)

	// Delete removes a food item by surrogate id. Missing rows are a no-op.
	Delete(ctx context.Context, id int64) error

	// ListPending returns the user's food items awaiting remote push.
	ListPending(ctx context.Context, userID string) ([]models.Food, error)

	// MarkSynced flags a row as delivered to the remote store.
	MarkSynced(ctx context.Context, id int64) error

	// DeleteAllForUser removes every food item for the user.
	DeleteAllForUser(ctx context.Context, userID string) error
}
