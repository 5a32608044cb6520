package configs

import (
	"context"

	"mealtrack/internal/models"
)

// Repository describes operations for the user's meal configuration.
// Exactly one configuration row exists per user.
type Repository interface {
	// Save upserts the user's configuration, stamping it pending.
	Save(ctx context.Context, userID string, meals []models.MealDefinition) (int64, error)

	// Get returns the user's configuration, or common.ErrNotFound.
	Get(ctx context.Context, userID string) (*models.MealConfig, error)

	// ListPending returns the user's configuration rows awaiting remote push.
	ListPending(ctx context.Context, userID string) ([]models.MealConfig, error)

	// MarkSynced flags a row as delivered to the remote store.
	MarkSynced(ctx context.Context, id int64) error

	// ApplyRemote overwrites the local configuration with the remote copy,
	// stamping it synced. Used by the pull path only.
	ApplyRemote(ctx context.Context, userID string, meals []models.MealDefinition) (int64, error)

	// DeleteAllForUser removes the user's configuration.
	DeleteAllForUser(ctx context.Context, userID string) error
}
