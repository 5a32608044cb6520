package records

import (
	"context"

	"mealtrack/internal/models"
)

// Repository describes CRUD and query operations for daily meal records.
// Implementations are typically backed by the local SQLite database.
type Repository interface {
	// Save upserts the record for (userID, date), stamping it pending.
	// The surrogate id of the row is returned and stable across updates.
	Save(ctx context.Context, userID, date string, meals map[string]bool, details map[string][]string) (int64, error)

	// Get returns the record for (userID, date), or common.ErrNotFound.
	Get(ctx context.Context, userID, date string) (*models.MealRecord, error)

	// List returns all records for the user.
	List(ctx context.Context, userID string) ([]models.MealRecord, error)

	// ListPending returns the user's records awaiting remote push.
	ListPending(ctx context.Context, userID string) ([]models.MealRecord, error)

	// MarkSynced flags a row as delivered to the remote store.
	MarkSynced(ctx context.Context, id int64) error

	// Delete removes the record for (userID, date). Missing rows are a no-op.
	Delete(ctx context.Context, userID, date string) error

	// DeleteAllForUser removes every record for the user.
	DeleteAllForUser(ctx context.Context, userID string) error
}
