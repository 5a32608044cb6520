package templates

import (
	"context"

	"mealtrack/internal/models"
)

// Repository describes operations for meal templates. Templates are unique
// per (user, templateID); at most one template per user is active.
type Repository interface {
	// Save upserts the template for (userID, templateID), stamping it pending.
	// An empty templateID mints a fresh one. Saving with isActive demotes any
	// other active template in the same transaction.
	Save(ctx context.Context, userID, templateID, name string, meals []models.MealDefinition, isActive bool) (int64, error)

	// Get returns the template for (userID, templateID), or common.ErrNotFound.
	Get(ctx context.Context, userID, templateID string) (*models.Template, error)

	// List returns all templates for the user.
	List(ctx context.Context, userID string) ([]models.Template, error)

	// GetActive returns the user's active template, or common.ErrNotFound.
	GetActive(ctx context.Context, userID string) (*models.Template, error)

	// SetActive deactivates every template for the user and activates the
	// named one, atomically: readers never observe zero or two active
	// templates mid-transition. Both phases stamp pending. Returns
	// common.ErrNotFound (and changes nothing) when the template is absent.
	SetActive(ctx context.Context, userID, templateID string) error

	// Delete removes the template. Missing rows are a no-op.
	Delete(ctx context.Context, userID, templateID string) error

	// ListPending returns the user's templates awaiting remote push.
	ListPending(ctx context.Context, userID string) ([]models.Template, error)

	// MarkSynced flags a row as delivered to the remote store.
	MarkSynced(ctx context.Context, id int64) error

	// ApplyRemote overwrites the local template with the remote copy,
	// stamping it synced. Used by the pull path only. An active copy demotes
	// any other active template; the demoted row goes pending so the next
	// push converges the remote.
	ApplyRemote(ctx context.Context, userID, templateID, name string, meals []models.MealDefinition, isActive bool) (int64, error)

	// DeleteAllForUser removes every template for the user.
	DeleteAllForUser(ctx context.Context, userID string) error
}
