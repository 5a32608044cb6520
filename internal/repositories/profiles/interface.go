package profiles

import (
	"context"

	"mealtrack/internal/models"
)

// Repository describes operations for the user profile. Exactly one profile
// row exists per user; the payload is a free-form attribute map.
type Repository interface {
	// Save upserts the user's profile, stamping it pending.
	Save(ctx context.Context, userID string, data map[string]any) (int64, error)

	// Get returns the user's profile, or common.ErrNotFound.
	Get(ctx context.Context, userID string) (*models.Profile, error)

	// ListPending returns the user's profile rows awaiting remote push.
	ListPending(ctx context.Context, userID string) ([]models.Profile, error)

	// MarkSynced flags a row as delivered to the remote store.
	MarkSynced(ctx context.Context, id int64) error

	// ApplyRemote overwrites the local profile with the remote copy,
	// stamping it synced. Used by the pull path only.
	ApplyRemote(ctx context.Context, userID string, data map[string]any) (int64, error)

	// DeleteAllForUser removes the user's profile.
	DeleteAllForUser(ctx context.Context, userID string) error
}
