// Package remote defines the canonical document store the sync engine pushes
// to and pulls from, plus the document-path scheme. Paths mirror the natural
// keys used locally, so a push is an idempotent upsert on both sides.
package remote

import (
	"context"
	"fmt"
	"strings"
)

// Document is the field map of one remote document.
type Document map[string]any

// Snapshot pairs a document key (the last path segment) with its fields.
type Snapshot struct {
	Key    string
	Fields Document
}

// Store is the remote document store.
type Store interface {
	// Upsert replaces the document at path with fields.
	Upsert(ctx context.Context, path string, fields Document) error

	// Merge writes fields into the document at path, keeping fields not
	// mentioned. The profile push uses this so server-side attributes
	// survive a client write.
	Merge(ctx context.Context, path string, fields Document) error

	// Get returns the document at path, or common.ErrNotFound.
	Get(ctx context.Context, path string) (Document, error)

	// List returns every document in the collection.
	List(ctx context.Context, collection string) ([]Snapshot, error)

	Close() error
}

// UserDoc is the profile document for a user.
func UserDoc(userID string) string {
	return "users/" + userID
}

// MealDoc is the daily-record document for (user, date).
func MealDoc(userID, date string) string {
	return fmt.Sprintf("users/%s/meals/%s", userID, date)
}

// ConfigDoc is the single meal-configuration document for a user.
func ConfigDoc(userID string) string {
	return fmt.Sprintf("users/%s/mealConfigs/default", userID)
}

// TemplateDoc is the template document for (user, templateID).
func TemplateDoc(userID, templateID string) string {
	return fmt.Sprintf("users/%s/templates/%s", userID, templateID)
}

// TemplatesCollection is the collection holding a user's templates.
func TemplatesCollection(userID string) string {
	return fmt.Sprintf("users/%s/templates", userID)
}

// FoodDoc is the catalog-item document for (user, name). The name is
// lowercased so the remote key matches the local case-insensitive natural key.
func FoodDoc(userID, name string) string {
	return fmt.Sprintf("users/%s/foods/%s", userID, strings.ToLower(name))
}
