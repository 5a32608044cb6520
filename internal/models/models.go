// Package models defines the locally stored entity types. Every entity is
// scoped by an opaque user id and carries a sync state plus the time of the
// last local mutation.
package models

import "time"

// SyncState tells whether the latest local value of a row has been durably
// written to the remote store.
type SyncState int

const (
	StatePending SyncState = 0
	StateSynced  SyncState = 1
)

func (s SyncState) String() string {
	if s == StateSynced {
		return "synced"
	}
	return "pending"
}

// MealDefinition is one configurable meal slot. The firestore tags keep the
// remote field names identical to the JSON names used in local storage.
type MealDefinition struct {
	ID      string  `json:"id" firestore:"id"`
	Name    string  `json:"name" firestore:"name"`
	Enabled bool    `json:"enabled" firestore:"enabled"`
	Start   string  `json:"start" firestore:"start"`
	End     string  `json:"end" firestore:"end"`
	Cost    float64 `json:"cost" firestore:"cost"`
}

// MealRecord is one day's log: which meals occurred, with optional per-meal
// detail strings (e.g. foods eaten). Exactly one row exists per (user, date).
type MealRecord struct {
	ID        int64
	UserID    string
	Date      string // YYYY-MM-DD
	Meals     map[string]bool
	Details   map[string][]string
	Timestamp time.Time
	State     SyncState
}

// MealConfig is the user's ordered list of meal definitions. One row per user.
type MealConfig struct {
	ID        int64
	UserID    string
	Meals     []MealDefinition
	Timestamp time.Time
	State     SyncState
}

// Template is a named snapshot of a meal-definition list. At most one
// template per user is active at a time.
type Template struct {
	ID         int64
	UserID     string
	TemplateID string
	Name       string
	Meals      []MealDefinition
	IsActive   bool
	Timestamp  time.Time
	State      SyncState
}

// Profile holds free-form user attributes (display name, avatar URL, cover
// URL, cost-sharing fields). One row per user.
type Profile struct {
	ID        int64
	UserID    string
	Data      map[string]any
	Timestamp time.Time
	State     SyncState
}

// Food is a catalog item, unique per user by case-insensitive name.
type Food struct {
	ID        int64
	UserID    string
	Name      string
	Calories  *float64
	Timestamp time.Time
	State     SyncState
}
