package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mealtrack/internal/common"
	"mealtrack/internal/models"
	"mealtrack/internal/remote"
)

// PullRemote overwrites the local configuration, template set, and profile
// with the remote canonical copies (remote wins). Meal records are never
// pulled; local history is authoritative and only ever pushed. Pulled rows
// are stored synced — they already match the remote. A kind that fails is
// logged and the remaining kinds still run; the first failure is returned.
func (e *Engine) PullRemote(ctx context.Context, userID string) error {
	var firstErr error
	fail := func(kind string, err error) {
		e.log.Warn(ctx, "failed to pull "+kind, "user", userID, "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("pull %s: %w", kind, err)
		}
	}

	if err := e.pullConfig(ctx, userID); err != nil {
		fail("meal config", err)
	}
	if err := e.pullTemplates(ctx, userID); err != nil {
		fail("templates", err)
	}
	if err := e.pullProfile(ctx, userID); err != nil {
		fail("profile", err)
	}
	return firstErr
}

func (e *Engine) pullConfig(ctx context.Context, userID string) error {
	doc, err := e.get(ctx, remote.ConfigDoc(userID))
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	meals, err := mealsFromValue(doc["meals"])
	if err != nil {
		return err
	}
	_, err = e.repos.Configs.ApplyRemote(ctx, userID, meals)
	return err
}

func (e *Engine) pullTemplates(ctx context.Context, userID string) error {
	snaps, err := e.list(ctx, remote.TemplatesCollection(userID))
	if err != nil {
		return err
	}

	for _, snap := range snaps {
		meals, err := mealsFromValue(snap.Fields["meals"])
		if err != nil {
			return fmt.Errorf("template %s: %w", snap.Key, err)
		}
		name, _ := snap.Fields["name"].(string)
		isActive, _ := snap.Fields["isActive"].(bool)

		if _, err := e.repos.Templates.ApplyRemote(ctx, userID, snap.Key, name, meals, isActive); err != nil {
			return fmt.Errorf("template %s: %w", snap.Key, err)
		}
	}
	return nil
}

func (e *Engine) pullProfile(ctx context.Context, userID string) error {
	doc, err := e.get(ctx, remote.UserDoc(userID))
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = e.repos.Profiles.ApplyRemote(ctx, userID, map[string]any(doc))
	return err
}

func (e *Engine) get(ctx context.Context, path string) (remote.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.remote.Get(ctx, path)
}

func (e *Engine) list(ctx context.Context, collection string) ([]remote.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.remote.List(ctx, collection)
}

// mealsFromValue converts the decoded "meals" field of a remote document
// into typed definitions. The remote decoder hands back generic maps, so a
// JSON round-trip is the simplest faithful conversion.
func mealsFromValue(v any) ([]models.MealDefinition, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode meals field: %w", err)
	}
	var meals []models.MealDefinition
	if err := json.Unmarshal(b, &meals); err != nil {
		return nil, fmt.Errorf("failed to decode meals field: %w", err)
	}
	return meals, nil
}
