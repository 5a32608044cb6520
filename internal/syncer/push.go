package syncer

import (
	"context"
	"time"

	"mealtrack/internal/models"
	"mealtrack/internal/remote"
)

// SyncAll runs one push pass for the user: every pending row is attempted
// against the remote store, in a fixed entity order. A row that fails stays
// pending and the pass moves on; the next trigger retries it. At most one
// pass runs per engine at a time — a call made while a pass is active
// returns false without starting another. Rows written after a sub-pass
// queried its pending set are picked up by the next trigger.
func (e *Engine) SyncAll(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer e.inFlight.Store(false)

	e.notify(true)
	defer e.notify(false)

	e.pushRecords(ctx, userID)
	e.pushConfigs(ctx, userID)
	e.pushTemplates(ctx, userID)
	e.pushProfiles(ctx, userID)
	e.pushFoods(ctx, userID)

	e.log.Info(ctx, "sync pass finished", "user", userID)
	return true
}

func (e *Engine) pushRecords(ctx context.Context, userID string) {
	rows, err := e.repos.Records.ListPending(ctx, userID)
	if err != nil {
		e.log.Error(ctx, "failed to list pending meal records", "error", err)
		return
	}
	for _, rec := range rows {
		if err := e.upsert(ctx, remote.MealDoc(userID, rec.Date), recordFields(rec)); err != nil {
			e.log.Warn(ctx, "failed to push meal record", "date", rec.Date, "error", err)
			continue
		}
		if err := e.repos.Records.MarkSynced(ctx, rec.ID); err != nil {
			e.log.Error(ctx, "failed to mark meal record synced", "date", rec.Date, "error", err)
		}
	}
}

func (e *Engine) pushConfigs(ctx context.Context, userID string) {
	rows, err := e.repos.Configs.ListPending(ctx, userID)
	if err != nil {
		e.log.Error(ctx, "failed to list pending meal configs", "error", err)
		return
	}
	for _, cfg := range rows {
		if err := e.upsert(ctx, remote.ConfigDoc(userID), configFields(cfg)); err != nil {
			e.log.Warn(ctx, "failed to push meal config", "error", err)
			continue
		}
		if err := e.repos.Configs.MarkSynced(ctx, cfg.ID); err != nil {
			e.log.Error(ctx, "failed to mark meal config synced", "error", err)
		}
	}
}

func (e *Engine) pushTemplates(ctx context.Context, userID string) {
	rows, err := e.repos.Templates.ListPending(ctx, userID)
	if err != nil {
		e.log.Error(ctx, "failed to list pending templates", "error", err)
		return
	}
	for _, tpl := range rows {
		if err := e.upsert(ctx, remote.TemplateDoc(userID, tpl.TemplateID), templateFields(tpl)); err != nil {
			e.log.Warn(ctx, "failed to push template", "template", tpl.TemplateID, "error", err)
			continue
		}
		if err := e.repos.Templates.MarkSynced(ctx, tpl.ID); err != nil {
			e.log.Error(ctx, "failed to mark template synced", "template", tpl.TemplateID, "error", err)
		}
	}
}

func (e *Engine) pushProfiles(ctx context.Context, userID string) {
	rows, err := e.repos.Profiles.ListPending(ctx, userID)
	if err != nil {
		e.log.Error(ctx, "failed to list pending profiles", "error", err)
		return
	}
	for _, p := range rows {
		// Merge, not replace: server-side profile attributes survive.
		if err := e.merge(ctx, remote.UserDoc(userID), profileFields(p)); err != nil {
			e.log.Warn(ctx, "failed to push profile", "error", err)
			continue
		}
		if err := e.repos.Profiles.MarkSynced(ctx, p.ID); err != nil {
			e.log.Error(ctx, "failed to mark profile synced", "error", err)
		}
	}
}

func (e *Engine) pushFoods(ctx context.Context, userID string) {
	rows, err := e.repos.Foods.ListPending(ctx, userID)
	if err != nil {
		e.log.Error(ctx, "failed to list pending foods", "error", err)
		return
	}
	for _, f := range rows {
		if err := e.upsert(ctx, remote.FoodDoc(userID, f.Name), foodFields(f)); err != nil {
			e.log.Warn(ctx, "failed to push food", "name", f.Name, "error", err)
			continue
		}
		if err := e.repos.Foods.MarkSynced(ctx, f.ID); err != nil {
			e.log.Error(ctx, "failed to mark food synced", "name", f.Name, "error", err)
		}
	}
}

func (e *Engine) upsert(ctx context.Context, path string, fields remote.Document) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.remote.Upsert(ctx, path, fields)
}

func (e *Engine) merge(ctx context.Context, path string, fields remote.Document) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.remote.Merge(ctx, path, fields)
}

// Document field builders. Field names are stable strings shared with the
// pull path and with other clients of the same remote collections.

func recordFields(rec models.MealRecord) remote.Document {
	fields := remote.Document{}
	for mealID, occurred := range rec.Meals {
		fields[mealID] = occurred
	}
	fields["date"] = rec.Date
	fields["timestamp"] = rec.Timestamp.Format(time.RFC3339)
	if len(rec.Details) > 0 {
		details := make(map[string]any, len(rec.Details))
		for mealID, items := range rec.Details {
			values := make([]any, len(items))
			for i, item := range items {
				values[i] = item
			}
			details[mealID] = values
		}
		fields["details"] = details
	}
	return fields
}

func configFields(cfg models.MealConfig) remote.Document {
	return remote.Document{
		"meals":     cfg.Meals,
		"updatedAt": cfg.Timestamp.Format(time.RFC3339),
	}
}

func templateFields(tpl models.Template) remote.Document {
	return remote.Document{
		"name":      tpl.Name,
		"meals":     tpl.Meals,
		"isActive":  tpl.IsActive,
		"updatedAt": tpl.Timestamp.Format(time.RFC3339),
	}
}

func profileFields(p models.Profile) remote.Document {
	fields := make(remote.Document, len(p.Data)+1)
	for k, v := range p.Data {
		fields[k] = v
	}
	fields["updatedAt"] = p.Timestamp.Format(time.RFC3339)
	return fields
}

func foodFields(f models.Food) remote.Document {
	fields := remote.Document{
		"name":      f.Name,
		"timestamp": f.Timestamp.Format(time.RFC3339),
	}
	if f.Calories != nil {
		fields["calories"] = *f.Calories
	}
	return fields
}
