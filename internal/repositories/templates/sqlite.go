package templates

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mealtrack/internal/common"
	"mealtrack/internal/dbx"
	"mealtrack/internal/models"
)

// SQLiteRepository implements Repository over a *sql.DB. Unlike the other
// repositories it needs the full DB handle: SetActive runs inside a
// transaction of its own.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, userID, templateID, name string, meals []models.MealDefinition, isActive bool) (int64, error) {
	if templateID == "" {
		templateID = uuid.NewString()
	}
	return r.upsertOne(ctx, userID, templateID, name, meals, isActive, models.StatePending)
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, userID, templateID, name string, meals []models.MealDefinition, isActive bool) (int64, error) {
	return r.upsertOne(ctx, userID, templateID, name, meals, isActive, models.StateSynced)
}

// upsertOne writes one template row. An activating write runs inside a
// transaction that first demotes any other active template, so at most one
// template per user is active no matter which path wrote it. Demoted rows
// are stamped pending: the demotion is a local mutation that still has to
// reach the remote.
func (r *SQLiteRepository) upsertOne(ctx context.Context, userID, templateID, name string, meals []models.MealDefinition, isActive bool, state models.SyncState) (int64, error) {
	if !isActive {
		return upsert(ctx, r.db, userID, templateID, name, meals, isActive, state)
	}

	var id int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE templates SET is_active = 0, synced = 0, timestamp = ? WHERE user_id = ? AND template_id <> ? AND is_active = 1`,
			time.Now().UTC().Format(time.RFC3339Nano), userID, templateID); err != nil {
			return fmt.Errorf("failed to deactivate templates: %w", err)
		}
		var err error
		id, err = upsert(ctx, tx, userID, templateID, name, meals, isActive, state)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func upsert(ctx context.Context, db dbx.DBTX, userID, templateID, name string, meals []models.MealDefinition, isActive bool, state models.SyncState) (int64, error) {
	if meals == nil {
		meals = []models.MealDefinition{}
	}
	mealsJSON, err := json.Marshal(meals)
	if err != nil {
		return 0, fmt.Errorf("failed to encode meals: %w", err)
	}

	query := `INSERT INTO templates (user_id, template_id, name, meals, is_active, timestamp, synced)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, template_id) DO UPDATE SET name = excluded.name,
				meals = excluded.meals,
				is_active = excluded.is_active,
				timestamp = excluded.timestamp,
				synced = excluded.synced
			RETURNING id
	`
	var id int64
	err = db.QueryRowContext(ctx, query,
		userID, templateID, name, string(mealsJSON), boolToInt(isActive),
		time.Now().UTC().Format(time.RFC3339Nano), int(state)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert template: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, templateID string) (*models.Template, error) {
	query := `SELECT id, user_id, template_id, name, meals, is_active, timestamp, synced
			FROM templates WHERE user_id = ? AND template_id = ?`
	return r.getOne(ctx, query, userID, templateID)
}

func (r *SQLiteRepository) GetActive(ctx context.Context, userID string) (*models.Template, error) {
	query := `SELECT id, user_id, template_id, name, meals, is_active, timestamp, synced
			FROM templates WHERE user_id = ? AND is_active = 1`
	return r.getOne(ctx, query, userID)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.Template, error) {
	row := r.db.QueryRowContext(ctx, query, args...)

	tpl, err := scanTemplate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select template: %w", err)
	}
	return tpl, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.Template, error) {
	query := `SELECT id, user_id, template_id, name, meals, is_active, timestamp, synced
			FROM templates WHERE user_id = ? ORDER BY id`
	return r.queryTemplates(ctx, query, userID)
}

func (r *SQLiteRepository) ListPending(ctx context.Context, userID string) ([]models.Template, error) {
	query := `SELECT id, user_id, template_id, name, meals, is_active, timestamp, synced
			FROM templates WHERE user_id = ? AND synced = 0 ORDER BY id`
	return r.queryTemplates(ctx, query, userID)
}

// SetActive performs the two-phase transition inside one transaction so no
// reader observes zero or two active templates. If the target template does
// not exist the transaction rolls back and the previous active template, if
// any, keeps its state.
func (r *SQLiteRepository) SetActive(ctx context.Context, userID, templateID string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)

		if _, err := tx.ExecContext(ctx,
			`UPDATE templates SET is_active = 0, synced = 0, timestamp = ? WHERE user_id = ?`,
			now, userID); err != nil {
			return fmt.Errorf("failed to deactivate templates: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE templates SET is_active = 1, synced = 0, timestamp = ? WHERE user_id = ? AND template_id = ?`,
			now, userID, templateID)
		if err != nil {
			return fmt.Errorf("failed to activate template: %w", err)
		}
		ra, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if ra == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, templateID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE user_id = ? AND template_id = ?`, userID, templateID); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE templates SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark template synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete templates: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) queryTemplates(ctx context.Context, query string, args ...any) ([]models.Template, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanTemplate(scan func(dest ...any) error) (*models.Template, error) {
	var (
		tpl       models.Template
		mealsJSON string
		isActive  int
		ts        string
		synced    int
	)
	if err := scan(&tpl.ID, &tpl.UserID, &tpl.TemplateID, &tpl.Name, &mealsJSON, &isActive, &ts, &synced); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(mealsJSON), &tpl.Meals); err != nil {
		return nil, fmt.Errorf("failed to decode meals: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	tpl.IsActive = isActive == 1
	tpl.Timestamp = parsed
	tpl.State = models.SyncState(synced)
	return &tpl, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
