package foods

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mealtrack/internal/dbx"
	"mealtrack/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save coalesces duplicates by natural key. The name column carries NOCASE
// collation and (user_id, name) is unique, so "Rice" and "rice" land on the
// same row in a single statement; a duplicate keeps the original spelling,
// calories, and sync state.
func (r *SQLiteRepository) Save(ctx context.Context, userID, name string, calories *float64) (int64, error) {
	query := `INSERT INTO foods (user_id, name, calories, timestamp, synced)
			VALUES (?, ?, ?, ?, 0)
			ON CONFLICT(user_id, name) DO UPDATE SET name = foods.name
			RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		userID, name, caloriesArg(calories), time.Now().UTC().Format(time.RFC3339Nano)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert food: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.Food, error) {
	query := `SELECT id, user_id, name, calories, timestamp, synced FROM foods WHERE user_id = ? ORDER BY name COLLATE NOCASE`
	return r.queryFoods(ctx, query, userID)
}

func (r *SQLiteRepository) ListPending(ctx context.Context, userID string) ([]models.Food, error) {
	query := `SELECT id, user_id, name, calories, timestamp, synced FROM foods WHERE user_id = ? AND synced = 0 ORDER BY id`
	return r.queryFoods(ctx, query, userID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM foods WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete food: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE foods SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark food synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM foods WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete foods: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) queryFoods(ctx context.Context, query string, args ...any) ([]models.Food, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select foods: %w", err)
	}
	defer rows.Close()

	var result []models.Food
	for rows.Next() {
		var (
			f        models.Food
			calories sql.NullFloat64
			ts       string
			synced   int
		)
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &calories, &ts, &synced); err != nil {
			return nil, err
		}
		if calories.Valid {
			v := calories.Float64
			f.Calories = &v
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		f.Timestamp = parsed
		f.State = models.SyncState(synced)
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func caloriesArg(calories *float64) any {
	if calories == nil {
		return nil
	}
	return *calories
}
