package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mealtrack/internal/common"
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

func (r *SQLiteRepository) Save(ctx context.Context, userID, date string, meals map[string]bool, details map[string][]string) (int64, error) {
	if meals == nil {
		meals = map[string]bool{}
	}
	mealsJSON, err := json.Marshal(meals)
	if err != nil {
		return 0, fmt.Errorf("failed to encode meals: %w", err)
	}

	var detailsJSON any
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return 0, fmt.Errorf("failed to encode details: %w", err)
		}
		detailsJSON = string(b)
	}

	query := `INSERT INTO meal_records (user_id, date, meals, details, timestamp, synced)
			VALUES (?, ?, ?, ?, ?, 0)
			ON CONFLICT(user_id, date) DO UPDATE SET meals = excluded.meals,
				details = excluded.details,
				timestamp = excluded.timestamp,
				synced = 0
			RETURNING id
	`
	var id int64
	err = r.db.QueryRowContext(ctx, query,
		userID, date, string(mealsJSON), detailsJSON, time.Now().UTC().Format(time.RFC3339Nano)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert meal record: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, date string) (*models.MealRecord, error) {
	query := `SELECT id, user_id, date, meals, details, timestamp, synced
			FROM meal_records WHERE user_id = ? AND date = ?`
	row := r.db.QueryRowContext(ctx, query, userID, date)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select meal record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.MealRecord, error) {
	query := `SELECT id, user_id, date, meals, details, timestamp, synced
			FROM meal_records WHERE user_id = ? ORDER BY date`
	return r.queryRecords(ctx, query, userID)
}

func (r *SQLiteRepository) ListPending(ctx context.Context, userID string) ([]models.MealRecord, error) {
	query := `SELECT id, user_id, date, meals, details, timestamp, synced
			FROM meal_records WHERE user_id = ? AND synced = 0 ORDER BY id`
	return r.queryRecords(ctx, query, userID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE meal_records SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark meal record synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, date string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM meal_records WHERE user_id = ? AND date = ?`, userID, date); err != nil {
		return fmt.Errorf("failed to delete meal record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM meal_records WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete meal records: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]models.MealRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select meal records: %w", err)
	}
	defer rows.Close()

	var result []models.MealRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRecord(scan func(dest ...any) error) (*models.MealRecord, error) {
	var (
		rec       models.MealRecord
		mealsJSON string
		details   sql.NullString
		ts        string
		synced    int
	)
	if err := scan(&rec.ID, &rec.UserID, &rec.Date, &mealsJSON, &details, &ts, &synced); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(mealsJSON), &rec.Meals); err != nil {
		return nil, fmt.Errorf("failed to decode meals: %w", err)
	}
	if details.Valid {
		if err := json.Unmarshal([]byte(details.String), &rec.Details); err != nil {
			return nil, fmt.Errorf("failed to decode details: %w", err)
		}
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	rec.Timestamp = parsed
	rec.State = models.SyncState(synced)
	return &rec, nil
}
