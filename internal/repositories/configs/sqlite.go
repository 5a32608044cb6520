package configs

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

func (r *SQLiteRepository) Save(ctx context.Context, userID string, meals []models.MealDefinition) (int64, error) {
	return r.upsert(ctx, userID, meals, models.StatePending)
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, userID string, meals []models.MealDefinition) (int64, error) {
	return r.upsert(ctx, userID, meals, models.StateSynced)
}

func (r *SQLiteRepository) upsert(ctx context.Context, userID string, meals []models.MealDefinition, state models.SyncState) (int64, error) {
	if meals == nil {
		meals = []models.MealDefinition{}
	}
	mealsJSON, err := json.Marshal(meals)
	if err != nil {
		return 0, fmt.Errorf("failed to encode meals: %w", err)
	}

	query := `INSERT INTO meal_configs (user_id, meals, timestamp, synced)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET meals = excluded.meals,
				timestamp = excluded.timestamp,
				synced = excluded.synced
			RETURNING id
	`
	var id int64
	err = r.db.QueryRowContext(ctx, query,
		userID, string(mealsJSON), time.Now().UTC().Format(time.RFC3339Nano), int(state)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert meal config: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID string) (*models.MealConfig, error) {
	query := `SELECT id, user_id, meals, timestamp, synced FROM meal_configs WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)

	cfg, err := scanConfig(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select meal config: %w", err)
	}
	return cfg, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context, userID string) ([]models.MealConfig, error) {
	query := `SELECT id, user_id, meals, timestamp, synced FROM meal_configs WHERE user_id = ? AND synced = 0`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending meal configs: %w", err)
	}
	defer rows.Close()

	var result []models.MealConfig
	for rows.Next() {
		cfg, err := scanConfig(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE meal_configs SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark meal config synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM meal_configs WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete meal configs: %w", err)
	}
	return nil
}

func scanConfig(scan func(dest ...any) error) (*models.MealConfig, error) {
	var (
		cfg       models.MealConfig
		mealsJSON string
		ts        string
		synced    int
	)
	if err := scan(&cfg.ID, &cfg.UserID, &mealsJSON, &ts, &synced); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(mealsJSON), &cfg.Meals); err != nil {
		return nil, fmt.Errorf("failed to decode meals: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	cfg.Timestamp = parsed
	cfg.State = models.SyncState(synced)
	return &cfg, nil
}
