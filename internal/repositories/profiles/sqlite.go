package profiles

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

func (r *SQLiteRepository) Save(ctx context.Context, userID string, data map[string]any) (int64, error) {
	return r.upsert(ctx, userID, data, models.StatePending)
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, userID string, data map[string]any) (int64, error) {
	return r.upsert(ctx, userID, data, models.StateSynced)
}

func (r *SQLiteRepository) upsert(ctx context.Context, userID string, data map[string]any, state models.SyncState) (int64, error) {
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to encode profile data: %w", err)
	}

	query := `INSERT INTO profiles (user_id, data, timestamp, synced)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET data = excluded.data,
				timestamp = excluded.timestamp,
				synced = excluded.synced
			RETURNING id
	`
	var id int64
	err = r.db.QueryRowContext(ctx, query,
		userID, string(dataJSON), time.Now().UTC().Format(time.RFC3339Nano), int(state)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT id, user_id, data, timestamp, synced FROM profiles WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)

	p, err := scanProfile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context, userID string) ([]models.Profile, error) {
	query := `SELECT id, user_id, data, timestamp, synced FROM profiles WHERE user_id = ? AND synced = 0`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending profiles: %w", err)
	}
	defer rows.Close()

	var result []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE profiles SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark profile synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete profiles: %w", err)
	}
	return nil
}

func scanProfile(scan func(dest ...any) error) (*models.Profile, error) {
	var (
		p        models.Profile
		dataJSON string
		ts       string
		synced   int
	)
	if err := scan(&p.ID, &p.UserID, &dataJSON, &ts, &synced); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(dataJSON), &p.Data); err != nil {
		return nil, fmt.Errorf("failed to decode profile data: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	p.Timestamp = parsed
	p.State = models.SyncState(synced)
	return &p, nil
}
