package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"comictracker/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Record appends one log row. The changes map is stored as JSON text.
func (r *Repo) Record(ctx context.Context, action models.ActivityAction, entryID *string, message string, changes map[string]any) error {
	var changesJSON any
	if len(changes) > 0 {
		b, err := json.Marshal(changes)
		if err != nil {
			return fmt.Errorf("marshal changes: %w", err)
		}
		changesJSON = string(b)
	}

	var entry any
	if entryID != nil {
		entry = *entryID
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO activity_log (id, action, entry_id, message, changes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), string(action), entry, message, changesJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (r *Repo) List(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, action, entry_id, message, changes, created_at
		FROM activity_log
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	out := make([]models.ActivityLog, 0, limit)
	for rows.Next() {
		var (
			l       models.ActivityLog
			action  string
			entryID sql.NullString
			changes sql.NullString
		)
		if err := rows.Scan(&l.ID, &action, &entryID, &l.Message, &changes, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		l.Action = models.ActivityAction(action)
		if entryID.Valid {
			l.EntryID = &entryID.String
		}
		if changes.Valid && changes.String != "" {
			_ = json.Unmarshal([]byte(changes.String), &l.Changes)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
