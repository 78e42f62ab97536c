package importer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"comictracker/pkg/models"
)

type RunRepo struct {
	DB *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{DB: db}
}

// Record persists one finalized run summary.
func (r *RunRepo) Record(ctx context.Context, run *models.ImportRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.CreatedAt = time.Now().UTC()

	var errMsg any
	if run.Error != nil {
		errMsg = *run.Error
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO import_runs (
			id, filename, status, total_rows, unique_keys, duplicates, skipped,
			created_count, updated_count, duration_ms, error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Filename, string(run.Status), run.TotalRows, run.UniqueKeys,
		run.Duplicates, run.Skipped, run.Created, run.Updated, run.DurationMs,
		errMsg, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}
	return nil
}

func (r *RunRepo) List(ctx context.Context, limit int) ([]models.ImportRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, filename, status, total_rows, unique_keys, duplicates, skipped,
		       created_count, updated_count, duration_ms, error, created_at
		FROM import_runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.ImportRun, 0, limit)
	for rows.Next() {
		var (
			run    models.ImportRun
			status string
			errMsg sql.NullString
		)
		if err := rows.Scan(
			&run.ID, &run.Filename, &status, &run.TotalRows, &run.UniqueKeys,
			&run.Duplicates, &run.Skipped, &run.Created, &run.Updated,
			&run.DurationMs, &errMsg, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		run.Status = models.ImportRunStatus(status)
		if errMsg.Valid {
			run.Error = &errMsg.String
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
