package database

import (
	"database/sql"
	"fmt"
)

// schema is applied on every startup; statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS entries (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  title_lower TEXT NOT NULL,
  base_title TEXT NOT NULL,
  base_title_lower TEXT NOT NULL,
  descriptor TEXT,
  descriptor_lower TEXT NOT NULL DEFAULT '',
  status TEXT,
  chapters_read INTEGER,
  total_chapters INTEGER,
  score REAL,
  start_date TIMESTAMP,
  end_date TIMESTAMP,
  cover_image_url TEXT,
  cover_source TEXT,
  cover_source_id INTEGER,
  cover_fetched_at TIMESTAMP,
  source_titles_json TEXT,
  source_titles_at TIMESTAMP,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (title, type)
);

CREATE INDEX IF NOT EXISTS idx_entries_title_lower ON entries(title_lower);
CREATE INDEX IF NOT EXISTS idx_entries_type ON entries(type);
CREATE INDEX IF NOT EXISTS idx_entries_updated_at ON entries(updated_at);

CREATE TABLE IF NOT EXISTS alt_titles (
  id TEXT PRIMARY KEY,
  entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  title_lower TEXT NOT NULL,
  UNIQUE (entry_id, title_lower)
);

CREATE INDEX IF NOT EXISTS idx_alt_titles_title_lower ON alt_titles(title_lower);

CREATE TABLE IF NOT EXISTS import_runs (
  id TEXT PRIMARY KEY,
  filename TEXT NOT NULL,
  status TEXT NOT NULL,
  total_rows INTEGER NOT NULL DEFAULT 0,
  unique_keys INTEGER NOT NULL DEFAULT 0,
  duplicates INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  created_count INTEGER NOT NULL DEFAULT 0,
  updated_count INTEGER NOT NULL DEFAULT 0,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  error TEXT,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS activity_log (
  id TEXT PRIMARY KEY,
  action TEXT NOT NULL,
  entry_id TEXT,
  message TEXT NOT NULL,
  changes TEXT,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activity_log_created_at ON activity_log(created_at);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
