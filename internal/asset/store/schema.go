package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
        id         TEXT PRIMARY KEY,
        created_at TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS assets (
        project_id  TEXT NOT NULL,
        id          TEXT NOT NULL,
        name        TEXT NOT NULL,
        type        TEXT NOT NULL,
        category    TEXT NOT NULL,
        url         TEXT,
        size        INTEGER NOT NULL DEFAULT 0,
        format      TEXT NOT NULL DEFAULT '',
        width       INTEGER,
        height      INTEGER,
        duration    REAL,
        blob_path   TEXT NOT NULL,
        uploaded_at TEXT NOT NULL,
        last_used   TEXT,
        PRIMARY KEY (project_id, id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_assets_project ON assets(project_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_assets_blob ON assets(project_id, blob_path)`,
}

func (s *Store) applySchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
