package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE visit_type AS ENUM ('initial', 'followup'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS soap_notes (
		id UUID PRIMARY KEY,
		patient_id TEXT NOT NULL,
		patient_name TEXT NOT NULL,
		visit_type visit_type NOT NULL,
		model TEXT NOT NULL,
		transcript TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		formatted_html TEXT NOT NULL,
		formatted_plain_text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_soap_notes_patient_live ON soap_notes (patient_id, created_at DESC) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
