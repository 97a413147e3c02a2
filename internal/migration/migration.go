package migration

import (
	"context"

	"gobrittle/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. Every statement is
// idempotent, so Run is safe on an already migrated database.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range r.Steps() {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.Wrapf(err, "failed to %s", step.Name)
		}
	}
	return nil
}

// Step is one named schema statement
type Step struct {
	Name string
	SQL  string
}

// Steps returns the schema statements in execution order
func (r *MigrationRunner) Steps() []Step {
	return []Step{
		{Name: "create brittleness_profiles table", SQL: createProfilesTable},
		{Name: "create profile_segments table", SQL: createSegmentsTable},
		{Name: "add pattern column", SQL: addPatternColumn},
		{Name: "create indexes", SQL: createIndexes},
	}
}

const createProfilesTable = `
	CREATE TABLE IF NOT EXISTS brittleness_profiles (
		run_id UUID PRIMARY KEY,
		subject_id VARCHAR(255) NOT NULL,
		domain VARCHAR(32) NOT NULL,
		overall_score DOUBLE PRECISION NOT NULL,
		level SMALLINT NOT NULL CHECK (level BETWEEN 1 AND 5),
		code VARCHAR(4) NOT NULL,
		label VARCHAR(64) NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		segment_count SMALLINT NOT NULL,
		fingerprint CHAR(64) NOT NULL,
		profile JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)
`

const createSegmentsTable = `
	CREATE TABLE IF NOT EXISTS profile_segments (
		run_id UUID NOT NULL REFERENCES brittleness_profiles(run_id) ON DELETE CASCADE,
		segment_index SMALLINT NOT NULL,
		start_index INTEGER NOT NULL,
		end_index INTEGER NOT NULL,
		start_time TIMESTAMP WITH TIME ZONE NOT NULL,
		end_time TIMESTAMP WITH TIME ZONE NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		importance DOUBLE PRECISION NOT NULL,
		trend VARCHAR(16) NOT NULL,
		PRIMARY KEY (run_id, segment_index)
	)
`

const addPatternColumn = `
	DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'brittleness_profiles' AND column_name = 'pattern'
		) THEN
			ALTER TABLE brittleness_profiles ADD COLUMN pattern VARCHAR(32) NOT NULL DEFAULT '';
		END IF;
	END $$;
`

const createIndexes = `
	CREATE INDEX IF NOT EXISTS idx_brittleness_profiles_subject ON brittleness_profiles(subject_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_brittleness_profiles_fingerprint ON brittleness_profiles(fingerprint);
`
