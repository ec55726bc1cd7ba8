// Package store persists project reports. PostgreSQL (JSONB) is the primary
// vault; a directory of JSON files and an in-memory map serve DB-less runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once

	ErrPoolNotInitialized = errors.New("database pool not initialized")
)

const schema = `
CREATE TABLE IF NOT EXISTS project_reports (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	scheme      TEXT NOT NULL,
	status      TEXT NOT NULL,
	report_json JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS project_reports_user_idx ON project_reports (user_id, updated_at DESC);
`

// InitDB initializes the connection pool and creates the reports table
func InitDB(ctx context.Context, dbURL string) error {
	var err error
	once.Do(func() {
		if dbURL == "" {
			err = fmt.Errorf("DATABASE_URL not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return
		}
		if _, execErr := pool.Exec(ctx, schema); execErr != nil {
			err = fmt.Errorf("failed to create schema: %w", execErr)
		}
	})
	return err
}

// GetPool returns the database connection pool
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
