package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:courseware.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/courseware?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS gating_prerequisites (
  course_id TEXT NOT NULL,
  block_id TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  PRIMARY KEY (course_id, block_id)
);

CREATE TABLE IF NOT EXISTS gating_requirements (
  course_id TEXT NOT NULL,
  gated_id TEXT NOT NULL,
  gating_id TEXT NOT NULL,
  min_score REAL NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (course_id, gated_id)
);

CREATE TABLE IF NOT EXISTS gating_fulfillments (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  gated_id TEXT NOT NULL,
  score REAL NOT NULL DEFAULT 0,
  fulfilled INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, gated_id)
);

CREATE TABLE IF NOT EXISTS block_scores (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  block_id TEXT NOT NULL,
  earned REAL NOT NULL DEFAULT 0,
  possible REAL NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, block_id)
);

CREATE TABLE IF NOT EXISTS exam_attempts (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  block_id TEXT NOT NULL,
  status TEXT NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, block_id)
);

CREATE TABLE IF NOT EXISTS course_roles (
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  scope TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (user_id, role, scope)
);

CREATE TABLE IF NOT EXISTS score_events (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL,
  block_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS gating_prerequisites (
  course_id TEXT NOT NULL,
  block_id TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  PRIMARY KEY (course_id, block_id)
);

CREATE TABLE IF NOT EXISTS gating_requirements (
  course_id TEXT NOT NULL,
  gated_id TEXT NOT NULL,
  gating_id TEXT NOT NULL,
  min_score DOUBLE PRECISION NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (course_id, gated_id)
);

CREATE TABLE IF NOT EXISTS gating_fulfillments (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  gated_id TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  fulfilled BOOLEAN NOT NULL DEFAULT FALSE,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, gated_id)
);

CREATE TABLE IF NOT EXISTS block_scores (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  block_id TEXT NOT NULL,
  earned DOUBLE PRECISION NOT NULL DEFAULT 0,
  possible DOUBLE PRECISION NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, block_id)
);

CREATE TABLE IF NOT EXISTS exam_attempts (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  block_id TEXT NOT NULL,
  status TEXT NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, block_id)
);

CREATE TABLE IF NOT EXISTS course_roles (
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  scope TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (user_id, role, scope)
);

CREATE TABLE IF NOT EXISTS score_events (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL,
  block_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
