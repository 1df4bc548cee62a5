package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS app_templates (
	id                 UUID PRIMARY KEY,
	name               TEXT NOT NULL,
	template_name      TEXT NOT NULL,
	template_version   TEXT NOT NULL,
	verbose_name       TEXT NOT NULL DEFAULT '',
	description_short  TEXT NOT NULL DEFAULT '',
	description_long   TEXT NOT NULL DEFAULT '',
	logo               TEXT NOT NULL DEFAULT '',
	documentation_urls JSONB NOT NULL DEFAULT '[]',
	external_urls      JSONB NOT NULL DEFAULT '[]',
	tags               JSONB NOT NULL DEFAULT '[]',
	is_internal        BOOLEAN NOT NULL DEFAULT FALSE,
	is_shared          BOOLEAN NOT NULL DEFAULT TRUE,
	handler_class      TEXT,
	input              JSONB NOT NULL DEFAULT '{}',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT unique_app_templates_name UNIQUE (name)
);

CREATE INDEX IF NOT EXISTS idx_app_templates_name ON app_templates (name);

CREATE TABLE IF NOT EXISTS installed_apps (
	id                 UUID PRIMARY KEY,
	app_id             UUID NOT NULL,
	app_name           TEXT NOT NULL,
	launchpad_app_name TEXT NOT NULL,
	is_internal        BOOLEAN NOT NULL DEFAULT FALSE,
	is_shared          BOOLEAN NOT NULL DEFAULT TRUE,
	user_id            TEXT,
	url                TEXT,
	external_urls      JSONB NOT NULL DEFAULT '[]',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT unique_installed_apps_app_id UNIQUE NULLS NOT DISTINCT (app_id)
);

CREATE INDEX IF NOT EXISTS idx_installed_apps_name ON installed_apps (launchpad_app_name);
`

// Store is the relational record of templates and installations. All
// operations run in short-lived transactions or single statements; no
// transaction is held across remote calls.
type Store struct {
	db *sqlx.DB
}

// New connects to PostgreSQL and verifies the connection.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	glog.Info("connected to PostgreSQL")
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, used by tests.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// InitSchema creates the tables if they do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
