// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"widget-assistant/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient holds the pool for the tenant Q&A and FAQ tables.
type PostgresClient struct {
	DB *sql.DB
}

// qaSchema creates the tables read by the knowledge base. Statements are
// idempotent and run in order.
var qaSchema = []string{
	`CREATE TABLE IF NOT EXISTS qa_items (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		question   TEXT NOT NULL,
		answer     TEXT NOT NULL,
		keywords   TEXT[] NOT NULL DEFAULT '{}',
		category   TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS qa_items_user_idx ON qa_items (user_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS widget_faqs (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		question   TEXT NOT NULL,
		answer     TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS widget_faqs_user_idx ON widget_faqs (user_id, sort_order)`,
}

// NewPostgres opens a pooled connection without dialing; call Ping to
// verify connectivity.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return nil, fmt.Errorf("postgres host and database are required")
	}
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// EnsureSchema creates the Q&A tables in one transaction.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	for _, stmt := range qaSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply qa schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
