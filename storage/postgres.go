package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"listing-tracker/utils"
)

const postgresDriver = "postgres"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		fingerprint  VARCHAR(16)      PRIMARY KEY,
		site_name    TEXT             NOT NULL,
		title        TEXT             NOT NULL,
		url          TEXT             NOT NULL,
		price        DOUBLE PRECISION,
		bedrooms     INTEGER,
		bathrooms    DOUBLE PRECISION,
		sqft         INTEGER,
		available    BOOLEAN          NOT NULL DEFAULT TRUE,
		move_in_date TEXT,
		observed_at  TIMESTAMPTZ      NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_site_name   ON listings(site_name)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_observed_at ON listings(observed_at)`,
}

// NewPostgresStore connects to PostgreSQL, waits for it to accept
// connections, runs schema migrations and returns a ready store.
func NewPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig, logger *utils.Logger) (*SQLStore, error) {
	db, err := sqlx.Open(postgresDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	store := NewSQLStore(db, logger)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	logger.Info("[store] Connected to PostgreSQL")
	return store, nil
}
