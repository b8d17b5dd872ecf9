package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"listing-tracker/utils"
)

const sqliteDriver = "sqlite"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		fingerprint  TEXT    PRIMARY KEY,
		site_name    TEXT    NOT NULL,
		title        TEXT    NOT NULL,
		url          TEXT    NOT NULL,
		price        REAL,
		bedrooms     INTEGER,
		bathrooms    REAL,
		sqft         INTEGER,
		available    BOOLEAN NOT NULL DEFAULT 1,
		move_in_date TEXT,
		observed_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_site_name   ON listings(site_name)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_observed_at ON listings(observed_at)`,
}

func init() {
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

// NewSQLiteStore opens (creating if needed) the SQLite database at path and
// migrates it. Pass MemoryPath for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string, logger *utils.Logger) (*SQLStore, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sqlx.Open(sqliteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// a single connection serialises writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	store := NewSQLStore(db, logger)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	logger.Debug("[store] Opened SQLite database %s", path)
	return store, nil
}
