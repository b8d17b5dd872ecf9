package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"listing-tracker/models"
	"listing-tracker/utils"
)

const dateLayout = "2006-01-02"

const listingColumns = `fingerprint, site_name, title, url, price, bedrooms, bathrooms, sqft,
	available, move_in_date, observed_at`

const upsertListing = `
	INSERT INTO listings (` + listingColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (fingerprint) DO UPDATE SET
		site_name    = excluded.site_name,
		title        = excluded.title,
		url          = excluded.url,
		price        = excluded.price,
		bedrooms     = excluded.bedrooms,
		bathrooms    = excluded.bathrooms,
		sqft         = excluded.sqft,
		available    = excluded.available,
		move_in_date = excluded.move_in_date,
		observed_at  = excluded.observed_at
`

// SQLStore is a ListingStore over any sqlx-supported database. Queries are
// written with '?' placeholders and rebound for the driver.
type SQLStore struct {
	db     *sqlx.DB
	logger *utils.Logger
	now    func() time.Time
}

// NewSQLStore wraps an open connection. Call Migrate before first use on a
// fresh database.
func NewSQLStore(db *sqlx.DB, logger *utils.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger, now: time.Now}
}

// listingRow mirrors the listings table.
type listingRow struct {
	Fingerprint string          `db:"fingerprint"`
	SiteName    string          `db:"site_name"`
	Title       string          `db:"title"`
	URL         string          `db:"url"`
	Price       sql.NullFloat64 `db:"price"`
	Bedrooms    sql.NullInt64   `db:"bedrooms"`
	Bathrooms   sql.NullFloat64 `db:"bathrooms"`
	Sqft        sql.NullInt64   `db:"sqft"`
	Available   bool            `db:"available"`
	MoveInDate  sql.NullString  `db:"move_in_date"`
	ObservedAt  time.Time       `db:"observed_at"`
}

// Migrate creates the listings table and its indexes if missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts := postgresSchema
	if s.db.DriverName() == sqliteDriver {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) IsKnown(ctx context.Context, fingerprint string) (bool, error) {
	var n int
	q := s.db.Rebind(`SELECT COUNT(1) FROM listings WHERE fingerprint = ?`)
	if err := s.db.GetContext(ctx, &n, q, fingerprint); err != nil {
		return false, fmt.Errorf("store: is known %s: %w", fingerprint, err)
	}
	return n > 0, nil
}

// Upsert inserts l or fully replaces the stored listing with the same fingerprint.
func (s *SQLStore) Upsert(ctx context.Context, l models.Listing) error {
	var moveIn sql.NullString
	if l.MoveInDate != nil {
		moveIn = sql.NullString{String: l.MoveInDate.Format(dateLayout), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(upsertListing),
		l.Fingerprint, l.SiteName, l.Title, l.URL,
		nullFloat(l.Price), nullInt(l.Bedrooms), nullFloat(l.Bathrooms), nullInt(l.Sqft),
		l.Available, moveIn, l.ObservedAt.UTC().Truncate(time.Microsecond),
	)
	if err != nil {
		return fmt.Errorf("store: upsert %s: %w", l.Fingerprint, err)
	}
	return nil
}

func (s *SQLStore) StaleFingerprints(ctx context.Context, site string, current []string) ([]string, error) {
	if len(current) == 0 {
		return nil, nil
	}

	var stored []string
	q := s.db.Rebind(`SELECT fingerprint FROM listings WHERE site_name = ?`)
	if err := s.db.SelectContext(ctx, &stored, q, site); err != nil {
		return nil, fmt.Errorf("store: stale for %s: %w", site, err)
	}

	seen := utils.NewFingerprintSet(current...)
	var stale []string
	for _, fp := range stored {
		if !seen.Contains(fp) {
			stale = append(stale, fp)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

// Remove deletes the given listings and reports how many existed.
func (s *SQLStore) Remove(ctx context.Context, fingerprints []string) (int, error) {
	if len(fingerprints) == 0 {
		return 0, nil
	}

	q, args, err := sqlx.In(`DELETE FROM listings WHERE fingerprint IN (?)`, fingerprints)
	if err != nil {
		return 0, fmt.Errorf("store: remove: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("store: remove: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: remove: rows affected: %w", err)
	}
	return int(n), nil
}

// Get returns the stored listings among fingerprints, newest first.
func (s *SQLStore) Get(ctx context.Context, fingerprints []string) ([]models.Listing, error) {
	if len(fingerprints) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT `+listingColumns+` FROM listings WHERE fingerprint IN (?) ORDER BY observed_at DESC`, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("store: get: %w", err)
	}
	return s.query(ctx, "get", q, args...)
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM listings`); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// BySite returns every listing stored for site, newest first.
func (s *SQLStore) BySite(ctx context.Context, site string) ([]models.Listing, error) {
	return s.query(ctx, "by site",
		`SELECT `+listingColumns+` FROM listings WHERE site_name = ? ORDER BY observed_at DESC`, site)
}

// Recent returns listings observed within the given window, newest first.
func (s *SQLStore) Recent(ctx context.Context, within time.Duration) ([]models.Listing, error) {
	cutoff := s.now().Add(-within).UTC().Truncate(time.Microsecond)
	return s.query(ctx, "recent",
		`SELECT `+listingColumns+` FROM listings WHERE observed_at >= ? ORDER BY observed_at DESC`, cutoff)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) query(ctx context.Context, op, q string, args ...any) ([]models.Listing, error) {
	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("store: %s: %w", op, err)
	}

	out := make([]models.Listing, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toListing())
	}
	return out, nil
}

func (r listingRow) toListing() models.Listing {
	l := models.Listing{
		Fingerprint: r.Fingerprint,
		SiteName:    r.SiteName,
		Title:       r.Title,
		URL:         r.URL,
		Available:   r.Available,
		ObservedAt:  r.ObservedAt,
	}
	if r.Price.Valid {
		v := r.Price.Float64
		l.Price = &v
	}
	if r.Bedrooms.Valid {
		v := int(r.Bedrooms.Int64)
		l.Bedrooms = &v
	}
	if r.Bathrooms.Valid {
		v := r.Bathrooms.Float64
		l.Bathrooms = &v
	}
	if r.Sqft.Valid {
		v := int(r.Sqft.Int64)
		l.Sqft = &v
	}
	if r.MoveInDate.Valid {
		if d, err := time.Parse(dateLayout, r.MoveInDate.String); err == nil {
			l.MoveInDate = &d
		}
	}
	return l
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
