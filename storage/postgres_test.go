package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"listing-tracker/models"
	"listing-tracker/utils"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(mockDB, "postgres")
	return NewSQLStore(db, utils.NewNopLogger()), mock, func() { mockDB.Close() }
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresMigrate(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS listings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_listings_site_name").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_listings_observed_at").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresIsKnown(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM listings WHERE fingerprint = \$1`).
		WithArgs("abcdef0123456789").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	known, err := store.IsKnown(context.Background(), "abcdef0123456789")
	if err != nil {
		t.Fatalf("IsKnown() error = %v", err)
	}
	if !known {
		t.Error("expected known=true")
	}
	expectationsMet(t, mock)
}

func TestPostgresUpsert(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	observed := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	l := models.NewListing("oak", "Unit 1", "https://oak.example.com/1", observed)
	price := 1500.0
	l.Price = &price

	mock.ExpectExec(`INSERT INTO listings .+ VALUES \(\$1, \$2, .+\$11\)\s+ON CONFLICT \(fingerprint\) DO UPDATE`).
		WithArgs(l.Fingerprint, "oak", "Unit 1", "https://oak.example.com/1",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			true, sqlmock.AnyArg(), observed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Upsert(context.Background(), l); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresUpsertError(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO listings").WillReturnError(errors.New("connection refused"))

	err := store.Upsert(context.Background(), models.NewListing("oak", "x", "u", time.Now()))
	if err == nil {
		t.Fatal("Upsert() expected error, got nil")
	}
	expectationsMet(t, mock)
}

func TestPostgresStaleAndRemove(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT fingerprint FROM listings WHERE site_name = \$1`).
		WithArgs("oak").
		WillReturnRows(sqlmock.NewRows([]string{"fingerprint"}).AddRow("A").AddRow("B").AddRow("C"))

	stale, err := store.StaleFingerprints(ctx, "oak", []string{"A", "C"})
	if err != nil {
		t.Fatalf("StaleFingerprints() error = %v", err)
	}
	if len(stale) != 1 || stale[0] != "B" {
		t.Fatalf("stale: got %v, want [B]", stale)
	}

	mock.ExpectExec(`DELETE FROM listings WHERE fingerprint IN \(\$1\)`).
		WithArgs("B").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := store.Remove(ctx, stale)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if n != 1 {
		t.Errorf("removed: got %d, want 1", n)
	}
	expectationsMet(t, mock)
}

func TestPostgresStaleEmptyCurrentSkipsQuery(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	stale, err := store.StaleFingerprints(context.Background(), "oak", nil)
	if err != nil {
		t.Fatalf("StaleFingerprints() error = %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("expected no stale fingerprints, got %v", stale)
	}
	expectationsMet(t, mock)
}
