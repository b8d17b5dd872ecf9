package storage

import (
	"context"
	"time"

	"listing-tracker/models"
)

// ListingStore persists listings keyed by fingerprint and answers the
// questions change detection needs. Implementations must tolerate
// concurrent use across different sites.
type ListingStore interface {
	IsKnown(ctx context.Context, fingerprint string) (bool, error)
	Upsert(ctx context.Context, l models.Listing) error
	// StaleFingerprints returns the fingerprints stored for site that are
	// absent from current. An empty current set yields an empty result.
	StaleFingerprints(ctx context.Context, site string, current []string) ([]string, error)
	Remove(ctx context.Context, fingerprints []string) (int, error)
	Get(ctx context.Context, fingerprints []string) ([]models.Listing, error)

	Count(ctx context.Context) (int, error)
	BySite(ctx context.Context, site string) ([]models.Listing, error)
	Recent(ctx context.Context, within time.Duration) ([]models.Listing, error)

	Close() error
}

// RunWriter records the outcome of a scrape run somewhere outside the store.
type RunWriter interface {
	WriteRun(run *models.RunResult) error
	Close() error
}
