package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-tracker/models"
	"listing-tracker/utils"
)

func newMemoryStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), MemoryPath, utils.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mkListing(site, title string, observed time.Time) models.Listing {
	return models.NewListing(site, title, "https://"+site+".example.com/"+title, observed)
}

func seed(t *testing.T, s *SQLStore, listings ...models.Listing) {
	t.Helper()
	for _, l := range listings {
		require.NoError(t, s.Upsert(context.Background(), l))
	}
}

func TestUpsertAndIsKnown(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	l := mkListing("oak", "A", time.Now())
	known, err := s.IsKnown(ctx, l.Fingerprint)
	require.NoError(t, err)
	assert.False(t, known)

	seed(t, s, l)

	known, err = s.IsKnown(ctx, l.Fingerprint)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestUpsertOverwritesAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	first := mkListing("oak", "A", time.Now().Add(-time.Hour))
	seed(t, s, first)

	price, beds, baths, sqft := 1450.0, 2, 1.5, 910
	moveIn := time.Date(2026, time.February, 7, 0, 0, 0, 0, time.UTC)
	second := mkListing("oak", "A", time.Now())
	second.Price, second.Bedrooms, second.Bathrooms, second.Sqft = &price, &beds, &baths, &sqft
	second.Available = false
	second.MoveInDate = &moveIn
	seed(t, s, second, second)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, []string{second.Fingerprint})
	require.NoError(t, err)
	require.Len(t, got, 1)
	l := got[0]
	require.NotNil(t, l.Price)
	assert.Equal(t, 1450.0, *l.Price)
	require.NotNil(t, l.Bedrooms)
	assert.Equal(t, 2, *l.Bedrooms)
	require.NotNil(t, l.Bathrooms)
	assert.Equal(t, 1.5, *l.Bathrooms)
	require.NotNil(t, l.Sqft)
	assert.Equal(t, 910, *l.Sqft)
	assert.False(t, l.Available)
	require.NotNil(t, l.MoveInDate)
	assert.Equal(t, "2026-02-07", l.MoveInDate.Format(dateLayout))
	assert.WithinDuration(t, second.ObservedAt, l.ObservedAt, time.Millisecond)
}

func TestNullableFieldsStayAbsent(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	l := mkListing("oak", "bare", time.Now())
	seed(t, s, l)

	got, err := s.BySite(ctx, "oak")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Price)
	assert.Nil(t, got[0].Bedrooms)
	assert.Nil(t, got[0].Bathrooms)
	assert.Nil(t, got[0].Sqft)
	assert.Nil(t, got[0].MoveInDate)
	assert.True(t, got[0].Available)
}

func TestStaleFingerprints(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	now := time.Now()
	a, b, c := mkListing("oak", "A", now), mkListing("oak", "B", now), mkListing("oak", "C", now)
	other := mkListing("elm", "Z", now)
	seed(t, s, a, b, c, other)

	stale, err := s.StaleFingerprints(ctx, "oak", []string{a.Fingerprint, c.Fingerprint})
	require.NoError(t, err)
	assert.Equal(t, []string{b.Fingerprint}, stale)

	removed, err := s.Remove(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	remaining, err := s.BySite(ctx, "oak")
	require.NoError(t, err)
	var fps []string
	for _, l := range remaining {
		fps = append(fps, l.Fingerprint)
	}
	assert.ElementsMatch(t, []string{a.Fingerprint, c.Fingerprint}, fps)

	// other sites are untouched
	known, err := s.IsKnown(ctx, other.Fingerprint)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestStaleFingerprintsEmptyCurrentSet(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	seed(t, s, mkListing("oak", "A", time.Now()), mkListing("oak", "B", time.Now()))

	stale, err := s.StaleFingerprints(ctx, "oak", nil)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestRemoveCountsOnlyExisting(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	a := mkListing("oak", "A", time.Now())
	seed(t, s, a)

	n, err := s.Remove(ctx, []string{a.Fingerprint, "0000000000000000"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Remove(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueryAccessorsOrdering(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	now := time.Now()
	s.now = func() time.Time { return now }

	old := mkListing("oak", "old", now.Add(-48*time.Hour))
	mid := mkListing("oak", "mid", now.Add(-2*time.Hour))
	fresh := mkListing("elm", "fresh", now.Add(-time.Minute))
	seed(t, s, old, mid, fresh)

	recent, err := s.Recent(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "fresh", recent[0].Title)
	assert.Equal(t, "mid", recent[1].Title)

	bySite, err := s.BySite(ctx, "oak")
	require.NoError(t, err)
	require.Len(t, bySite, 2)
	assert.Equal(t, "mid", bySite[0].Title)
	assert.Equal(t, "old", bySite[1].Title)

	total, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestConcurrentUpsertsAcrossSites(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	var wg sync.WaitGroup
	for site := 0; site < 4; site++ {
		wg.Add(1)
		go func(site int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				l := mkListing(fmt.Sprintf("site%d", site), fmt.Sprintf("unit%d", i), time.Now())
				assert.NoError(t, s.Upsert(ctx, l))
			}
		}(site)
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, n)

	for site := 0; site < 4; site++ {
		listings, err := s.BySite(ctx, fmt.Sprintf("site%d", site))
		require.NoError(t, err)
		assert.Len(t, listings, 10)
	}
}
