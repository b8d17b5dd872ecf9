package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-tracker/models"
)

func TestCSVWriterAppendsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "runs.csv")
	now := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

	price := 1200.0
	added := mkListing("oak", "A", now)
	added.Price = &price
	run := &models.RunResult{
		StartedAt: now,
		New:       []models.Listing{added},
		Removed:   []models.Listing{mkListing("oak", "B", now.Add(-24*time.Hour))},
	}

	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteRun(run))
	require.NoError(t, w.Close())

	// reopening must not repeat the header
	w, err = NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteRun(run))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "new", rows[1][1])
	assert.Equal(t, "1200", rows[1][5])
	assert.Equal(t, "removed", rows[2][1])
	assert.Equal(t, "", rows[2][5])
}
