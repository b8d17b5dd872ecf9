package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"listing-tracker/models"
)

var csvHeader = []string{
	"run_at", "change", "site", "fingerprint", "title", "price", "bedrooms", "bathrooms",
	"sqft", "available", "move_in_date", "url", "observed_at",
}

// CSVWriter appends each run's new and removed listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter opens (or creates) the CSV file at path, writing the header
// row when the file is empty. Intermediate directories are created.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRun appends one row per new and per removed listing.
func (c *CSVWriter) WriteRun(run *models.RunResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	runAt := run.StartedAt.Format(time.RFC3339)
	write := func(change string, listings []models.Listing) error {
		for _, l := range listings {
			if err := c.writer.Write(csvRow(runAt, change, l)); err != nil {
				return fmt.Errorf("csv: write row: %w", err)
			}
		}
		return nil
	}

	if err := write("new", run.New); err != nil {
		return err
	}
	if err := write("removed", run.Removed); err != nil {
		return err
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

func csvRow(runAt, change string, l models.Listing) []string {
	moveIn := ""
	if l.MoveInDate != nil {
		moveIn = l.MoveInDate.Format(dateLayout)
	}
	return []string{
		runAt,
		change,
		l.SiteName,
		l.Fingerprint,
		l.Title,
		formatFloat(l.Price),
		formatInt(l.Bedrooms),
		formatFloat(l.Bathrooms),
		formatInt(l.Sqft),
		strconv.FormatBool(l.Available),
		moveIn,
		l.URL,
		l.ObservedAt.Format(time.RFC3339),
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
