package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"

	"price-paid-etl/models"
)

// TabularWriter appends raw record batches to the tabular CSV file.
// The header is written only when the file does not exist yet.
type TabularWriter struct {
	path string
}

// NewTabularWriter prepares path for a fresh run. An existing file is removed
// when overwrite is set; otherwise models.ErrStaleOutput is returned.
func NewTabularWriter(path string, overwrite bool) (*TabularWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	exists, err := fileExists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		if !overwrite {
			return nil, fmt.Errorf("csv: %w: %s", models.ErrStaleOutput, path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("csv: remove stale %q: %w", path, err)
		}
	}

	return &TabularWriter{path: path}, nil
}

// Path returns the file being written.
func (w *TabularWriter) Path() string { return w.path }

// Append writes the batch to the end of the file and closes it again.
func (w *TabularWriter) Append(batch *models.TabularBatch) error {
	if batch.Len() == 0 {
		return nil
	}

	exists, err := fileExists(w.path)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("csv: open %q: %w", w.path, err)
	}

	cw := csv.NewWriter(f)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = !exists

	if err := enc.Encode(batch.Records); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: write batch: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: flush batch: %w", err)
	}
	return f.Close()
}

// WriteCleaned writes the cleaned transactions, truncating any previous file.
func WriteCleaned(path string, txs []*models.Transaction) error {
	return writeRecords(path, txs, models.Transaction{}, "2006-01-02 15:04")
}

// WriteCountyTypeReport writes the county / property type aggregate report.
func WriteCountyTypeReport(path string, rows []models.CountyTypeSummary) error {
	return writeRecords(path, rows, models.CountyTypeSummary{}, time.DateOnly)
}

// WriteHighValueReport writes the transactions-above-1-million report.
func WriteHighValueReport(path string, rows []models.HighValueTransaction) error {
	return writeRecords(path, rows, models.HighValueTransaction{}, time.DateOnly)
}

func writeRecords[T any](path string, rows []T, header any, dateLayout string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}

	cw := csv.NewWriter(f)
	enc := csvutil.NewEncoder(cw)
	enc.Register(func(t time.Time) ([]byte, error) {
		return []byte(t.Format(dateLayout)), nil
	})

	// Header first so an empty report is still a valid file.
	if err := enc.EncodeHeader(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: write header: %w", err)
	}
	if len(rows) > 0 {
		if err := enc.Encode(rows); err != nil {
			_ = f.Close()
			return fmt.Errorf("csv: write rows: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: flush: %w", err)
	}
	return f.Close()
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("csv: stat %q: %w", path, err)
	}
}
