package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"price-paid-etl/models"
)

// ReadDataset loads a headed CSV file fully into memory.
func ReadDataset(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	return DecodeDataset(f)
}

// DecodeDataset reads a header row followed by data rows from r.
func DecodeDataset(r io.Reader) (*models.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	ds := models.NewDataset(header)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}
		ds.Append(row)
	}
	return ds, nil
}
