package services

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"price-paid-etl/models"
	"price-paid-etl/storage"
	"price-paid-etl/utils"
)

const maxLineBytes = 4 << 20

// Converter streams the raw extract line by line into tabular batches.
type Converter struct {
	rawPath   string
	enc       encoding.Encoding
	batchSize int
	out       storage.BatchAppender
	logger    *utils.Logger
}

// NewConverter creates a Converter reading rawPath (decoded with encodingName)
// and appending batches of batchSize rows to out.
func NewConverter(rawPath, encodingName string, batchSize int, out storage.BatchAppender, logger *utils.Logger) (*Converter, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("converter: batch size must be positive, got %d", batchSize)
	}
	enc, err := rawEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("converter: %w", err)
	}
	return &Converter{
		rawPath:   rawPath,
		enc:       enc,
		batchSize: batchSize,
		out:       out,
		logger:    logger,
	}, nil
}

// Convert reads every line of the raw file. Lines that do not split into
// exactly models.RawFieldCount fields are skipped and counted; they never stop
// the stream. Memory stays bounded by the batch size.
func (c *Converter) Convert(ctx context.Context) (*models.ConvertResult, error) {
	c.logger.Info("[converter] Processing %s in batches of %d", c.rawPath, c.batchSize)

	f, err := os.Open(c.rawPath)
	if err != nil {
		return nil, fmt.Errorf("converter: open %q: %w", c.rawPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(transform.NewReader(f, c.enc.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	res := &models.ConvertResult{OutputPath: c.out.Path()}
	batch := models.NewTabularBatch(c.batchSize)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := c.out.Append(batch); err != nil {
			return fmt.Errorf("converter: %w", err)
		}
		res.Processed += batch.Len()
		res.Batches++
		c.logger.Info("[converter] Wrote %d records to %s (%d lines read)", batch.Len(), res.OutputPath, res.Lines)
		batch.Reset()
		return nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Lines++

		fields := strings.Split(strings.TrimSpace(scanner.Text()), ",")
		if len(fields) != models.RawFieldCount {
			res.Skipped++
			c.logger.Debug("[converter] %v", &models.SchemaMismatchError{
				Line: res.Lines, Want: models.RawFieldCount, Got: len(fields),
			})
			continue
		}

		batch.Add(models.NewRawRecord(fields))
		if batch.Full() {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("converter: read line %d: %w", res.Lines+1, err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	c.logger.Warn("[converter] Overall skipped rows: %d", res.Skipped)
	c.logger.Info("[converter] Total processed rows: %d", res.Processed)
	return res, nil
}
