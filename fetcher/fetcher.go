// Package fetcher downloads the raw price-paid extract to local storage.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"price-paid-etl/config"
	"price-paid-etl/models"
	"price-paid-etl/utils"
)

// Fetcher streams a remote file to disk once.
type Fetcher struct {
	url       string
	target    string
	chunkSize int
	client    *http.Client
	logger    *utils.Logger
}

// New creates a Fetcher for cfg.SourceURL → cfg.RawPath.
func New(cfg *config.Config, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		url:       cfg.SourceURL,
		target:    cfg.RawPath,
		chunkSize: cfg.ChunkSize,
		client:    http.DefaultClient,
		logger:    logger,
	}
}

// WithClient swaps the HTTP client.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// Fetch downloads the source unless the target already exists.
//
// The body is written to a temporary file next to the target and renamed into
// place only after the whole body arrived. A failed transfer leaves no target.
func (f *Fetcher) Fetch(ctx context.Context) (*models.FetchResult, error) {
	if _, err := os.Stat(f.target); err == nil {
		f.logger.Info("[fetcher] %s already exists, skipping download", f.target)
		return &models.FetchResult{Path: f.target, Skipped: true}, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("fetcher: stat %q: %w", f.target, err)
	}

	f.logger.Info("[fetcher] Downloading %s", f.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &models.TransferError{URL: f.url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &models.TransferError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.TransferError{URL: f.url, StatusCode: resp.StatusCode}
	}

	n, err := f.writeAtomically(resp.Body)
	if err != nil {
		return nil, err
	}

	f.logger.Info("[fetcher] Saved %d bytes to %s", n, f.target)
	return &models.FetchResult{Path: f.target, Bytes: n}, nil
}

func (f *Fetcher) writeAtomically(body io.Reader) (int64, error) {
	dir := filepath.Dir(f.target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("fetcher: create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.target)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("fetcher: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	buf := make([]byte, f.chunkSize)
	n, err := io.CopyBuffer(onlyWriter{tmp}, onlyReader{body}, buf)
	if err != nil {
		return n, &models.TransferError{URL: f.url, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("fetcher: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.target); err != nil {
		return n, fmt.Errorf("fetcher: rename into %q: %w", f.target, err)
	}
	committed = true
	return n, nil
}

// onlyReader and onlyWriter hide ReaderFrom/WriterTo so io.CopyBuffer really
// moves the body through the chunk-sized buffer.
type onlyReader struct{ io.Reader }

type onlyWriter struct{ io.Writer }
