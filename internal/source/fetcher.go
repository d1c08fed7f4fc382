// SPDX-License-Identifier: Apache-2.0

// Package source retrieves the raw school-measurement dataset from the
// remote registry.
//
// A fetch issues a plain GET against a fixed endpoint. Transport and parse
// failures are retried under a RetryPolicy; once the attempts are spent the
// caller receives an *UnavailableError, never partial data. The fetcher does
// not persist anything: that is the snapshot cache's job.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
)

// DefaultURL is the SIMET endpoint serving school status for the program.
const DefaultURL = "https://api.simet.nic.br/school-measures/v1/getStatusandSchoolInfoUNICEF"

var errEmptyPayload = errors.New("payload contains no records")

// Config configures the fetcher.
type Config struct {
	URL string
	// Timeout bounds a single attempt. Default: 120s.
	Timeout time.Duration
	Retry   RetryPolicy
	// MaxBytes caps the response body. Default: 256MB.
	MaxBytes  int64
	UserAgent string
}

func (c *Config) defaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 256 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "conectividade-mcp/1.0"
	}
	c.Retry.defaults()
}

// Fetcher downloads the dataset with bounded retries.
type Fetcher struct {
	client *http.Client
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Fetcher. A nil logger discards output.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: logger.Named("source"),
		now:    time.Now,
	}
}

// URL returns the endpoint the fetcher reads from.
func (f *Fetcher) URL() string { return f.config.URL }

// Fetch retrieves and parses the full dataset. After the retry budget is
// exhausted it returns an *UnavailableError.
func (f *Fetcher) Fetch(ctx context.Context) (*dataset.Dataset, error) {
	var records []dataset.SchoolRecord
	attempts, err := Retry(ctx, f.config.Retry, f.logger, func(ctx context.Context, attempt int) error {
		f.logger.Debug("fetching dataset", zap.String("url", f.config.URL), zap.Int("attempt", attempt))
		got, err := f.fetchOnce(ctx)
		if err != nil {
			return err
		}
		records = got
		return nil
	})
	if err != nil {
		return nil, &UnavailableError{URL: f.config.URL, Attempts: attempts, Err: err}
	}

	f.logger.Info("dataset fetched",
		zap.String("url", f.config.URL),
		zap.Int("records", len(records)),
		zap.Int("attempts", attempts))

	return &dataset.Dataset{
		Records:   records,
		FetchedAt: f.now().UTC(),
		Source:    f.config.URL,
	}, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]dataset.SchoolRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	records, err := decodeRecords(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errEmptyPayload
	}
	return records, nil
}
