// Package web provides a connector that fetches a single page over
// HTTP and emits it for extraction.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps how much of a response is read (8 MiB).
	maxBodySize = 8 << 20

	userAgent = "quarry/1.0 (+https://github.com/quarrylabs/quarry-cli)"
)

// Connector fetches one URL.
type Connector struct {
	client *http.Client
	target string
}

// New creates a web connector for the given URL.
// Only http and https schemes are accepted.
func New(target string) (*Connector, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %v", domain.ErrInvalidInput, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidInput, parsed.Scheme)
	}

	return &Connector{
		client: &http.Client{Timeout: DefaultTimeout},
		target: target,
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceURL
}

// Fetch downloads the page and emits it as a single raw document.
func (c *Connector) Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target, http.NoBody)
		if err != nil {
			errs <- fmt.Errorf("create request: %w", err)
			return
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.1")

		resp, err := c.client.Do(req)
		if err != nil {
			errs <- fmt.Errorf("fetch %s: %w", c.target, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errs <- fmt.Errorf("fetch %s: status %d", c.target, resp.StatusCode)
			return
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			errs <- fmt.Errorf("read %s: %w", c.target, err)
			return
		}

		doc := domain.RawDocument{
			SourceType: domain.SourceURL,
			SourceID:   c.target,
			Content:    body,
			MIMEType:   resp.Header.Get("Content-Type"),
			Metadata: map[string]any{
				"url":        c.target,
				"fetched_at": time.Now().UTC().Format("2006-01-02T15:04:05Z"),
			},
		}

		select {
		case docs <- doc:
		case <-ctx.Done():
		}
	}()

	return docs, errs
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}
