package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driving"
	"github.com/quarrylabs/quarry-cli/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// Ingestor drives connectors and extraction, then feeds plain text to
// the retrieval engine. Per-document failures are isolated: a bad file
// in a directory walk or an unextractable page never aborts the run.
type Ingestor struct {
	retrieval driving.RetrievalService
	factory   driven.ConnectorFactory
	extractor driven.TextExtractor
}

// NewIngestor creates an ingest service.
func NewIngestor(
	retrieval driving.RetrievalService,
	factory driven.ConnectorFactory,
	extractor driven.TextExtractor,
) *Ingestor {
	return &Ingestor{
		retrieval: retrieval,
		factory:   factory,
		extractor: extractor,
	}
}

// IngestFile extracts and indexes a single file.
func (s *Ingestor) IngestFile(ctx context.Context, ownerID int64, path string) (driving.IngestReport, error) {
	return s.ingestRef(ctx, ownerID, driven.SourceRef{Type: domain.SourceFile, Target: path})
}

// IngestDir walks a directory recursively and indexes every supported
// file. The filesystem connector handles the walk; a path that turns
// out to be a single file behaves like IngestFile.
func (s *Ingestor) IngestDir(ctx context.Context, ownerID int64, dir string) (driving.IngestReport, error) {
	return s.ingestRef(ctx, ownerID, driven.SourceRef{Type: domain.SourceFile, Target: dir})
}

// IngestNotionPage fetches a Notion page and indexes its text.
func (s *Ingestor) IngestNotionPage(ctx context.Context, ownerID int64, pageID string) (driving.IngestReport, error) {
	return s.ingestRef(ctx, ownerID, driven.SourceRef{Type: domain.SourceNotion, Target: pageID})
}

// IngestURL fetches a web page and indexes its extracted text.
func (s *Ingestor) IngestURL(ctx context.Context, ownerID int64, url string) (driving.IngestReport, error) {
	return s.ingestRef(ctx, ownerID, driven.SourceRef{Type: domain.SourceURL, Target: url})
}

// ingestRef runs one connector to completion and indexes its output.
func (s *Ingestor) ingestRef(ctx context.Context, ownerID int64, ref driven.SourceRef) (driving.IngestReport, error) {
	report := driving.IngestReport{BatchID: newBatchID()}

	connector, err := s.factory.Create(ctx, ref)
	if err != nil {
		return report, fmt.Errorf("create %s connector: %w", ref.Type, err)
	}
	defer connector.Close()

	logger.Section("Ingest " + string(ref.Type))
	logger.Info("Batch %s: ingesting %s %q for owner %d", report.BatchID, ref.Type, ref.Target, ownerID)

	docs, errs := connector.Fetch(ctx)
	for docs != nil || errs != nil {
		select {
		case raw, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			report.Fetched++
			if s.IngestRaw(ctx, ownerID, raw) {
				report.Added++
			} else {
				report.Skipped++
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				logger.Warn("Batch %s: source error: %v", report.BatchID, err)
			}

		case <-ctx.Done():
			logger.Warn("Batch %s: cancelled after %d documents", report.BatchID, report.Fetched)
			return report, ctx.Err()
		}
	}

	logger.Info("Batch %s: fetched %d, added %d, skipped %d",
		report.BatchID, report.Fetched, report.Added, report.Skipped)
	return report, nil
}

// IngestRaw extracts and indexes an already-fetched raw document.
func (s *Ingestor) IngestRaw(ctx context.Context, ownerID int64, raw domain.RawDocument) bool {
	title, text, err := s.extractor.Extract(raw)
	if err != nil {
		logger.Debug("Skipping %s/%s: %v", raw.SourceType, raw.SourceID, err)
		return false
	}
	if raw.Title != "" {
		title = raw.Title
	}

	return s.retrieval.AddDocument(ctx, domain.DocumentInput{
		OwnerID:    ownerID,
		SourceType: raw.SourceType,
		SourceID:   raw.SourceID,
		Title:      title,
		Content:    text,
		Metadata:   raw.Metadata,
	})
}

// newBatchID returns a short random identifier for correlating log
// lines of a single ingestion run.
func newBatchID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "batch"
	}
	return hex.EncodeToString(buf)
}
