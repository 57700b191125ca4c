package driving

import (
	"context"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

// IngestReport summarises an ingestion run.
type IngestReport struct {
	// BatchID identifies the run in logs.
	BatchID string

	// Fetched is the number of raw documents produced by the source.
	Fetched int

	// Added is the number of documents successfully indexed.
	Added int

	// Skipped is the number rejected (empty extraction, embed failure).
	Skipped int
}

// IngestService turns external sources into indexed documents.
// It runs extraction and then hands plain text to the retrieval engine;
// per-document failures are isolated, matching batch add semantics.
type IngestService interface {
	// IngestFile extracts and indexes a single file.
	IngestFile(ctx context.Context, ownerID int64, path string) (IngestReport, error)

	// IngestDir walks a directory recursively and indexes every
	// supported file.
	IngestDir(ctx context.Context, ownerID int64, dir string) (IngestReport, error)

	// IngestNotionPage fetches a Notion page and indexes its text.
	// Re-ingesting an already indexed page updates it in place.
	IngestNotionPage(ctx context.Context, ownerID int64, pageID string) (IngestReport, error)

	// IngestURL fetches a web page and indexes its extracted text.
	IngestURL(ctx context.Context, ownerID int64, url string) (IngestReport, error)

	// IngestRaw extracts and indexes an already-fetched raw document.
	IngestRaw(ctx context.Context, ownerID int64, raw domain.RawDocument) bool
}
