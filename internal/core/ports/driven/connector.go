package driven

import (
	"context"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

// Connector fetches raw documents from an external source.
// Each ingestion path (filesystem, notion, url) implements this
// interface. Fetching happens before the add operation: the hot
// add/search path itself never performs network I/O.
type Connector interface {
	// Type returns the source type this connector produces.
	Type() domain.SourceType

	// Fetch streams raw documents from the source. Both channels are
	// closed when fetching completes. Errors for individual documents
	// are sent on the error channel without aborting the stream.
	Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Close releases resources.
	Close() error
}
