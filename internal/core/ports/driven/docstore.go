package driven

import (
	"context"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

// DocumentStore persists document records. Backed by SQLite for
// durable metadata storage, or memory for tests.
//
// The store is the source of truth for rebuild: the vector index and
// the positional manifest are derived from it.
type DocumentStore interface {
	// SaveDocument stores a document. A zero ID means insert, and the
	// store assigns the next monotonic ID to doc.ID. A non-zero ID
	// updates the existing record in place.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// GetBySource retrieves a document by its unique
	// (owner, source type, source ID) key.
	GetBySource(ctx context.Context, ownerID int64, sourceType domain.SourceType, sourceID string) (*domain.Document, error)

	// ListDocuments returns all documents in insertion order,
	// optionally scoped to one owner (nil means all owners).
	// Used by rebuild.
	ListDocuments(ctx context.Context, ownerID *int64) ([]domain.Document, error)

	// DeleteDocument removes a document record. The vector index entry
	// survives as a tombstone until the next rebuild.
	DeleteDocument(ctx context.Context, id int64) error

	// DeleteAll removes every document record.
	DeleteAll(ctx context.Context) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
