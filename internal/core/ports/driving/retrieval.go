package driving

import (
	"context"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

// RetrievalService is the public surface of the retrieval engine.
//
// Failure semantics: AddDocument, AddBatch, Search and GenerateAnswer
// never return an error. Embedding and persistence failures are
// recovered internally, logged, and surfaced as a boolean, a reduced
// count, or an empty result. The retrieval subsystem being unavailable
// must never crash the caller.
type RetrievalService interface {
	// AddDocument embeds and indexes a single document. Returns false
	// when the content is empty after trimming, when embedding fails,
	// or when the document store rejects the record. On failure nothing
	// is added to either store.
	AddDocument(ctx context.Context, in domain.DocumentInput) bool

	// AddBatch adds documents sequentially with per-item isolation:
	// one document's failure does not abort the batch. Returns the
	// number of documents added successfully.
	AddBatch(ctx context.Context, inputs []domain.DocumentInput) int

	// Search returns up to k documents owned by ownerID, ranked by
	// descending similarity to the query. An empty index, an empty
	// query, or any internal failure yields an empty slice.
	Search(ctx context.Context, query string, ownerID int64, k int) []domain.RetrievalResult

	// GenerateAnswer runs Search, assembles a bounded context blob and
	// asks the answer generator. With no results it returns a fixed
	// "no relevant information" answer with confidence 0 without
	// calling the generator.
	GenerateAnswer(ctx context.Context, query string, ownerID int64, k int) domain.Answer

	// Rebuild recomputes the vector index and positional manifest from
	// the persisted document records, optionally scoped to one owner
	// (nil means all). It repairs any divergence between the stores and
	// is idempotent.
	Rebuild(ctx context.Context, ownerID *int64) error

	// Clear wipes both stores unconditionally.
	Clear(ctx context.Context) error

	// Stats reports the current state of the retrieval system.
	Stats(ctx context.Context) domain.Stats
}
