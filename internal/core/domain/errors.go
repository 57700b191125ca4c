package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyContent indicates document content was empty after
	// whitespace trimming. Empty adds are rejected, never stored.
	ErrEmptyContent = errors.New("empty content")

	// ErrEmbeddingFailed indicates the embedding model was unavailable
	// or rejected the input. Recovered by returning failure from the
	// calling operation, never propagated as a crash.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrIndexCorrupt indicates a persisted vector index failed
	// dimension or format validation on load. Recovered by discarding
	// the blob and starting with a fresh empty index.
	ErrIndexCorrupt = errors.New("vector index corrupt")

	// ErrIndexInconsistent indicates the vector index and the positional
	// manifest diverged in length. Search halts until an explicit
	// rebuild; the divergence is never silently patched.
	ErrIndexInconsistent = errors.New("vector index inconsistent with manifest")

	// ErrPersistenceFailed indicates a disk write or read failure.
	// The operation proceeds in-memory; unpersisted additions are lost
	// on restart.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrGeneratorUnavailable indicates the answer generator is not
	// configured or unreachable.
	ErrGeneratorUnavailable = errors.New("answer generator unavailable")
)
