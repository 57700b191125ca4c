package driven

import "context"

// VectorIndex provides exact nearest-neighbour search over
// fixed-dimension vectors. The index is append-only: positions are
// assigned sequentially from zero and never reused. There is no
// point-delete; deletions are realised by rebuilding the index from
// the surviving document records.
//
// One similarity metric is fixed per index instance at construction.
// Mixing metrics across a rebuild is undefined behaviour.
type VectorIndex interface {
	// Append inserts a vector and returns its position, equal to the
	// count of stored vectors before insertion.
	Append(ctx context.Context, vector []float32) (int, error)

	// Search finds the k nearest neighbours to the query vector,
	// ordered by descending similarity. Distance metrics are
	// normalised to a similarity score (1/(1+distance)) so that
	// higher always means more similar.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Count returns the total number of stored vectors.
	Count() int

	// Dimension returns the configured vector dimension.
	Dimension() int

	// Metric returns the similarity metric identifier ("ip" or "l2").
	Metric() string

	// Clear resets the index to zero vectors.
	Clear()

	// Save persists the index to the given path as a single blob.
	Save(path string) error

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Position is the index position of the matched vector.
	Position int

	// Score is the similarity score. Higher means more similar.
	Score float64
}
