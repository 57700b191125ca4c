package domain

// SourceExcerptLimit bounds the excerpt length carried in answer
// sources, to avoid overlarge payloads.
const SourceExcerptLimit = 500

// RetrievalResult represents a single search hit.
// It is derived per-query and never persisted.
type RetrievalResult struct {
	// Document is the matched document.
	Document Document

	// Score is the similarity score. Higher means more similar. The
	// range is metric-defined: raw inner product for IP indexes,
	// 1/(1+distance) for L2 indexes.
	Score float64
}

// Excerpt returns the document content truncated to SourceExcerptLimit.
func (r RetrievalResult) Excerpt() string {
	if len(r.Document.Content) <= SourceExcerptLimit {
		return r.Document.Content
	}
	return r.Document.Content[:SourceExcerptLimit] + "..."
}

// SourceExcerpt is a bounded view of a retrieval result attached to a
// generated answer.
type SourceExcerpt struct {
	// Excerpt is the truncated document content.
	Excerpt string `json:"excerpt"`

	// Metadata is the document's source metadata.
	Metadata map[string]any `json:"metadata"`

	// Score is the similarity score of the underlying hit.
	Score float64 `json:"score"`
}

// Answer is a retrieval-grounded generated answer.
type Answer struct {
	// Answer is the generated natural-language answer, or a fixed
	// fallback sentence when no relevant documents were found.
	Answer string `json:"answer"`

	// Sources lists the retrieval hits that grounded the answer.
	Sources []SourceExcerpt `json:"sources"`

	// Confidence is the arithmetic mean of the source similarity
	// scores, 0.0 when no results were found.
	Confidence float64 `json:"confidence"`
}

// Stats describes the current state of the retrieval system.
type Stats struct {
	// Documents is the number of records in the document store.
	Documents int `json:"documents"`

	// IndexSize is the number of vectors in the index, including
	// tombstoned positions awaiting rebuild.
	IndexSize int `json:"index_size"`

	// Dimension is the embedding vector size.
	Dimension int `json:"dimension"`

	// Metric is the index similarity metric ("ip" or "l2").
	Metric string `json:"metric"`

	// DataDir is where state is persisted. Empty for in-memory engines.
	DataDir string `json:"data_dir,omitempty"`
}
