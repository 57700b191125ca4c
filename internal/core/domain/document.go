package domain

import (
	"strings"
	"time"
)

// SourceType identifies where a document's content came from.
type SourceType string

const (
	// SourceFile is a document extracted from a local file.
	SourceFile SourceType = "file"

	// SourceNotion is a document fetched from a Notion page.
	SourceNotion SourceType = "notion"

	// SourceURL is a document fetched from a web page.
	SourceURL SourceType = "url"

	// SourceManual is a document added directly by the caller.
	SourceManual SourceType = "manual"
)

// Valid reports whether the source type is one of the known values.
func (s SourceType) Valid() bool {
	switch s {
	case SourceFile, SourceNotion, SourceURL, SourceManual:
		return true
	}
	return false
}

// String returns the source type identifier.
func (s SourceType) String() string {
	return string(s)
}

// Document represents an embedded document record.
// It is the canonical representation persisted in the document store.
type Document struct {
	// ID is the stable, monotonically assigned identifier.
	ID int64

	// OwnerID identifies the caller that owns this document.
	// Retrieval is always filtered to a single owner.
	OwnerID int64

	// SourceType identifies the ingestion path that produced this document.
	SourceType SourceType

	// SourceID is an opaque external key, unique per (OwnerID, SourceType).
	// For files it is the path, for Notion pages the page ID, for manual
	// adds a generated identifier.
	SourceID string

	// Title is the human-readable title.
	Title string

	// Content is the full extracted text. Never empty for a stored
	// record: empty extraction is a rejected add, not a stored document.
	Content string

	// Metadata contains arbitrary key-value pairs from the source.
	Metadata map[string]any

	// Embedding is the vector representation of Content, stored so the
	// index can be rebuilt without re-embedding.
	Embedding []float32

	// CreatedAt is when the document was first added.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-processed.
	UpdatedAt time.Time
}

// DocumentInput is the caller-supplied payload for an add operation.
type DocumentInput struct {
	OwnerID    int64
	SourceType SourceType
	SourceID   string
	Title      string
	Content    string
	Metadata   map[string]any
}

// Validate checks the input for an add operation.
// Content is validated after whitespace trimming.
func (in DocumentInput) Validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return ErrEmptyContent
	}
	if in.SourceType != "" && !in.SourceType.Valid() {
		return ErrInvalidInput
	}
	return nil
}

// RawDocument represents opaque content fetched by a connector,
// before extraction produced plain text.
type RawDocument struct {
	// SourceType identifies the connector that produced this document.
	SourceType SourceType

	// SourceID is the external key (file path, page ID, URL).
	SourceID string

	// Title is the best-effort title from the source.
	Title string

	// Content is the raw bytes.
	Content []byte

	// MIMEType is the content type (e.g. "text/markdown").
	MIMEType string

	// Metadata contains connector-specific key-value pairs.
	Metadata map[string]any
}
