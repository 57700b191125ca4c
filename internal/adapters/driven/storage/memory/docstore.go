// Package memory provides in-memory implementations of driven port
// interfaces, used in tests and for ephemeral runs without a data
// directory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// IDs are assigned monotonically and never reused, matching the SQLite
// adapter's AUTOINCREMENT behaviour.
type DocumentStore struct {
	mu     sync.RWMutex
	nextID int64
	docs   []domain.Document // insertion order
	byID   map[int64]int     // id -> index into docs
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		nextID: 1,
		byID:   make(map[int64]int),
	}
}

// SaveDocument stores a document, assigning an ID on insert.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if doc.ID == 0 {
		doc.ID = s.nextID
		s.nextID++
		s.byID[doc.ID] = len(s.docs)
		s.docs = append(s.docs, *doc)
		return nil
	}

	i, ok := s.byID[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	s.docs[i] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.docs[i]
	return &doc, nil
}

// GetBySource retrieves a document by its unique source key.
func (s *DocumentStore) GetBySource(
	_ context.Context, ownerID int64, sourceType domain.SourceType, sourceID string,
) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.docs {
		d := s.docs[i]
		if d.OwnerID == ownerID && d.SourceType == sourceType && d.SourceID == sourceID {
			doc := d
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListDocuments returns documents in insertion order, optionally scoped
// to one owner.
func (s *DocumentStore) ListDocuments(_ context.Context, ownerID *int64) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Document
	for i := range s.docs {
		if ownerID != nil && s.docs[i].OwnerID != *ownerID {
			continue
		}
		result = append(result, s.docs[i])
	}
	return result, nil
}

// DeleteDocument removes a document record.
func (s *DocumentStore) DeleteDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return nil
	}
	s.docs = append(s.docs[:i], s.docs[i+1:]...)
	delete(s.byID, id)
	for j := i; j < len(s.docs); j++ {
		s.byID[s.docs[j].ID] = j
	}
	return nil
}

// DeleteAll removes every document record.
func (s *DocumentStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = nil
	s.byID = make(map[int64]int)
	return nil
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// Close releases resources.
func (s *DocumentStore) Close() error {
	return nil
}
