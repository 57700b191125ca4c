package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driving"
	"github.com/quarrylabs/quarry-cli/internal/logger"
)

// Ensure RetrievalEngine implements the interface.
var _ driving.RetrievalService = (*RetrievalEngine)(nil)

const (
	// DefaultSearchK is the result count when the caller passes k <= 0.
	DefaultSearchK = 5

	// DefaultAnswerK is the retrieval depth for answer generation.
	DefaultAnswerK = 3

	// overfetchFactor widens index queries so that owner filtering and
	// tombstone skipping still leave k results to return.
	overfetchFactor = 4

	// noInformationAnswer is returned instead of calling the generator
	// when retrieval produced nothing to ground an answer on.
	noInformationAnswer = "No relevant information found to answer this question."

	// VectorsFilename is the index blob file inside the data directory.
	// Callers opening the index from disk use the same path.
	VectorsFilename = "vectors.bin"
	manifestFilename = "manifest.json"
)

// EngineConfig tunes the retrieval engine.
type EngineConfig struct {
	// DataDir is where the vector blob and manifest are persisted.
	// Empty disables persistence (in-memory only, used in tests).
	DataDir string

	// ContextBudget caps the grounding text for answer generation.
	// Zero means DefaultContextBudget.
	ContextBudget int

	// MaxTokens caps generated answer length. Zero lets the generator
	// use its model default.
	MaxTokens int
}

// RetrievalEngine owns the vector index and its positional manifest and
// implements add, search, answer, rebuild and clear on top of them.
//
// Public operations never return errors for infrastructure failures:
// adds report false, searches report empty, answers fall back to a
// fixed sentinel. Failures are logged. Rebuild and Clear are explicit
// administrative operations and do return errors.
//
// A single RWMutex guards the (index, manifest) pair so that readers
// always observe a consistent join between index positions and
// document identities.
type RetrievalEngine struct {
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	docStore  driven.DocumentStore
	generator driven.AnswerGenerator

	mu        sync.RWMutex
	man       *manifest
	dataDir   string
	ctxLimit  int
	maxTokens int
}

// NewRetrievalEngine creates a retrieval engine. The generator is
// optional; when nil, GenerateAnswer degrades to retrieval plus a
// fallback answer.
//
// When cfg.DataDir is set, the manifest is loaded from it and checked
// against the index the caller opened from the same directory. If the
// two disagree (one missing, corrupt, or a different length) both are
// reset and the engine starts empty; persisted document records are
// untouched and a rebuild restores the index from them.
func NewRetrievalEngine(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	docStore driven.DocumentStore,
	generator driven.AnswerGenerator,
	cfg EngineConfig,
) *RetrievalEngine {
	e := &RetrievalEngine{
		embedder:  embedder,
		index:     index,
		docStore:  docStore,
		generator: generator,
		man:       newManifest(),
		dataDir:   cfg.DataDir,
		ctxLimit:  cfg.ContextBudget,
		maxTokens: cfg.MaxTokens,
	}
	if e.ctxLimit <= 0 {
		e.ctxLimit = DefaultContextBudget
	}

	if e.dataDir != "" {
		e.loadPersistedState()
	}
	return e
}

// loadPersistedState pairs the persisted manifest with the
// already-opened index. Any mismatch resets both.
func (e *RetrievalEngine) loadPersistedState() {
	path := filepath.Join(e.dataDir, manifestFilename)
	man, err := loadManifest(path)
	switch {
	case err == nil:
		if man.len() != e.index.Count() {
			logger.Error("Manifest has %d entries but index has %d vectors, starting fresh: %v",
				man.len(), e.index.Count(), domain.ErrIndexInconsistent)
			e.reset()
			return
		}
		e.man = man
		logger.Debug("Loaded manifest with %d entries (%d live)", man.len(), man.live())

	case os.IsNotExist(err):
		if e.index.Count() > 0 {
			logger.Error("Index has %d vectors but no manifest, starting fresh", e.index.Count())
			e.reset()
			return
		}
		logger.Debug("No manifest on disk, starting empty")

	default:
		logger.Error("Failed to load manifest, starting fresh: %v", err)
		e.reset()
	}
}

// reset drops the in-memory index and manifest. Stored documents are
// kept so a rebuild can restore everything.
func (e *RetrievalEngine) reset() {
	e.index.Clear()
	e.man = newManifest()
}

// persist writes the vector blob and the manifest. Both are written so
// the pair stays in step on disk.
func (e *RetrievalEngine) persist() error {
	if e.dataDir == "" {
		return nil
	}
	if err := e.index.Save(filepath.Join(e.dataDir, VectorsFilename)); err != nil {
		return fmt.Errorf("%w: save index: %v", domain.ErrPersistenceFailed, err)
	}
	if err := e.man.save(filepath.Join(e.dataDir, manifestFilename)); err != nil {
		return fmt.Errorf("%w: save manifest: %v", domain.ErrPersistenceFailed, err)
	}
	return nil
}

// checkConsistency verifies the index/manifest join before serving
// reads. Called under at least a read lock.
func (e *RetrievalEngine) checkConsistency() error {
	if e.index.Count() != e.man.len() {
		return fmt.Errorf("%w: index has %d vectors, manifest has %d entries",
			domain.ErrIndexInconsistent, e.index.Count(), e.man.len())
	}
	return nil
}

// AddDocument embeds and indexes a single document, reporting success.
// Empty content, embedding failure and storage failure all report
// false; nothing is left half-added.
//
// Adding a document with the same (owner, source type, source ID) as an
// existing one replaces it: the stored record is updated in place and
// the old index position is tombstoned.
func (e *RetrievalEngine) AddDocument(ctx context.Context, in domain.DocumentInput) bool {
	if err := in.Validate(); err != nil {
		logger.Debug("Rejecting document: %v", err)
		return false
	}
	if in.SourceType == "" {
		in.SourceType = domain.SourceManual
	}
	if in.SourceID == "" {
		in.SourceID = generatedSourceID()
	}
	content := strings.TrimSpace(in.Content)

	embedding, err := e.embedder.Embed(ctx, content)
	if err != nil {
		logger.Error("Embedding failed for %s/%s: %v", in.SourceType, in.SourceID, err)
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	existing, err := e.docStore.GetBySource(ctx, in.OwnerID, in.SourceType, in.SourceID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Error("Document lookup failed for %s/%s: %v", in.SourceType, in.SourceID, err)
		return false
	}

	doc := &domain.Document{
		OwnerID:    in.OwnerID,
		SourceType: in.SourceType,
		SourceID:   in.SourceID,
		Title:      in.Title,
		Content:    content,
		Metadata:   in.Metadata,
		Embedding:  embedding,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
	}

	if err := e.docStore.SaveDocument(ctx, doc); err != nil {
		logger.Error("Failed to store document %s/%s: %v", in.SourceType, in.SourceID, err)
		return false
	}

	if existing != nil {
		e.man.tombstone(doc.ID)
	}

	pos, err := e.index.Append(ctx, embedding)
	if err != nil {
		logger.Error("Failed to index document %d: %v", doc.ID, err)
		if existing == nil {
			// Roll back the orphaned record so store and index agree.
			if derr := e.docStore.DeleteDocument(ctx, doc.ID); derr != nil {
				logger.Error("Rollback of document %d failed: %v", doc.ID, derr)
			}
		}
		return false
	}
	e.man.append(doc.ID, doc.OwnerID)
	logger.Debug("Indexed document %d at position %d", doc.ID, pos)

	if err := e.persist(); err != nil {
		logger.Error("Persistence failed after add: %v", err)
	}
	return true
}

// AddBatch adds documents one at a time and returns how many succeeded.
// A failing item never aborts the batch.
func (e *RetrievalEngine) AddBatch(ctx context.Context, inputs []domain.DocumentInput) int {
	added := 0
	for i, in := range inputs {
		if e.AddDocument(ctx, in) {
			added++
		} else {
			logger.Warn("Batch item %d skipped", i)
		}
	}
	logger.Info("Batch complete: %d/%d documents added", added, len(inputs))
	return added
}

// Search embeds the query and returns the k most similar documents
// belonging to the given owner, best first. Failures and empty queries
// return an empty slice.
func (e *RetrievalEngine) Search(ctx context.Context, query string, ownerID int64, k int) []domain.RetrievalResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievalResult{}
	}
	if k <= 0 {
		k = DefaultSearchK
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		logger.Error("Query embedding failed: %v", err)
		return []domain.RetrievalResult{}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkConsistency(); err != nil {
		logger.Error("Refusing to search: %v", err)
		return []domain.RetrievalResult{}
	}
	total := e.index.Count()
	if total == 0 {
		return []domain.RetrievalResult{}
	}

	// Widen the index query so owner filtering and tombstones still
	// leave k hits. A second pass over the whole index covers the
	// worst case.
	fetch := k * overfetchFactor
	if fetch > total {
		fetch = total
	}
	for {
		hits, err := e.index.Search(ctx, queryVec, fetch)
		if err != nil {
			logger.Error("Index search failed: %v", err)
			return []domain.RetrievalResult{}
		}

		results := e.hydrate(ctx, hits, ownerID, k)
		if len(results) >= k || fetch >= total {
			return results
		}
		fetch = total
	}
}

// hydrate filters hits by owner and tombstone state and loads the
// backing documents, keeping at most k.
func (e *RetrievalEngine) hydrate(ctx context.Context, hits []driven.VectorHit, ownerID int64, k int) []domain.RetrievalResult {
	results := make([]domain.RetrievalResult, 0, k)
	for _, hit := range hits {
		entry, ok := e.man.at(hit.Position)
		if !ok {
			logger.Warn("Hit at position %d has no manifest entry, skipping", hit.Position)
			continue
		}
		if entry.Deleted || entry.OwnerID != ownerID {
			continue
		}

		doc, err := e.docStore.GetDocument(ctx, entry.DocID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Error("Failed to load document %d: %v", entry.DocID, err)
			}
			continue
		}

		results = append(results, domain.RetrievalResult{Document: *doc, Score: hit.Score})
		if len(results) == k {
			break
		}
	}
	return results
}

// GenerateAnswer retrieves grounding documents for the query and asks
// the generator for an answer over them. With no matching documents
// the generator is never called and a fixed fallback is returned with
// zero confidence. Confidence is otherwise the mean similarity of the
// retrieved set.
func (e *RetrievalEngine) GenerateAnswer(ctx context.Context, query string, ownerID int64, k int) domain.Answer {
	if k <= 0 {
		k = DefaultAnswerK
	}

	results := e.Search(ctx, query, ownerID, k)
	if len(results) == 0 {
		return domain.Answer{
			Answer:     noInformationAnswer,
			Sources:    []domain.SourceExcerpt{},
			Confidence: 0.0,
		}
	}

	sources := make([]domain.SourceExcerpt, 0, len(results))
	sum := 0.0
	for _, r := range results {
		sources = append(sources, domain.SourceExcerpt{
			Excerpt:  r.Excerpt(),
			Metadata: r.Document.Metadata,
			Score:    r.Score,
		})
		sum += r.Score
	}
	confidence := sum / float64(len(results))

	grounding := AssembleContext(results, e.ctxLimit)

	if e.generator == nil {
		logger.Warn("No answer generator configured, returning sources only")
		return domain.Answer{
			Answer:     noInformationAnswer,
			Sources:    sources,
			Confidence: confidence,
		}
	}

	answer, err := e.generator.Generate(ctx, query, grounding, driven.GenerateOptions{MaxTokens: e.maxTokens})
	if err != nil {
		logger.Error("Answer generation failed: %v", err)
		return domain.Answer{
			Answer:     "Failed to generate an answer from the retrieved documents.",
			Sources:    sources,
			Confidence: 0.0,
		}
	}

	return domain.Answer{Answer: answer, Sources: sources, Confidence: confidence}
}

// Rebuild reconstructs the vector index and manifest from stored
// document records, compacting tombstones. Stored embeddings are
// reused when their dimension matches the index; otherwise the
// document is re-embedded and the record updated. When ownerID is
// non-nil the rebuilt index covers only that owner's documents.
//
// Rebuilding from a given store state is idempotent: running it twice
// yields the same index.
func (e *RetrievalEngine) Rebuild(ctx context.Context, ownerID *int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	docs, err := e.docStore.ListDocuments(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	logger.Section("Index Rebuild")
	logger.Info("Rebuilding from %d stored documents", len(docs))

	e.reset()

	indexed, skipped := 0, 0
	for i := range docs {
		doc := &docs[i]

		embedding := doc.Embedding
		if len(embedding) != e.index.Dimension() {
			embedding, err = e.embedder.Embed(ctx, doc.Content)
			if err != nil {
				logger.Warn("Skipping document %d, re-embedding failed: %v", doc.ID, err)
				skipped++
				continue
			}
			doc.Embedding = embedding
			if err := e.docStore.SaveDocument(ctx, doc); err != nil {
				logger.Warn("Could not save refreshed embedding for document %d: %v", doc.ID, err)
			}
		}

		if _, err := e.index.Append(ctx, embedding); err != nil {
			logger.Warn("Skipping document %d, index append failed: %v", doc.ID, err)
			skipped++
			continue
		}
		e.man.append(doc.ID, doc.OwnerID)
		indexed++
	}

	logger.Info("Rebuild complete: %d indexed, %d skipped", indexed, skipped)
	return e.persist()
}

// Clear removes every document, vector and manifest entry.
func (e *RetrievalEngine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.docStore.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear document store: %w", err)
	}
	e.reset()
	return e.persist()
}

// Stats reports the current corpus and index shape.
func (e *RetrievalEngine) Stats(ctx context.Context) domain.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	docs, err := e.docStore.Count(ctx)
	if err != nil {
		logger.Error("Document count failed: %v", err)
	}
	return domain.Stats{
		Documents: docs,
		IndexSize: e.index.Count(),
		Dimension: e.index.Dimension(),
		Metric:    e.index.Metric(),
		DataDir:   e.dataDir,
	}
}

// generatedSourceID backs manual adds that arrive without a source ID,
// keeping the (owner, source type, source ID) key unique.
func generatedSourceID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}
	return "manual-" + hex.EncodeToString(buf)
}
