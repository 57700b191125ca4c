package services

import (
	"context"
	"hash/fnv"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry-cli/internal/adapters/driven/storage/memory"
	"github.com/quarrylabs/quarry-cli/internal/adapters/driven/vector/flat"
	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
)

const testDims = 4

// --- Mock implementations ---

// stubEmbedder implements driven.EmbeddingService for testing. Known
// texts map to crafted vectors; anything else gets a deterministic
// unit vector derived from its hash, so identical text always embeds
// identically.
type stubEmbedder struct {
	vectors map[string][]float32
	failOn  map[string]bool
	calls   int
}

func (m *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.failOn[text] {
		return nil, domain.ErrEmbeddingFailed
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return hashVector(text), nil
}

func (m *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *stubEmbedder) Dimensions() int            { return testDims }
func (m *stubEmbedder) ModelName() string          { return "stub" }
func (m *stubEmbedder) Ping(_ context.Context) error { return nil }
func (m *stubEmbedder) Close() error               { return nil }

// hashVector derives a unit vector from text. Identical text yields an
// identical vector, so with inner product scoring a document is always
// its own best match.
func hashVector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, testDims)
	var norm float64
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(seed%1000)/1000 + 0.001
		norm += float64(v[i]) * float64(v[i])
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// stubGenerator implements driven.AnswerGenerator for testing.
type stubGenerator struct {
	answer        string
	err           error
	calls         int
	lastQuery     string
	lastGrounding string
}

func (m *stubGenerator) Generate(_ context.Context, query, grounding string, _ driven.GenerateOptions) (string, error) {
	m.calls++
	m.lastQuery = query
	m.lastGrounding = grounding
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *stubGenerator) ModelName() string          { return "stub" }
func (m *stubGenerator) Ping(_ context.Context) error { return nil }
func (m *stubGenerator) Close() error               { return nil }

// --- Fixtures ---

func newTestEngine(t *testing.T, emb *stubEmbedder, gen driven.AnswerGenerator) (*RetrievalEngine, *memory.DocumentStore) {
	t.Helper()
	index, err := flat.New(testDims, flat.MetricInnerProduct)
	require.NoError(t, err)
	store := memory.NewDocumentStore()
	engine := NewRetrievalEngine(emb, index, store, gen, EngineConfig{})
	return engine, store
}

func input(owner int64, sourceID, title, content string) domain.DocumentInput {
	return domain.DocumentInput{
		OwnerID:    owner,
		SourceType: domain.SourceManual,
		SourceID:   sourceID,
		Title:      title,
		Content:    content,
	}
}

// --- Tests ---

func TestAddDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("adds and assigns index position", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)

		assert.True(t, engine.AddDocument(ctx, input(1, "a", "A", "some content")))

		stats := engine.Stats(ctx)
		assert.Equal(t, 1, stats.Documents)
		assert.Equal(t, 1, stats.IndexSize)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		engine, store := newTestEngine(t, &stubEmbedder{}, nil)

		assert.False(t, engine.AddDocument(ctx, input(1, "a", "A", "")))
		assert.False(t, engine.AddDocument(ctx, input(1, "a", "A", "   \n\t ")))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, 0, engine.Stats(ctx).IndexSize)
	})

	t.Run("embedding failure leaves nothing behind", func(t *testing.T) {
		emb := &stubEmbedder{failOn: map[string]bool{"doomed": true}}
		engine, store := newTestEngine(t, emb, nil)

		assert.False(t, engine.AddDocument(ctx, input(1, "a", "A", "doomed")))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, 0, engine.Stats(ctx).IndexSize)
	})

	t.Run("defaults source type to manual", func(t *testing.T) {
		engine, store := newTestEngine(t, &stubEmbedder{}, nil)

		in := input(1, "a", "A", "content")
		in.SourceType = ""
		require.True(t, engine.AddDocument(ctx, in))

		doc, err := store.GetBySource(ctx, 1, domain.SourceManual, "a")
		require.NoError(t, err)
		assert.Equal(t, domain.SourceManual, doc.SourceType)
	})

	t.Run("generates a source ID when missing", func(t *testing.T) {
		engine, store := newTestEngine(t, &stubEmbedder{}, nil)

		in := input(1, "", "A", "first")
		require.True(t, engine.AddDocument(ctx, in))
		require.True(t, engine.AddDocument(ctx, input(1, "", "B", "second")))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "blank source IDs must not collide")
	})
}

func TestAddDocumentUpdate(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, &stubEmbedder{}, nil)

	require.True(t, engine.AddDocument(ctx, input(1, "note-1", "v1", "the old content")))
	require.True(t, engine.AddDocument(ctx, input(1, "note-1", "v2", "the new content")))

	// One record, updated in place.
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, err := store.GetBySource(ctx, 1, domain.SourceManual, "note-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", doc.Title)
	assert.Equal(t, "the new content", doc.Content)

	// Old position is tombstoned, not reused.
	stats := engine.Stats(ctx)
	assert.Equal(t, 2, stats.IndexSize)

	// Searching finds only the new version.
	results := engine.Search(ctx, "the new content", 1, 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "v2", results[0].Document.Title)
	for _, r := range results {
		assert.NotEqual(t, "v1", r.Document.Title)
	}
}

func TestAddBatch(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, &stubEmbedder{}, nil)

	inputs := []domain.DocumentInput{
		input(1, "1", "One", "first document"),
		input(1, "2", "Two", "second document"),
		input(1, "3", "Three", ""), // invalid
		input(1, "4", "Four", "fourth document"),
		input(1, "5", "Five", "fifth document"),
	}

	assert.Equal(t, 4, engine.AddBatch(ctx, inputs))

	stats := engine.Stats(ctx)
	assert.Equal(t, 4, stats.Documents)
	assert.Equal(t, 4, stats.IndexSize)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store returns empty", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		results := engine.Search(ctx, "anything", 1, 5)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("empty query returns empty", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "content")))
		assert.Empty(t, engine.Search(ctx, "   ", 1, 5))
	})

	t.Run("query embedding failure returns empty", func(t *testing.T) {
		emb := &stubEmbedder{failOn: map[string]bool{"bad query": true}}
		engine, _ := newTestEngine(t, emb, nil)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "content")))
		assert.Empty(t, engine.Search(ctx, "bad query", 1, 5))
	})

	t.Run("document retrieves itself", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "the quick brown fox")))
		require.True(t, engine.AddDocument(ctx, input(1, "b", "B", "an unrelated note")))

		results := engine.Search(ctx, "the quick brown fox", 1, 5)
		require.NotEmpty(t, results)
		assert.Equal(t, "A", results[0].Document.Title)
		assert.Greater(t, results[0].Score, 0.0)
	})

	t.Run("results ranked by descending score", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		for i, content := range []string{"alpha", "beta", "gamma", "delta"} {
			require.True(t, engine.AddDocument(ctx, input(1, string(rune('a'+i)), "", content)))
		}

		results := engine.Search(ctx, "alpha", 1, 4)
		require.Len(t, results, 4)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("honours k", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		for i := 0; i < 10; i++ {
			require.True(t, engine.AddDocument(ctx, input(1, string(rune('a'+i)), "", "doc "+string(rune('a'+i)))))
		}
		assert.Len(t, engine.Search(ctx, "doc a", 1, 3), 3)
	})
}

func TestSearchRanking(t *testing.T) {
	ctx := context.Background()
	emb := &stubEmbedder{vectors: map[string][]float32{
		"apple pie recipe":       {0.9, 0.4, 0.0, 0.0},
		"banana smoothie recipe": {0.8, 0.5, 0.1, 0.0},
		"car engine repair":      {0.0, 0.1, 0.9, 0.4},
		"fruit dessert":          {1.0, 0.3, 0.0, 0.0},
	}}
	engine, _ := newTestEngine(t, emb, nil)

	require.True(t, engine.AddDocument(ctx, input(1, "pie", "Pie", "apple pie recipe")))
	require.True(t, engine.AddDocument(ctx, input(1, "smoothie", "Smoothie", "banana smoothie recipe")))
	require.True(t, engine.AddDocument(ctx, input(1, "car", "Car", "car engine repair")))

	results := engine.Search(ctx, "fruit dessert", 1, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "Pie", results[0].Document.Title)
	assert.Equal(t, "Smoothie", results[1].Document.Title)
}

func TestSearchOwnerFiltering(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, &stubEmbedder{}, nil)

	// Owner 2's document matches the query exactly; owner 1 must still
	// never see it.
	require.True(t, engine.AddDocument(ctx, input(1, "a", "Mine", "somewhat related text")))
	require.True(t, engine.AddDocument(ctx, input(2, "b", "Theirs", "secret project notes")))

	results := engine.Search(ctx, "secret project notes", 1, 5)
	for _, r := range results {
		assert.Equal(t, int64(1), r.Document.OwnerID)
		assert.NotEqual(t, "Theirs", r.Document.Title)
	}

	// The other owner still finds their own document.
	results = engine.Search(ctx, "secret project notes", 2, 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "Theirs", results[0].Document.Title)
}

func TestSearchOverfetch(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, &stubEmbedder{}, nil)

	// Many documents for another owner crowd the top of the index
	// query; the second pass over the whole index must still find all
	// of owner 1's documents.
	for i := 0; i < 30; i++ {
		require.True(t, engine.AddDocument(ctx, input(2, string(rune('A'+i)), "", "filler filler filler")))
	}
	require.True(t, engine.AddDocument(ctx, input(1, "mine-1", "M1", "rare topic one")))
	require.True(t, engine.AddDocument(ctx, input(1, "mine-2", "M2", "rare topic two")))

	results := engine.Search(ctx, "filler filler filler", 1, 5)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, int64(1), r.Document.OwnerID)
	}
}

func TestSearchInconsistentIndex(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
	require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "content")))

	// Force a divergence between index and manifest.
	engine.man.append(99, 1)

	assert.Empty(t, engine.Search(ctx, "content", 1, 5))
}

func TestGenerateAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("no results yields sentinel without calling generator", func(t *testing.T) {
		gen := &stubGenerator{answer: "should not be used"}
		engine, _ := newTestEngine(t, &stubEmbedder{}, gen)

		ans := engine.GenerateAnswer(ctx, "anything", 1, 3)
		assert.Equal(t, noInformationAnswer, ans.Answer)
		assert.Equal(t, 0.0, ans.Confidence)
		assert.Empty(t, ans.Sources)
		assert.Equal(t, 0, gen.calls)
	})

	t.Run("grounded answer with mean confidence", func(t *testing.T) {
		gen := &stubGenerator{answer: "Apples make good pie."}
		engine, _ := newTestEngine(t, &stubEmbedder{}, gen)

		require.True(t, engine.AddDocument(ctx, input(1, "a", "Pie", "apple pie recipe")))
		require.True(t, engine.AddDocument(ctx, input(1, "b", "Tart", "apple tart recipe")))

		ans := engine.GenerateAnswer(ctx, "apple pie recipe", 1, 2)
		assert.Equal(t, "Apples make good pie.", ans.Answer)
		assert.Equal(t, 1, gen.calls)
		assert.Contains(t, gen.lastGrounding, "Document: Pie")
		assert.Contains(t, gen.lastGrounding, "apple pie recipe")
		assert.Equal(t, "apple pie recipe", gen.lastQuery)

		require.Len(t, ans.Sources, 2)
		mean := (ans.Sources[0].Score + ans.Sources[1].Score) / 2
		assert.InDelta(t, mean, ans.Confidence, 1e-9)
		assert.Greater(t, ans.Confidence, 0.0)
	})

	t.Run("generator failure degrades with zero confidence", func(t *testing.T) {
		gen := &stubGenerator{err: domain.ErrGeneratorUnavailable}
		engine, _ := newTestEngine(t, &stubEmbedder{}, gen)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "some content")))

		ans := engine.GenerateAnswer(ctx, "some content", 1, 3)
		assert.NotEqual(t, "", ans.Answer)
		assert.Equal(t, 0.0, ans.Confidence)
		assert.NotEmpty(t, ans.Sources, "sources are still reported")
	})

	t.Run("nil generator returns sources with fallback answer", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "some content")))

		ans := engine.GenerateAnswer(ctx, "some content", 1, 3)
		assert.Equal(t, noInformationAnswer, ans.Answer)
		assert.NotEmpty(t, ans.Sources)
		assert.Greater(t, ans.Confidence, 0.0)
	})
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()

	t.Run("compacts tombstones", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "v1", "old content")))
		require.True(t, engine.AddDocument(ctx, input(1, "a", "v2", "new content")))
		require.Equal(t, 2, engine.Stats(ctx).IndexSize)

		require.NoError(t, engine.Rebuild(ctx, nil))

		stats := engine.Stats(ctx)
		assert.Equal(t, 1, stats.Documents)
		assert.Equal(t, 1, stats.IndexSize)

		results := engine.Search(ctx, "new content", 1, 5)
		require.NotEmpty(t, results)
		assert.Equal(t, "v2", results[0].Document.Title)
	})

	t.Run("idempotent", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "first document")))
		require.True(t, engine.AddDocument(ctx, input(1, "b", "B", "second document")))

		require.NoError(t, engine.Rebuild(ctx, nil))
		first := engine.Search(ctx, "first document", 1, 5)
		statsOne := engine.Stats(ctx)

		require.NoError(t, engine.Rebuild(ctx, nil))
		second := engine.Search(ctx, "first document", 1, 5)
		statsTwo := engine.Stats(ctx)

		assert.Equal(t, statsOne, statsTwo)
		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].Document.ID, second[i].Document.ID)
			assert.InDelta(t, first[i].Score, second[i].Score, 1e-9)
		}
	})

	t.Run("reuses stored embeddings without re-embedding", func(t *testing.T) {
		emb := &stubEmbedder{}
		engine, _ := newTestEngine(t, emb, nil)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "content")))

		before := emb.calls
		require.NoError(t, engine.Rebuild(ctx, nil))
		assert.Equal(t, before, emb.calls)
	})

	t.Run("scoped to one owner", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "owner one doc")))
		require.True(t, engine.AddDocument(ctx, input(2, "b", "B", "owner two doc")))

		owner := int64(1)
		require.NoError(t, engine.Rebuild(ctx, &owner))

		stats := engine.Stats(ctx)
		assert.Equal(t, 1, stats.IndexSize)
		assert.Equal(t, 2, stats.Documents, "records for other owners are kept")

		assert.NotEmpty(t, engine.Search(ctx, "owner one doc", 1, 5))
		assert.Empty(t, engine.Search(ctx, "owner two doc", 2, 5))
	})

	t.Run("repairs a wiped index from stored records", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubEmbedder{}, nil)
		require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "recoverable content")))

		engine.mu.Lock()
		engine.reset()
		engine.mu.Unlock()
		require.Empty(t, engine.Search(ctx, "recoverable content", 1, 5))

		require.NoError(t, engine.Rebuild(ctx, nil))
		results := engine.Search(ctx, "recoverable content", 1, 5)
		require.NotEmpty(t, results)
		assert.Equal(t, "A", results[0].Document.Title)
	})
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, &stubEmbedder{}, nil)
	require.True(t, engine.AddDocument(ctx, input(1, "a", "A", "content")))

	require.NoError(t, engine.Clear(ctx))

	stats := engine.Stats(ctx)
	assert.Equal(t, 0, stats.Documents)
	assert.Equal(t, 0, stats.IndexSize)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, engine.Search(ctx, "content", 1, 5))
}

func TestEnginePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.NewDocumentStore()
	emb := &stubEmbedder{}

	index, err := flat.New(testDims, flat.MetricInnerProduct)
	require.NoError(t, err)
	engine := NewRetrievalEngine(emb, index, store, nil, EngineConfig{DataDir: dir})

	require.True(t, engine.AddDocument(ctx, input(1, "a", "Fox", "the quick brown fox")))
	require.True(t, engine.AddDocument(ctx, input(1, "b", "Note", "an unrelated note")))
	want := engine.Search(ctx, "the quick brown fox", 1, 1)
	require.Len(t, want, 1)

	t.Run("reload restores the same top result", func(t *testing.T) {
		reopened, err := flat.Open(filepath.Join(dir, VectorsFilename), testDims, flat.MetricInnerProduct)
		require.NoError(t, err)
		require.Equal(t, 2, reopened.Count())

		engine2 := NewRetrievalEngine(emb, reopened, store, nil, EngineConfig{DataDir: dir})
		got := engine2.Search(ctx, "the quick brown fox", 1, 1)
		require.Len(t, got, 1)
		assert.Equal(t, want[0].Document.ID, got[0].Document.ID)
		assert.InDelta(t, want[0].Score, got[0].Score, 1e-9)
	})

	t.Run("index without manifest starts fresh", func(t *testing.T) {
		otherDir := t.TempDir()
		reopened, err := flat.Open(filepath.Join(dir, VectorsFilename), testDims, flat.MetricInnerProduct)
		require.NoError(t, err)
		require.Positive(t, reopened.Count())

		engine3 := NewRetrievalEngine(emb, reopened, store, nil, EngineConfig{DataDir: otherDir})
		assert.Equal(t, 0, engine3.Stats(ctx).IndexSize)
		assert.Empty(t, engine3.Search(ctx, "the quick brown fox", 1, 5))
	})

	t.Run("manifest length mismatch resets both", func(t *testing.T) {
		freshIndex, err := flat.New(testDims, flat.MetricInnerProduct)
		require.NoError(t, err)

		// dir still holds a two-entry manifest; the index is empty.
		engine4 := NewRetrievalEngine(emb, freshIndex, store, nil, EngineConfig{DataDir: dir})
		assert.Equal(t, 0, engine4.Stats(ctx).IndexSize)
	})
}
