package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

func TestDocumentStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("insert assigns sequential ids", func(t *testing.T) {
		store := NewDocumentStore()

		a := &domain.Document{OwnerID: 1, SourceType: domain.SourceManual, SourceID: "a", Content: "a"}
		b := &domain.Document{OwnerID: 1, SourceType: domain.SourceManual, SourceID: "b", Content: "b"}

		require.NoError(t, store.SaveDocument(ctx, a))
		require.NoError(t, store.SaveDocument(ctx, b))

		assert.Equal(t, int64(1), a.ID)
		assert.Equal(t, int64(2), b.ID)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		store := NewDocumentStore()
		doc := &domain.Document{OwnerID: 1, SourceType: domain.SourceManual, SourceID: "a", Content: "original"}
		require.NoError(t, store.SaveDocument(ctx, doc))

		got, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		got.Content = "mutated"

		again, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "original", again.Content)
	})

	t.Run("missing id is not found", func(t *testing.T) {
		store := NewDocumentStore()
		_, err := store.GetDocument(ctx, 42)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		store := NewDocumentStore()

		a := &domain.Document{OwnerID: 1, SourceType: domain.SourceManual, SourceID: "a", Content: "a"}
		require.NoError(t, store.SaveDocument(ctx, a))
		require.NoError(t, store.DeleteDocument(ctx, a.ID))

		b := &domain.Document{OwnerID: 1, SourceType: domain.SourceManual, SourceID: "b", Content: "b"}
		require.NoError(t, store.SaveDocument(ctx, b))
		assert.Equal(t, int64(2), b.ID)
	})
}

func TestDocumentStore_GetBySource(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	doc := &domain.Document{OwnerID: 2, SourceType: domain.SourceFile, SourceID: "/x.txt", Content: "x"}
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetBySource(ctx, 2, domain.SourceFile, "/x.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = store.GetBySource(ctx, 3, domain.SourceFile, "/x.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListDocuments(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	for _, d := range []struct {
		owner int64
		sid   string
	}{{1, "a"}, {2, "b"}, {1, "c"}} {
		doc := &domain.Document{OwnerID: d.owner, SourceType: domain.SourceManual, SourceID: d.sid, Content: "x"}
		require.NoError(t, store.SaveDocument(ctx, doc))
	}

	all, err := store.ListDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	owner := int64(1)
	scoped, err := store.ListDocuments(ctx, &owner)
	require.NoError(t, err)
	assert.Len(t, scoped, 2)
}

func TestDocumentStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	doc := &domain.Document{OwnerID: 1, SourceType: domain.SourceManual, SourceID: "a", Content: "x"}
	require.NoError(t, store.SaveDocument(ctx, doc))
	require.NoError(t, store.DeleteAll(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
