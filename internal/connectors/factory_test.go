package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
)

func TestFactoryCreate(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(FactoryConfig{})

	t.Run("filesystem", func(t *testing.T) {
		conn, err := factory.Create(ctx, driven.SourceRef{Type: domain.SourceFile, Target: t.TempDir()})
		require.NoError(t, err)
		assert.Equal(t, domain.SourceFile, conn.Type())
		conn.Close()
	})

	t.Run("web", func(t *testing.T) {
		conn, err := factory.Create(ctx, driven.SourceRef{Type: domain.SourceURL, Target: "https://example.com"})
		require.NoError(t, err)
		assert.Equal(t, domain.SourceURL, conn.Type())
		conn.Close()
	})

	t.Run("notion disabled without token", func(t *testing.T) {
		_, err := factory.Create(ctx, driven.SourceRef{Type: domain.SourceNotion, Target: "page"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := factory.Create(ctx, driven.SourceRef{Type: "carrier-pigeon", Target: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestFactoryNotionEnabled(t *testing.T) {
	factory := NewFactory(FactoryConfig{NotionToken: "secret"})

	conn, err := factory.Create(context.Background(),
		driven.SourceRef{Type: domain.SourceNotion, Target: "page-id"})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceNotion, conn.Type())

	assert.Len(t, factory.SupportedTypes(), 3)
}
