package connectors

import (
	"context"
	"fmt"

	"github.com/quarrylabs/quarry-cli/internal/connectors/filesystem"
	"github.com/quarrylabs/quarry-cli/internal/connectors/notion"
	"github.com/quarrylabs/quarry-cli/internal/connectors/web"
	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Builder creates a connector for one target.
type Builder func(ctx context.Context, target string) (driven.Connector, error)

// Factory creates connectors from source references. Connector types
// are registered at construction; Notion is only registered when an
// integration token is configured.
type Factory struct {
	builders map[domain.SourceType]Builder
}

// FactoryConfig carries per-connector settings.
type FactoryConfig struct {
	// NotionToken enables the Notion connector when non-empty.
	NotionToken string

	// NotionRequestsPerSecond throttles Notion API calls.
	NotionRequestsPerSecond float64
}

// NewFactory creates a factory with the standard connector set.
func NewFactory(cfg FactoryConfig) *Factory {
	f := &Factory{builders: make(map[domain.SourceType]Builder)}

	f.Register(domain.SourceFile, func(_ context.Context, target string) (driven.Connector, error) {
		return filesystem.New(target), nil
	})
	f.Register(domain.SourceURL, func(_ context.Context, target string) (driven.Connector, error) {
		return web.New(target)
	})
	if cfg.NotionToken != "" {
		f.Register(domain.SourceNotion, func(_ context.Context, target string) (driven.Connector, error) {
			return notion.New(notion.Config{
				Token:             cfg.NotionToken,
				RequestsPerSecond: cfg.NotionRequestsPerSecond,
			}, target)
		})
	}
	return f
}

// Register adds a connector builder for the given type.
func (f *Factory) Register(sourceType domain.SourceType, builder Builder) {
	f.builders[sourceType] = builder
}

// Create returns a connector for the given source reference.
func (f *Factory) Create(ctx context.Context, ref driven.SourceRef) (driven.Connector, error) {
	builder, ok := f.builders[ref.Type]
	if !ok {
		return nil, fmt.Errorf("%w: no connector for source type %q", domain.ErrInvalidInput, ref.Type)
	}
	return builder(ctx, ref.Target)
}

// SupportedTypes returns all registered connector types.
func (f *Factory) SupportedTypes() []domain.SourceType {
	types := make([]domain.SourceType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	return types
}
