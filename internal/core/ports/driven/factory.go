package driven

import (
	"context"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

// SourceRef identifies a single ingestable source: a filesystem path,
// a Notion page ID, or a URL, depending on Type.
type SourceRef struct {
	Type   domain.SourceType
	Target string
}

// ConnectorFactory creates connectors from source references.
// It maintains a registry of connector types and their builders.
type ConnectorFactory interface {
	// Create returns a Connector for the given source reference.
	// Returns domain.ErrInvalidInput if the source type is unknown.
	Create(ctx context.Context, ref SourceRef) (Connector, error)

	// SupportedTypes returns all registered connector types.
	SupportedTypes() []domain.SourceType
}
