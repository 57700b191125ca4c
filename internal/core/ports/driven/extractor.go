package driven

import (
	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

// TextExtractor converts raw fetched content into indexable plain text.
// Implementations dispatch on the document's MIME type and fall back to
// treating the payload as UTF-8 text.
type TextExtractor interface {
	// Extract returns the plain-text body for a raw document, along with
	// a title derived from the content when the raw document carries none.
	// Returns domain.ErrEmptyContent if nothing extractable remains.
	Extract(raw domain.RawDocument) (title, text string, err error)
}
