package services

import (
	"fmt"
	"strings"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

const (
	// DefaultContextBudget caps the assembled grounding text handed to
	// the answer generator, in bytes.
	DefaultContextBudget = 2000

	// minFragment is the smallest partial document worth including.
	// When the remaining budget is at or below this, assembly stops
	// rather than emit a uselessly short fragment.
	minFragment = 100

	untitledDocument = "Unknown"
)

// AssembleContext packs retrieval results into a single grounding blob
// for the answer generator. Results are consumed in rank order; each is
// rendered as a "Document: title / Content: body" block. When a full
// block no longer fits, the content of the next result is truncated to
// the remaining budget if that leaves room for a meaningful fragment,
// and assembly stops either way.
func AssembleContext(results []domain.RetrievalResult, maxLength int) string {
	if len(results) == 0 {
		return ""
	}
	if maxLength <= 0 {
		maxLength = DefaultContextBudget
	}

	var b strings.Builder
	for _, r := range results {
		title := r.Document.Title
		if title == "" {
			title = untitledDocument
		}

		entry := fmt.Sprintf("Document: %s\nContent: %s\n\n", title, r.Document.Content)
		if b.Len()+len(entry) <= maxLength {
			b.WriteString(entry)
			continue
		}

		remaining := maxLength - b.Len()
		if remaining > minFragment {
			content := r.Document.Content
			if len(content) > remaining {
				content = content[:remaining]
			}
			b.WriteString(fmt.Sprintf("Document: %s\nContent: %s...\n\n", title, content))
		}
		break
	}
	return b.String()
}
