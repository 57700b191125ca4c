// Package extract converts raw fetched content into plain text for
// embedding. Format handling dispatches on MIME type first, then on
// the source file extension, falling back to treating the payload as
// UTF-8 text.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor is the default text extractor.
type Extractor struct{}

// New creates a text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain-text body and a derived title for a raw
// document. The title comes from the content when possible (first
// heading, <title> tag) and otherwise from the source filename.
func (e *Extractor) Extract(raw domain.RawDocument) (string, string, error) {
	if len(raw.Content) == 0 {
		return "", "", fmt.Errorf("%w: %s", domain.ErrEmptyContent, raw.SourceID)
	}
	if !utf8.Valid(raw.Content) {
		return "", "", fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrInvalidInput, raw.SourceID)
	}

	content := string(raw.Content)

	var title, text string
	switch format(raw.MIMEType, raw.SourceID) {
	case "markdown":
		title = markdownTitle(content)
		text = stripMarkdown(content)
	case "html":
		title = htmlTitle(content)
		text = stripHTML(content)
	case "csv":
		text = flattenCSV(content)
	default:
		text = content
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", fmt.Errorf("%w: %s", domain.ErrEmptyContent, raw.SourceID)
	}
	if title == "" {
		title = filenameTitle(raw.SourceID)
	}
	return title, text, nil
}

// format resolves the handler name from MIME type, then extension.
func format(mimeType, sourceID string) string {
	switch normalizeMIME(mimeType) {
	case "text/markdown", "text/x-markdown":
		return "markdown"
	case "text/html", "application/xhtml+xml":
		return "html"
	case "text/csv":
		return "csv"
	case "text/plain":
		return "text"
	}

	switch strings.ToLower(filepath.Ext(sourceID)) {
	case ".md", ".markdown":
		return "markdown"
	case ".html", ".htm":
		return "html"
	case ".csv":
		return "csv"
	}
	return "text"
}

// normalizeMIME drops parameters like "; charset=utf-8".
func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// filenameTitle derives a readable title from the source identifier.
func filenameTitle(sourceID string) string {
	name := filepath.Base(sourceID)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
