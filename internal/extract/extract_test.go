package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

func raw(sourceID, mimeType, content string) domain.RawDocument {
	return domain.RawDocument{
		SourceType: domain.SourceFile,
		SourceID:   sourceID,
		Content:    []byte(content),
		MIMEType:   mimeType,
	}
}

func TestExtractPlainText(t *testing.T) {
	e := New()

	title, text, err := e.Extract(raw("notes/meeting-notes.txt", "text/plain", "  hello world  \n"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "meeting notes", title)
}

func TestExtractEmpty(t *testing.T) {
	e := New()

	_, _, err := e.Extract(raw("a.txt", "text/plain", ""))
	assert.ErrorIs(t, err, domain.ErrEmptyContent)

	_, _, err = e.Extract(raw("b.txt", "text/plain", "   \n\t  "))
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestExtractInvalidUTF8(t *testing.T) {
	e := New()

	doc := raw("bin.txt", "text/plain", "")
	doc.Content = []byte{0xff, 0xfe, 0x00}
	_, _, err := e.Extract(doc)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtractMarkdown(t *testing.T) {
	e := New()
	md := "# Setup Guide\n\nInstall with `make install`.\n\n- step one\n- step two\n\nSee [docs](https://example.com) for **more**.\n"

	title, text, err := e.Extract(raw("guide.md", "text/markdown", md))
	require.NoError(t, err)
	assert.Equal(t, "Setup Guide", title)
	assert.Contains(t, text, "step one")
	assert.Contains(t, text, "See docs for more.")
	assert.NotContains(t, text, "](")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
}

func TestExtractMarkdownByExtension(t *testing.T) {
	e := New()

	// No MIME type: extension decides.
	title, text, err := e.Extract(raw("readme.md", "", "# Hello\n\nbody text\n"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", title)
	assert.Equal(t, "Hello\n\nbody text", text)
}

func TestExtractHTML(t *testing.T) {
	e := New()
	page := `<html><head><title>About &amp; Contact</title><style>p{color:red}</style></head>
<body><script>alert(1)</script><h1>About</h1><p>First paragraph.</p><p>Second &lt;b&gt;.</p></body></html>`

	title, text, err := e.Extract(raw("https://example.com/about", "text/html; charset=utf-8", page))
	require.NoError(t, err)
	assert.Equal(t, "About & Contact", title)
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second <b>.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<p>")
}

func TestExtractCSV(t *testing.T) {
	e := New()
	data := "name,role\nAda,engineer\nGrace,admiral\n"

	title, text, err := e.Extract(raw("people.csv", "text/csv", data))
	require.NoError(t, err)
	assert.Equal(t, "people", title)
	assert.Contains(t, text, "name: Ada, role: engineer")
	assert.Contains(t, text, "name: Grace, role: admiral")
}

func TestExtractCSVMalformed(t *testing.T) {
	e := New()

	// Unbalanced quotes: fall back to the raw content.
	_, text, err := e.Extract(raw("broken.csv", "text/csv", `a,"b`+"\n"))
	require.NoError(t, err)
	assert.Contains(t, text, `a,"b`)
}

func TestExtractUnknownFormatFallsBackToText(t *testing.T) {
	e := New()

	_, text, err := e.Extract(raw("data.xyz", "application/x-unknown", "raw payload"))
	require.NoError(t, err)
	assert.Equal(t, "raw payload", text)
}
