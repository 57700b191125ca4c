// Package notion provides a connector that fetches pages through the
// Notion API and flattens their block tree into plain text.
package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driven"
	"github.com/quarrylabs/quarry-cli/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

const (
	// DefaultRequestsPerSecond is the documented limit for Notion
	// integrations (3 requests per second).
	DefaultRequestsPerSecond = 3

	// childPageSize is the block pagination size per request.
	childPageSize = 100

	// maxBlockDepth bounds recursion into nested blocks.
	maxBlockDepth = 4
)

// Config holds configuration for the Notion connector.
type Config struct {
	// Token is the Notion integration token (required).
	Token string

	// RequestsPerSecond throttles API calls (default 3).
	RequestsPerSecond float64
}

// Connector fetches a single Notion page as one document.
type Connector struct {
	client  *notionapi.Client
	limiter *rate.Limiter
	pageID  string
}

// New creates a Notion connector for the given page.
func New(cfg Config, pageID string) (*Connector, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("notion: integration token is required")
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	return &Connector{
		client:  notionapi.NewClient(notionapi.Token(cfg.Token)),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		pageID:  pageID,
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceNotion
}

// Fetch retrieves the page and its full block tree and emits it as a
// single raw document.
func (c *Connector) Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.limiter.Wait(ctx); err != nil {
			errs <- err
			return
		}
		page, err := c.client.Page.Get(ctx, notionapi.PageID(c.pageID))
		if err != nil {
			errs <- fmt.Errorf("get page %s: %w", c.pageID, err)
			return
		}

		var text strings.Builder
		if err := c.renderChildren(ctx, notionapi.BlockID(c.pageID), &text, 0); err != nil {
			errs <- fmt.Errorf("read blocks of %s: %w", c.pageID, err)
			return
		}

		doc := domain.RawDocument{
			SourceType: domain.SourceNotion,
			SourceID:   c.pageID,
			Title:      pageTitle(page),
			Content:    []byte(strings.TrimSpace(text.String())),
			MIMEType:   "text/plain",
			Metadata: map[string]any{
				"url":         page.URL,
				"last_edited": page.LastEditedTime.UTC().Format("2006-01-02T15:04:05Z"),
			},
		}

		select {
		case docs <- doc:
		case <-ctx.Done():
		}
	}()

	return docs, errs
}

// renderChildren walks one level of the block tree, appending text and
// recursing into blocks that have children.
func (c *Connector) renderChildren(ctx context.Context, parent notionapi.BlockID, out *strings.Builder, depth int) error {
	if depth >= maxBlockDepth {
		logger.Debug("Skipping blocks below depth %d under %s", maxBlockDepth, parent)
		return nil
	}

	cursor := notionapi.Cursor("")
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := c.client.Block.GetChildren(ctx, parent, &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    childPageSize,
		})
		if err != nil {
			return err
		}

		for _, block := range resp.Results {
			if line := blockText(block); line != "" {
				out.WriteString(line)
				out.WriteString("\n")
			}
			if block.GetHasChildren() && block.GetType() != notionapi.BlockTypeChildPage {
				if err := c.renderChildren(ctx, block.GetID(), out, depth+1); err != nil {
					return err
				}
			}
		}

		if !resp.HasMore {
			return nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}

// pageTitle extracts the page title property.
func pageTitle(page *notionapi.Page) string {
	for _, prop := range page.Properties {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			return richTextPlain(title.Title)
		}
	}
	return ""
}

// blockText returns the plain-text rendering of one block.
func blockText(block notionapi.Block) string {
	switch b := block.(type) {
	case *notionapi.ParagraphBlock:
		return richTextPlain(b.Paragraph.RichText)
	case *notionapi.Heading1Block:
		return richTextPlain(b.Heading1.RichText)
	case *notionapi.Heading2Block:
		return richTextPlain(b.Heading2.RichText)
	case *notionapi.Heading3Block:
		return richTextPlain(b.Heading3.RichText)
	case *notionapi.BulletedListItemBlock:
		return richTextPlain(b.BulletedListItem.RichText)
	case *notionapi.NumberedListItemBlock:
		return richTextPlain(b.NumberedListItem.RichText)
	case *notionapi.ToDoBlock:
		return richTextPlain(b.ToDo.RichText)
	case *notionapi.QuoteBlock:
		return richTextPlain(b.Quote.RichText)
	case *notionapi.CalloutBlock:
		return richTextPlain(b.Callout.RichText)
	case *notionapi.ToggleBlock:
		return richTextPlain(b.Toggle.RichText)
	case *notionapi.CodeBlock:
		return richTextPlain(b.Code.RichText)
	case *notionapi.ChildPageBlock:
		return b.ChildPage.Title
	default:
		return ""
	}
}

// richTextPlain joins the plain-text parts of a rich text array.
func richTextPlain(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return strings.TrimSpace(b.String())
}
