package notion

import (
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rich(text string) []notionapi.RichText {
	return []notionapi.RichText{{PlainText: text}}
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{}, "page-id")
	assert.Error(t, err)

	conn, err := New(Config{Token: "secret"}, "page-id")
	require.NoError(t, err)
	assert.NotNil(t, conn)
}

func TestPageTitle(t *testing.T) {
	page := &notionapi.Page{
		Properties: notionapi.Properties{
			"Status": &notionapi.SelectProperty{},
			"Name":   &notionapi.TitleProperty{Title: rich("Weekly Notes")},
		},
	}
	assert.Equal(t, "Weekly Notes", pageTitle(page))

	assert.Equal(t, "", pageTitle(&notionapi.Page{Properties: notionapi.Properties{}}))
}

func TestBlockText(t *testing.T) {
	tests := []struct {
		name  string
		block notionapi.Block
		want  string
	}{
		{
			"paragraph",
			&notionapi.ParagraphBlock{Paragraph: notionapi.Paragraph{RichText: rich("plain body")}},
			"plain body",
		},
		{
			"heading",
			&notionapi.Heading1Block{Heading1: notionapi.Heading{RichText: rich("Title")}},
			"Title",
		},
		{
			"bullet",
			&notionapi.BulletedListItemBlock{BulletedListItem: notionapi.ListItem{RichText: rich("item one")}},
			"item one",
		},
		{
			"todo",
			&notionapi.ToDoBlock{ToDo: notionapi.ToDo{RichText: rich("buy milk")}},
			"buy milk",
		},
		{
			"code",
			&notionapi.CodeBlock{Code: notionapi.Code{RichText: rich("x := 1")}},
			"x := 1",
		},
		{
			"unsupported",
			&notionapi.DividerBlock{},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, blockText(tt.block))
		})
	}
}

func TestRichTextPlain(t *testing.T) {
	parts := []notionapi.RichText{
		{PlainText: "hello "},
		{PlainText: "world"},
	}
	assert.Equal(t, "hello world", richTextPlain(parts))
	assert.Equal(t, "", richTextPlain(nil))
}
