package extract

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for HTML stripping.
var (
	htmlTitleTag   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlScriptTag  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlStyleTag   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlHeadTag    = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlSvgTag     = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments   = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlBlockOpen  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	htmlBlockClose = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	htmlBreakTags  = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	htmlAllTags    = regexp.MustCompile(`<[^>]+>`)
	htmlSpaces     = regexp.MustCompile(`[ \t]+`)
)

// htmlTitle returns the <title> content, or "".
func htmlTitle(content string) string {
	matches := htmlTitleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		return strings.TrimSpace(html.UnescapeString(matches[1]))
	}
	return ""
}

// stripHTML removes markup and extracts readable text. Block element
// boundaries become newlines so paragraphs stay separated.
func stripHTML(content string) string {
	content = htmlScriptTag.ReplaceAllString(content, "")
	content = htmlStyleTag.ReplaceAllString(content, "")
	content = htmlHeadTag.ReplaceAllString(content, "")
	content = htmlSvgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = htmlBlockOpen.ReplaceAllString(content, "\n")
	content = htmlBlockClose.ReplaceAllString(content, "\n")
	content = htmlBreakTags.ReplaceAllString(content, "\n")
	content = htmlAllTags.ReplaceAllString(content, "")

	content = html.UnescapeString(content)
	content = htmlSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
