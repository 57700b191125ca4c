package extract

import (
	"regexp"
	"strings"
)

var (
	mdCodeBlock  = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode = regexp.MustCompile("`[^`]+`")
	mdImages     = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLinks      = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeadings   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote = regexp.MustCompile(`(?m)^>\s*`)
	mdListMarker = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
)

// markdownTitle returns the first H1 heading, or "".
func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// stripMarkdown removes common markdown formatting, keeping the prose.
func stripMarkdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "")
	content = mdImages.ReplaceAllString(content, "")
	content = mdLinks.ReplaceAllString(content, "$1")
	content = mdHeadings.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdListMarker.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	return collapseBlankLines(content)
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// collapseBlankLines trims trailing space per line and squeezes runs
// of blank lines down to one.
func collapseBlankLines(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}
