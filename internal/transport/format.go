// ABOUTME: Markdown rendering for outbound Matrix messages
// ABOUTME: Produces the formatted_body companion of plain text replies

package transport

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
)

// RenderMarkdown converts reply text to HTML for the formatted message
// body. It reports false when rendering fails or adds nothing beyond a
// plain paragraph, in which case the caller should send text only.
func RenderMarkdown(text string) (string, bool) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return "", false
	}

	html := strings.TrimSpace(buf.String())
	if html == "" {
		return "", false
	}

	// A single bare paragraph carries no formatting worth declaring
	inner := strings.TrimSuffix(strings.TrimPrefix(html, "<p>"), "</p>")
	if inner == text && !strings.Contains(inner, "<") {
		return "", false
	}

	return html, true
}
