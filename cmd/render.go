package cmd

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer converts answer Markdown to styled terminal output.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
}

// newMarkdownRenderer creates a renderer with terminal-appropriate
// styling. Returns a nil-safe renderer; rendering degrades to plain
// text when initialization fails.
func newMarkdownRenderer() *markdownRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return &markdownRenderer{}
	}
	return &markdownRenderer{renderer: r}
}

// Render converts Markdown to styled output, falling back to the
// original text on failure.
func (m *markdownRenderer) Render(markdown string) string {
	if m == nil || m.renderer == nil {
		return markdown
	}
	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSuffix(rendered, "\n")
}
