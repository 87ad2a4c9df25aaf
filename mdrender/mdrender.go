// Package mdrender renders segment documents as Markdown, going through the
// HTML backend.
package mdrender

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/glamour"
	"golang.org/x/net/html"

	sw "github.com/grahms/segmentweaver"
	"github.com/grahms/segmentweaver/htmlrender"
)

// Convert turns rendered HTML units into Markdown.
func Convert(units []*html.Node) (string, error) {
	root := htmlrender.Element("div")
	for _, u := range units {
		htmlrender.Append(root, u)
	}
	md, err := htmltomarkdown.ConvertNode(root)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return strings.TrimSpace(string(md)), nil
}

// Render renders a document to Markdown.
func Render(segments []sw.Segment, opts ...sw.Option) (string, error) {
	units, err := htmlrender.NewEngine(opts...).Render(segments)
	if err != nil {
		return "", err
	}
	return Convert(units)
}

// Pretty renders Markdown for a terminal. An empty style detects the
// terminal background; "notty" gives plain output.
func Pretty(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if style != "" {
		opts = []glamour.TermRendererOption{glamour.WithStandardStyle(style)}
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(markdown)
}
