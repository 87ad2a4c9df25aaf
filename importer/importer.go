// Package importer converts documents in other formats into segment trees
// built from the reference vocabulary.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	sw "github.com/grahms/segmentweaver"
)

// Importer converts raw document bytes into segments.
type Importer interface {
	Import(r io.Reader) ([]sw.Segment, error)
}

// ImporterFunc adapts a function to the Importer interface.
type ImporterFunc func(r io.Reader) ([]sw.Segment, error)

func (f ImporterFunc) Import(r io.Reader) ([]sw.Segment, error) { return f(r) }

// SupportedExtensions lists the file extensions ForFile can handle.
var SupportedExtensions = map[string]bool{
	".json":     true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the importer for a filename, chosen by extension.
func ForFile(filename string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return ImporterFunc(sw.DecodeReader), nil
	case ".txt":
		return ImporterFunc(FromText), nil
	case ".md", ".markdown":
		return ImporterFunc(FromMarkdown), nil
	case ".html", ".htm":
		return ImporterFunc(FromHTML), nil
	case ".pdf":
		return ImporterFunc(FromPDF), nil
	case ".docx":
		return ImporterFunc(FromDOCX), nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// ForFormat returns the importer for a format name such as "markdown" or a
// bare extension such as "md".
func ForFormat(format string) (Importer, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "markdown":
		return ForFile("x.md")
	case "text", "plain":
		return ForFile("x.txt")
	}
	return ForFile("x." + strings.TrimPrefix(format, "."))
}

// IsSupportedExtension reports whether ForFile handles the file's extension.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// FromText makes one paragraph per block of text separated by blank lines.
// Single line breaks inside a block are kept.
func FromText(r io.Reader) ([]sw.Segment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return paragraphs(string(data)), nil
}

func paragraphs(text string) []sw.Segment {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	out := []sw.Segment{}
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		out = append(out, paragraph(textRun(block)))
	}
	return out
}

func paragraph(content ...sw.Segment) sw.Segment {
	return sw.Segment{Type: sw.TypeParagraph, Content: content}
}

func textRun(text string) sw.Segment {
	return sw.Segment{Type: sw.TypeText, Props: map[string]any{"text": text}}
}
