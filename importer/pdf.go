package importer

import (
	"fmt"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	sw "github.com/grahms/segmentweaver"
)

// FromPDF extracts the plain text of a PDF, one paragraph per non-empty page.
func FromPDF(r io.Reader) ([]sw.Segment, error) {
	// ledongthuc/pdf reads from a file, so spool the input first.
	tmp, err := os.CreateTemp("", "segmentweaver-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return pageParagraphs(text), nil
}

func extractPDFText(path string) (text string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}

// pageParagraphs splits form-feed separated page text into paragraphs.
func pageParagraphs(text string) []sw.Segment {
	out := []sw.Segment{}
	for _, page := range strings.Split(text, "\f") {
		page = strings.TrimSpace(strings.ReplaceAll(page, "\r\n", "\n"))
		if page == "" {
			continue
		}
		out = append(out, paragraph(textRun(page)))
	}
	return out
}
