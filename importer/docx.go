package importer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	sw "github.com/grahms/segmentweaver"
)

// FromDOCX converts the paragraphs of a Word document. Heading styles map to
// heading segments, justification to an alignment definition and run
// properties to modifiers. Tables and drawings are skipped.
func FromDOCX(r io.Reader) ([]sw.Segment, error) {
	// go-docx needs a ReaderAt and a size, so spool to a temp file.
	tmp, err := os.CreateTemp("", "segmentweaver-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	links := map[string]string{}
	_ = doc.RangeRelationships(func(rel *docx.Relationship) error {
		if strings.HasSuffix(rel.Type, "/hyperlink") {
			links[rel.ID] = rel.Target
		}
		return nil
	})

	out := []sw.Segment{}
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var rs runs
		for _, child := range para.Children {
			switch c := child.(type) {
			case *docx.Run:
				addRun(c, style{}, &rs)
			case *docx.Hyperlink:
				st := style{}
				if href := links[c.ID]; href != "" {
					st = st.withLink(href, "")
				}
				addRun(&c.Run, st, &rs)
			}
		}
		content := rs.trim()
		if len(content) == 0 {
			continue
		}
		seg := sw.Segment{Type: sw.TypeParagraph, Content: content}
		if lvl := docxHeadingLevel(para); lvl > 0 {
			seg.Type = fmt.Sprintf("heading%d", lvl)
		}
		if align := docxAlignment(para); align != "" {
			seg.Mods = []string{"align"}
			seg.ModDefs = []sw.ModDef{{ID: "align", Type: sw.DefAlignment, Props: map[string]any{"alignment": align}}}
		}
		out = append(out, seg)
	}
	return out, nil
}

func addRun(run *docx.Run, st style, rs *runs) {
	if p := run.RunProperties; p != nil {
		if p.Bold != nil {
			st = st.with(sw.ModBold)
		}
		if p.Italic != nil {
			st = st.with(sw.ModItalic)
		}
		if p.Underline != nil && p.Underline.Val != "none" {
			st = st.with(sw.ModUnderline)
		}
		if p.Strike != nil && p.Strike.Val != "false" && p.Strike.Val != "0" {
			st = st.with(sw.ModStrikethrough)
		}
		if p.VertAlign != nil {
			switch p.VertAlign.Val {
			case "superscript":
				st = st.with(sw.ModSuperscript)
			case "subscript":
				st = st.with(sw.ModSubscript)
			}
		}
		if p.Color != nil && len(p.Color.Val) == 6 {
			st = st.withColor("#" + strings.ToLower(p.Color.Val))
		}
	}
	found := false
	for _, rc := range run.Children {
		switch t := rc.(type) {
		case *docx.Text:
			rs.add(t.Text, st)
			found = true
		case *docx.Tab:
			rs.add("\t", st)
		case *docx.BarterRabbet:
			rs.add("\n", st)
		}
	}
	// Links written by go-docx keep their label in instrText.
	if !found && run.InstrText != "" && st.href != "" {
		rs.add(run.InstrText, st)
	}
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	switch style {
	case "title", "heading1":
		return 1
	case "heading2":
		return 2
	case "heading3":
		return 3
	case "heading4":
		return 4
	case "heading5":
		return 5
	case "heading6":
		return 6
	}
	return 0
}

func docxAlignment(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Justification == nil {
		return ""
	}
	switch para.Properties.Justification.Val {
	case "center":
		return sw.AlignCenter
	case "right", "end":
		return sw.AlignRight
	case "both", "distribute":
		return sw.AlignJustify
	case "left", "start":
		return sw.AlignLeft
	}
	return ""
}
