package importer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	sw "github.com/grahms/segmentweaver"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

// FromMarkdown converts CommonMark (plus ~~strikethrough~~) into segments.
func FromMarkdown(r io.Reader) ([]sw.Segment, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	doc := markdown.Parser().Parse(text.NewReader(src))
	c := &mdConverter{src: src}
	return c.blocks(doc), nil
}

type mdConverter struct {
	src []byte
}

func (c *mdConverter) blocks(parent ast.Node) []sw.Segment {
	out := []sw.Segment{}
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if seg, ok := c.block(n); ok {
			out = append(out, seg)
		}
	}
	return out
}

func (c *mdConverter) block(n ast.Node) (sw.Segment, bool) {
	switch n := n.(type) {
	case *ast.Heading:
		lvl := min(max(n.Level, 1), 6)
		return sw.Segment{Type: fmt.Sprintf("heading%d", lvl), Content: c.inlines(n)}, true
	case *ast.Paragraph, *ast.TextBlock:
		return paragraph(c.inlines(n)...), true
	case *ast.ThematicBreak:
		return sw.Segment{Type: sw.TypeHorizontalRule}, true
	case *ast.Blockquote:
		return sw.Segment{Type: sw.TypeQuote, Content: c.blocks(n)}, true
	case *ast.List:
		return c.list(n), true
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		code := strings.TrimRight(c.lines(n), "\n")
		return paragraph(style{}.with(sw.ModCode).segment(code)), true
	case *ast.HTMLBlock:
		return sw.Segment{}, false
	}
	if n.HasChildren() {
		return sw.Segment{Type: sw.TypeParagraph, Children: c.blocks(n)}, true
	}
	return sw.Segment{}, false
}

func (c *mdConverter) list(n *ast.List) sw.Segment {
	seg := sw.Segment{Type: sw.TypeListBullet}
	if n.IsOrdered() {
		seg.Type = sw.TypeListNumber
		seg.Props = map[string]any{"start": n.Start}
	}
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		seg.Content = append(seg.Content, c.listItem(item))
	}
	return seg
}

// listItem flattens the text blocks of an item into one paragraph; nested
// lists become its children.
func (c *mdConverter) listItem(item ast.Node) sw.Segment {
	p := paragraph()
	for n := item.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.(type) {
		case *ast.List, *ast.Blockquote, *ast.FencedCodeBlock, *ast.CodeBlock:
			if seg, ok := c.block(n); ok {
				p.Children = append(p.Children, seg)
			}
		default:
			if len(p.Content) > 0 {
				p.Content = append(p.Content, textRun("\n"))
			}
			p.Content = append(p.Content, c.inlines(n)...)
		}
	}
	return p
}

func (c *mdConverter) inlines(n ast.Node) []sw.Segment {
	var r runs
	c.inline(n, style{}, &r)
	return r.trim()
}

func (c *mdConverter) inline(parent ast.Node, st style, r *runs) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch x := n.(type) {
		case *ast.Text:
			r.add(string(x.Segment.Value(c.src)), st)
			switch {
			case x.HardLineBreak():
				r.add("\n", st)
			case x.SoftLineBreak():
				r.add(" ", st)
			}
		case *ast.String:
			r.add(string(x.Value), st)
		case *ast.CodeSpan:
			r.add(c.plain(x), st.with(sw.ModCode))
		case *ast.Emphasis:
			mod := sw.ModItalic
			if x.Level >= 2 {
				mod = sw.ModBold
			}
			c.inline(x, st.with(mod), r)
		case *east.Strikethrough:
			c.inline(x, st.with(sw.ModStrikethrough), r)
		case *ast.Link:
			c.inline(x, st.withLink(string(x.Destination), ""), r)
		case *ast.AutoLink:
			r.add(string(x.Label(c.src)), st.withLink(string(x.URL(c.src)), ""))
		case *ast.Image:
			r.add(c.plain(x), st)
		case *ast.RawHTML:
		default:
			c.inline(x, st, r)
		}
	}
}

// plain returns the concatenated text beneath n.
func (c *mdConverter) plain(n ast.Node) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch x := n.(type) {
		case *ast.Text:
			buf.Write(x.Segment.Value(c.src))
		case *ast.String:
			buf.Write(x.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func (c *mdConverter) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(c.src))
	}
	return buf.String()
}
