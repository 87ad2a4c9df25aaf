package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	sw "github.com/grahms/segmentweaver"
)

var inlineMods = map[atom.Atom]string{
	atom.B:      sw.ModBold,
	atom.Strong: sw.ModBold,
	atom.I:      sw.ModItalic,
	atom.Em:     sw.ModItalic,
	atom.U:      sw.ModUnderline,
	atom.S:      sw.ModStrikethrough,
	atom.Strike: sw.ModStrikethrough,
	atom.Del:    sw.ModStrikethrough,
	atom.Code:   sw.ModCode,
	atom.Kbd:    sw.ModCode,
	atom.Sup:    sw.ModSuperscript,
	atom.Sub:    sw.ModSubscript,
}

var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// FromHTML converts an HTML document or fragment into segments. Unsupported
// block elements are flattened into their content.
func FromHTML(r io.Reader) ([]sw.Segment, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	c := &htmlConverter{}
	c.blocks(doc)
	c.flush()
	return c.out, nil
}

type htmlConverter struct {
	out     []sw.Segment
	pending runs
}

// flush turns loose inline content into a paragraph.
func (c *htmlConverter) flush() {
	if c.out == nil {
		c.out = []sw.Segment{}
	}
	if c.pending.empty() {
		return
	}
	if content := c.pending.trim(); len(content) > 0 {
		c.out = append(c.out, paragraph(content...))
	}
	c.pending = runs{}
}

func (c *htmlConverter) emit(seg sw.Segment) {
	c.flush()
	c.out = append(c.out, seg)
}

func (c *htmlConverter) blocks(parent *html.Node) {
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.TextNode:
			c.pending.add(collapse(n.Data), style{})
		case html.ElementNode:
			c.element(n)
		case html.DocumentNode:
			c.blocks(n)
		}
	}
}

func (c *htmlConverter) element(n *html.Node) {
	if skipped[n.DataAtom] {
		return
	}
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		c.emit(sw.Segment{Type: "heading" + n.Data[1:], Content: inlines(n)})
	case atom.P:
		c.emit(paragraph(inlines(n)...))
	case atom.Pre:
		code := strings.TrimRight(textOf(n), "\n")
		c.emit(paragraph(style{}.with(sw.ModCode).segment(code)))
	case atom.Hr:
		c.emit(sw.Segment{Type: sw.TypeHorizontalRule})
	case atom.Blockquote:
		c.emit(sw.Segment{Type: sw.TypeQuote, Content: nested(n)})
	case atom.Ul, atom.Ol:
		c.emit(list(n))
	case atom.Br:
		c.pending.add("\n", style{})
	default:
		if _, ok := inlineMods[n.DataAtom]; ok || n.DataAtom == atom.A || n.DataAtom == atom.Span {
			inline(n, style{}, &c.pending)
			return
		}
		c.blocks(n)
	}
}

// nested converts the children of n as a separate block sequence.
func nested(n *html.Node) []sw.Segment {
	c := &htmlConverter{}
	c.blocks(n)
	c.flush()
	return c.out
}

func list(n *html.Node) sw.Segment {
	seg := sw.Segment{Type: sw.TypeListBullet}
	if n.DataAtom == atom.Ol {
		seg.Type = orderedType(attr(n, "type"))
		if start, err := strconv.Atoi(attr(n, "start")); err == nil {
			seg.Props = map[string]any{"start": start}
		}
	}
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		seg.Content = append(seg.Content, listItem(li))
	}
	return seg
}

func orderedType(t string) string {
	switch t {
	case "A":
		return sw.TypeListUpperLetter
	case "a":
		return sw.TypeListLowerLetter
	case "I":
		return sw.TypeListUpperRoman
	case "i":
		return sw.TypeListLowerRoman
	}
	return sw.TypeListNumber
}

// listItem keeps the inline content of an li; nested lists become children.
func listItem(li *html.Node) sw.Segment {
	p := paragraph()
	var r runs
	for n := li.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Ul || n.DataAtom == atom.Ol) {
			p.Children = append(p.Children, list(n))
			continue
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.P && !r.empty() {
			r.add("\n", style{})
		}
		inlineNode(n, style{}, &r)
	}
	p.Content = r.trim()
	return p
}

func inlines(n *html.Node) []sw.Segment {
	var r runs
	inline(n, style{}, &r)
	return r.trim()
}

func inline(parent *html.Node, st style, r *runs) {
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		inlineNode(n, st, r)
	}
}

func inlineNode(n *html.Node, st style, r *runs) {
	switch n.Type {
	case html.TextNode:
		r.add(collapse(n.Data), st)
		return
	case html.ElementNode:
	default:
		return
	}
	if skipped[n.DataAtom] {
		return
	}
	if mod, ok := inlineMods[n.DataAtom]; ok {
		st = st.with(mod)
	}
	switch n.DataAtom {
	case atom.Br:
		r.add("\n", st)
		return
	case atom.A:
		if href := attr(n, "href"); href != "" {
			st = st.withLink(href, attr(n, "target"))
		}
	}
	inline(n, st, r)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// collapse folds runs of HTML whitespace into single spaces.
func collapse(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			space = true
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteRune(r)
	}
	if space {
		sb.WriteByte(' ')
	}
	return sb.String()
}
