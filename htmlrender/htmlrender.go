// Package htmlrender renders segment documents into golang.org/x/net/html
// node trees.
package htmlrender

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	sw "github.com/grahms/segmentweaver"
)

// IndentStep is the width of one indent level, in pixels.
const IndentStep = 40

// NewRegistry returns serializers for the reference vocabulary. Units are
// *html.Node; a node of type html.DocumentNode is a fragment whose children
// are spliced into the parent.
func NewRegistry() *sw.Registry[*html.Node] {
	r := sw.NewRegistry[*html.Node]()

	r.HandleSegment(sw.TypeText, serializeText)
	r.HandleSegment(sw.TypeParagraph, block("p"))
	r.HandleSegment(sw.TypeQuote, block("blockquote"))
	r.HandleSegment(sw.TypeHorizontalRule, func(n *sw.Node[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
		return Element("hr"), nil
	})
	for lvl := 1; lvl <= 6; lvl++ {
		r.HandleSegment("heading"+strconv.Itoa(lvl), block("h"+strconv.Itoa(lvl)))
	}
	r.RegisterSegment(sw.SegmentFunc[*html.Node](serializeList),
		sw.TypeListBullet, sw.TypeListNumber,
		sw.TypeListUpperLetter, sw.TypeListLowerLetter,
		sw.TypeListUpperRoman, sw.TypeListLowerRoman)

	for mod, tag := range map[string]string{
		sw.ModBold:          "strong",
		sw.ModItalic:        "em",
		sw.ModUnderline:     "u",
		sw.ModStrikethrough: "s",
		sw.ModCode:          "code",
		sw.ModSuperscript:   "sup",
		sw.ModSubscript:     "sub",
	} {
		r.HandleModifier(mod, wrap(tag))
	}
	r.RegisterModifier(sw.ModifierFunc[*html.Node](applyCase),
		sw.ModUppercase, sw.ModLowercase, sw.ModCapitalize, sw.ModSentencecase)

	r.HandleModifier(sw.DefIndent, applyIndent)
	r.HandleModifier(sw.DefAlignment, applyAlignment)
	r.HandleModifier(sw.DefFont, applyFont)
	r.HandleModifier(sw.DefColor, applyColor("color"))
	r.HandleModifier(sw.DefHighlight, applyColor("background-color"))
	r.HandleModifier(sw.DefLink, applyLink)

	r.SetUnknownSegment(sw.SegmentFunc[*html.Node](unknownSegment))
	r.SetUnknownModifier(sw.ModifierFunc[*html.Node](unknownModifier))
	r.SetText(Text)
	r.SetHardBreak(func() *html.Node { return Element("br") })
	return r
}

// NewEngine returns an engine over NewRegistry.
func NewEngine(opts ...sw.Option) *sw.Engine[*html.Node] {
	return sw.NewEngine(NewRegistry(), opts...)
}

// Render renders a document to an HTML string.
func Render(segments []sw.Segment, opts ...sw.Option) (string, error) {
	units, err := NewEngine(opts...).Render(segments)
	if err != nil {
		return "", err
	}
	return RenderString(units)
}

// RenderString serializes units in order, skipping empty ones.
func RenderString(units []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, u := range units {
		if u == nil {
			continue
		}
		if err := html.Render(&buf, u); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}

// Element creates a detached element node.
func Element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}

// Text creates a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Fragment groups units without adding an element.
func Fragment(units ...*html.Node) *html.Node {
	f := &html.Node{Type: html.DocumentNode}
	for _, u := range units {
		Append(f, u)
	}
	return f
}

// Append adds child to parent. Nil children are skipped and fragments are
// spliced in.
func Append(parent, child *html.Node) {
	if child == nil {
		return
	}
	if child.Type == html.DocumentNode {
		for c := child.FirstChild; c != nil; {
			next := c.NextSibling
			child.RemoveChild(c)
			parent.AppendChild(c)
			c = next
		}
		return
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
}

func block(tag string) sw.SegmentFunc[*html.Node] {
	return func(n *sw.Node[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
		el := Element(tag)
		if n.ID != "" {
			el.Attr = append(el.Attr, html.Attribute{Key: "id", Val: n.ID})
		}
		if n.Segment.HasText() {
			units, err := e.TextUnits(n.Text())
			if err != nil {
				return nil, err
			}
			for _, u := range units {
				Append(el, u)
			}
		}
		for _, u := range n.Content {
			Append(el, u)
		}
		for _, u := range n.Children {
			Append(el, u)
		}
		return el, nil
	}
}

func serializeText(n *sw.Node[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	units, err := e.TextUnits(n.Text())
	if err != nil {
		return nil, err
	}
	if len(units) == 1 && len(n.Content) == 0 && len(n.Children) == 0 {
		return units[0], nil
	}
	f := Fragment(units...)
	for _, u := range n.Content {
		Append(f, u)
	}
	for _, u := range n.Children {
		Append(f, u)
	}
	return f, nil
}

var listTypes = map[sw.ListStyle]string{
	sw.ListDecimal:     "1",
	sw.ListUpperLetter: "A",
	sw.ListLowerLetter: "a",
	sw.ListUpperRoman:  "I",
	sw.ListLowerRoman:  "i",
}

func serializeList(n *sw.Node[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	style := sw.ListStyleOf(n.Type)
	var list *html.Node
	if style == sw.ListBullet {
		list = Element("ul")
	} else {
		list = Element("ol")
		if start := n.Segment.Start(); start != 1 {
			list.Attr = append(list.Attr, html.Attribute{Key: "start", Val: strconv.Itoa(start)})
		}
		list.Attr = append(list.Attr, html.Attribute{Key: "type", Val: listTypes[style]})
	}
	for _, item := range n.Content {
		if item == nil {
			continue
		}
		if item.Type == html.ElementNode && item.Data == "li" {
			Append(list, item)
			continue
		}
		li := Element("li")
		Append(li, item)
		Append(list, li)
	}
	for _, u := range n.Children {
		Append(list, u)
	}
	return list, nil
}

func wrap(tag string) func(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	return func(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
		if m.Inner == nil {
			return nil, nil
		}
		el := Element(tag)
		Append(el, m.Inner)
		return el, nil
	}
}

func applyCase(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	caser, ok := sw.Caser(m.Modifier.Type)
	if !ok || m.Inner == nil {
		return m.Inner, nil
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			n.Data = caser(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(m.Inner)
	return m.Inner, nil
}

// styled adds a CSS declaration to an element, or wraps anything else in a
// span carrying it.
func styled(inner *html.Node, decl string) *html.Node {
	if inner == nil {
		return nil
	}
	if inner.Type != html.ElementNode {
		span := Element("span")
		Append(span, inner)
		inner = span
	}
	for i, a := range inner.Attr {
		if a.Key == "style" {
			inner.Attr[i].Val = strings.TrimSuffix(a.Val, ";") + ";" + decl
			return inner
		}
	}
	inner.Attr = append(inner.Attr, html.Attribute{Key: "style", Val: decl})
	return inner
}

func applyIndent(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	in, err := sw.DecodeModifier[sw.Indent](m.Modifier)
	if err != nil {
		return nil, err
	}
	decl := fmt.Sprintf("margin-left:%dpx", in.Indents*IndentStep)
	if in.HangingIndent {
		decl += fmt.Sprintf(";padding-left:%dpx;text-indent:-%dpx", IndentStep, IndentStep)
	}
	return styled(m.Inner, decl), nil
}

func applyAlignment(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	a, err := sw.DecodeModifier[sw.Alignment](m.Modifier)
	if err != nil {
		return nil, err
	}
	if a.Alignment == "" {
		return m.Inner, nil
	}
	return styled(m.Inner, "text-align:"+a.Alignment), nil
}

func applyFont(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	f, err := sw.DecodeModifier[sw.Font](m.Modifier)
	if err != nil {
		return nil, err
	}
	var decls []string
	if f.FontFace != "" {
		decls = append(decls, "font-family:"+f.FontFace)
	}
	if f.FontSize > 0 {
		decls = append(decls, "font-size:"+strconv.FormatFloat(f.FontSize, 'f', -1, 64)+"pt")
	}
	if len(decls) == 0 {
		return m.Inner, nil
	}
	return styled(m.Inner, strings.Join(decls, ";")), nil
}

func applyColor(property string) func(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	return func(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
		c, err := sw.DecodeModifier[sw.Color](m.Modifier)
		if err != nil {
			return nil, err
		}
		hex, ok := c.HexString()
		if !ok {
			return m.Inner, nil
		}
		return styled(m.Inner, property+":"+hex), nil
	}
}

func applyLink(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	l, err := sw.DecodeModifier[sw.Link](m.Modifier)
	if err != nil {
		return nil, err
	}
	if m.Inner == nil {
		return nil, nil
	}
	if !SafeHref(l.Href) {
		return m.Inner, nil
	}
	a := Element("a", html.Attribute{Key: "href", Val: l.Href})
	if l.Target != "" {
		a.Attr = append(a.Attr, html.Attribute{Key: "target", Val: l.Target})
		if l.Target == "_blank" {
			a.Attr = append(a.Attr, html.Attribute{Key: "rel", Val: "noopener noreferrer"})
		}
	}
	Append(a, m.Inner)
	return a, nil
}

// SafeHref reports whether href may be emitted as a link: relative
// references and the http, https, mailto and tel schemes.
func SafeHref(href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return true
	}
	return false
}

func unknownSegment(n *sw.Node[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	div := Element("div", html.Attribute{Key: "data-unknown-type", Val: n.Type})
	if n.Segment.HasText() {
		Append(div, Text(n.Text()))
	}
	for _, u := range n.Content {
		Append(div, u)
	}
	for _, u := range n.Children {
		Append(div, u)
	}
	return div, nil
}

func unknownModifier(m *sw.Mark[*html.Node], e *sw.Engine[*html.Node]) (*html.Node, error) {
	if m.Inner == nil {
		return nil, nil
	}
	span := Element("span", html.Attribute{Key: "data-unknown-mod", Val: m.Modifier.Ref})
	Append(span, m.Inner)
	return span, nil
}
