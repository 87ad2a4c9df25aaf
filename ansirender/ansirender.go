// Package ansirender renders segment documents as terminal text styled with
// ANSI escape sequences.
package ansirender

import (
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	sw "github.com/grahms/segmentweaver"
)

// Options tune the terminal output.
type Options struct {
	Profile termenv.Profile
	// RuleWidth is the width of a horizontal rule in cells.
	RuleWidth int
	// IndentWidth is the number of spaces per indent level.
	IndentWidth int
}

// DefaultOptions detects the colour profile of stdout.
func DefaultOptions() Options {
	return Options{Profile: termenv.ColorProfile(), RuleWidth: 40, IndentWidth: 2}
}

type renderer struct {
	opts Options
}

// NewRegistry returns serializers for the reference vocabulary producing
// styled strings. With the Ascii profile the output is plain text.
func NewRegistry(opts Options) *sw.Registry[string] {
	if opts.RuleWidth <= 0 {
		opts.RuleWidth = 40
	}
	if opts.IndentWidth <= 0 {
		opts.IndentWidth = 2
	}
	r := &renderer{opts: opts}
	reg := sw.NewRegistry[string]()

	reg.HandleSegment(sw.TypeText, r.text)
	reg.HandleSegment(sw.TypeParagraph, r.paragraph)
	reg.HandleSegment(sw.TypeQuote, r.quote)
	reg.HandleSegment(sw.TypeHorizontalRule, r.rule)
	for lvl := 1; lvl <= 6; lvl++ {
		reg.HandleSegment("heading"+strconv.Itoa(lvl), r.heading)
	}
	reg.RegisterSegment(sw.SegmentFunc[string](r.list),
		sw.TypeListBullet, sw.TypeListNumber,
		sw.TypeListUpperLetter, sw.TypeListLowerLetter,
		sw.TypeListUpperRoman, sw.TypeListLowerRoman)

	reg.HandleModifier(sw.ModBold, r.style(termenv.Style.Bold))
	reg.HandleModifier(sw.ModItalic, r.style(termenv.Style.Italic))
	reg.HandleModifier(sw.ModUnderline, r.style(termenv.Style.Underline))
	reg.HandleModifier(sw.ModStrikethrough, r.style(termenv.Style.CrossOut))
	reg.HandleModifier(sw.ModCode, r.style(termenv.Style.Reverse))
	reg.RegisterModifier(sw.ModifierFunc[string](passThrough),
		sw.ModSuperscript, sw.ModSubscript, sw.DefFont, sw.DefAlignment)
	reg.RegisterModifier(sw.ModifierFunc[string](applyCase),
		sw.ModUppercase, sw.ModLowercase, sw.ModCapitalize, sw.ModSentencecase)
	reg.HandleModifier(sw.DefColor, r.color(termenv.Style.Foreground))
	reg.HandleModifier(sw.DefHighlight, r.color(termenv.Style.Background))
	reg.HandleModifier(sw.DefLink, r.link)
	reg.HandleModifier(sw.DefIndent, r.indent)

	reg.SetUnknownSegment(sw.SegmentFunc[string](r.unknown))
	reg.SetUnknownModifier(sw.ModifierFunc[string](passThrough))
	reg.SetText(func(s string) string { return s })
	reg.SetHardBreak(func() string { return "\n" })
	return reg
}

// NewEngine returns an engine over NewRegistry.
func NewEngine(o Options, opts ...sw.Option) *sw.Engine[string] {
	return sw.NewEngine(NewRegistry(o), opts...)
}

// Render renders a document; top-level blocks are separated by a blank line.
func Render(segments []sw.Segment, o Options, opts ...sw.Option) (string, error) {
	e := NewEngine(o, opts...)
	units, err := e.Render(segments)
	if err != nil {
		return "", err
	}
	sep := "\n\n"
	if e.Policy().RenderPlainText {
		sep = ""
	}
	return Join(units, sep), nil
}

// Join joins the non-empty units with sep.
func Join(units []string, sep string) string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		if u != "" {
			out = append(out, u)
		}
	}
	return strings.Join(out, sep)
}

func (r *renderer) text(n *sw.Node[string], e *sw.Engine[string]) (string, error) {
	units, err := e.TextUnits(n.Text())
	if err != nil {
		return "", err
	}
	return strings.Join(units, "") + strings.Join(n.Content, "") + Join(n.Children, "\n"), nil
}

// inline renders the own text and content runs of a block, followed by its
// children on their own lines.
func (r *renderer) inline(n *sw.Node[string], e *sw.Engine[string]) (string, error) {
	var sb strings.Builder
	if n.Segment.HasText() {
		units, err := e.TextUnits(n.Text())
		if err != nil {
			return "", err
		}
		sb.WriteString(strings.Join(units, ""))
	}
	sb.WriteString(strings.Join(n.Content, ""))
	if children := Join(n.Children, "\n"); children != "" {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(children)
	}
	return sb.String(), nil
}

func (r *renderer) paragraph(n *sw.Node[string], e *sw.Engine[string]) (string, error) {
	return r.inline(n, e)
}

func (r *renderer) heading(n *sw.Node[string], e *sw.Engine[string]) (string, error) {
	body, err := r.inline(n, e)
	if err != nil {
		return "", err
	}
	lvl := sw.HeadingLevel(n.Type)
	s := r.opts.Profile.String(strings.Repeat("#", lvl) + " " + body).Bold()
	if lvl == 1 {
		s = s.Underline()
	}
	return s.String(), nil
}

func (r *renderer) quote(n *sw.Node[string], e *sw.Engine[string]) (string, error) {
	body, err := r.inline(n, e)
	if err != nil {
		return "", err
	}
	return prefixLines(body, "│ ", "│ "), nil
}

func (r *renderer) rule(n *sw.Node[string], e *sw.Engine[string]) (string, error) {
	return r.opts.Profile.String(strings.Repeat("─", r.opts.RuleWidth)).Faint().String(), nil
}

func (r *renderer) list(n *sw.Node[string], e *sw.Engine[string]) (string, error) {
	style := sw.ListStyleOf(n.Type)
	start := n.Segment.Start()
	var lines []string
	i := 0
	for _, item := range n.Content {
		if item == "" {
			continue
		}
		marker := style.Marker(start + i)
		if style != sw.ListBullet {
			marker += "."
		}
		marker += " "
		lines = append(lines, prefixLines(item, marker, strings.Repeat(" ", len([]rune(marker)))))
		i++
	}
	if children := Join(n.Children, "\n"); children != "" {
		lines = append(lines, children)
	}
	return strings.Join(lines, "\n"), nil
}

func (r *renderer) unknown(n *sw.Node[string], e *sw.Engine[string]) (string, error) {
	body, err := r.inline(n, e)
	if err != nil {
		return "", err
	}
	label := r.opts.Profile.String("[" + n.Type + "]").Faint().String()
	if body == "" {
		return label, nil
	}
	return label + " " + body, nil
}

func (r *renderer) style(apply func(termenv.Style) termenv.Style) func(m *sw.Mark[string], e *sw.Engine[string]) (string, error) {
	return func(m *sw.Mark[string], e *sw.Engine[string]) (string, error) {
		if m.Inner == "" {
			return "", nil
		}
		return apply(r.opts.Profile.String(m.Inner)).String(), nil
	}
}

func (r *renderer) color(apply func(termenv.Style, termenv.Color) termenv.Style) func(m *sw.Mark[string], e *sw.Engine[string]) (string, error) {
	return func(m *sw.Mark[string], e *sw.Engine[string]) (string, error) {
		c, err := sw.DecodeModifier[sw.Color](m.Modifier)
		if err != nil {
			return "", err
		}
		hex, ok := c.HexString()
		if !ok || m.Inner == "" {
			return m.Inner, nil
		}
		return apply(r.opts.Profile.String(m.Inner), r.opts.Profile.Color(hex)).String(), nil
	}
}

func (r *renderer) link(m *sw.Mark[string], e *sw.Engine[string]) (string, error) {
	l, err := sw.DecodeModifier[sw.Link](m.Modifier)
	if err != nil {
		return "", err
	}
	if l.Href == "" || m.Inner == "" {
		return m.Inner, nil
	}
	if r.opts.Profile == termenv.Ascii {
		return m.Inner + " (" + l.Href + ")", nil
	}
	return termenv.Hyperlink(l.Href, m.Inner), nil
}

func (r *renderer) indent(m *sw.Mark[string], e *sw.Engine[string]) (string, error) {
	in, err := sw.DecodeModifier[sw.Indent](m.Modifier)
	if err != nil {
		return "", err
	}
	if in.Indents <= 0 {
		return m.Inner, nil
	}
	pad := strings.Repeat(" ", in.Indents*r.opts.IndentWidth)
	if in.HangingIndent {
		return prefixLines(m.Inner, "", pad), nil
	}
	return prefixLines(m.Inner, pad, pad), nil
}

func passThrough(m *sw.Mark[string], e *sw.Engine[string]) (string, error) {
	return m.Inner, nil
}

func applyCase(m *sw.Mark[string], e *sw.Engine[string]) (string, error) {
	caser, ok := sw.Caser(m.Modifier.Type)
	if !ok {
		return m.Inner, nil
	}
	return mapText(m.Inner, caser), nil
}

func prefixLines(s, first, rest string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = first + lines[i]
		} else {
			lines[i] = rest + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// mapText applies fn to the printable runs of s, leaving CSI and OSC escape
// sequences untouched.
func mapText(s string, fn func(string) string) string {
	var sb strings.Builder
	text := 0
	flush := func(end int) {
		if end > text {
			sb.WriteString(fn(s[text:end]))
		}
	}
	for i := 0; i < len(s); {
		if s[i] != '\x1b' || i+1 >= len(s) {
			i++
			continue
		}
		flush(i)
		end := escapeEnd(s, i)
		sb.WriteString(s[i:end])
		i = end
		text = end
	}
	flush(len(s))
	return sb.String()
}

// escapeEnd returns the index just past the escape sequence starting at i.
func escapeEnd(s string, i int) int {
	switch s[i+1] {
	case '[':
		for j := i + 2; j < len(s); j++ {
			if s[j] >= 0x40 && s[j] <= 0x7e {
				return j + 1
			}
		}
	case ']':
		for j := i + 2; j < len(s); j++ {
			if s[j] == '\a' {
				return j + 1
			}
			if s[j] == '\x1b' && j+1 < len(s) && s[j+1] == '\\' {
				return j + 2
			}
		}
	default:
		return i + 2
	}
	return len(s)
}
