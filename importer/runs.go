package importer

import (
	"slices"
	"strings"

	sw "github.com/grahms/segmentweaver"
)

// Local modifier definition ids used on imported text runs.
const (
	linkDefID  = "link"
	colorDefID = "color"
)

// style is the inline formatting in effect while walking a source document.
type style struct {
	mods   []string
	href   string
	target string
	color  string
}

func (s style) with(mod string) style {
	if slices.Contains(s.mods, mod) {
		return s
	}
	s.mods = append(slices.Clone(s.mods), mod)
	return s
}

func (s style) withLink(href, target string) style {
	s.href, s.target = href, target
	return s
}

func (s style) withColor(hex string) style {
	s.color = hex
	return s
}

func (s style) equal(o style) bool {
	return slices.Equal(s.mods, o.mods) && s.href == o.href && s.target == o.target && s.color == o.color
}

// segment builds a text run. Links are the outermost modifier.
func (s style) segment(text string) sw.Segment {
	seg := textRun(text)
	var mods []string
	if s.href != "" {
		props := map[string]any{"href": s.href}
		if s.target != "" {
			props["target"] = s.target
		}
		seg.ModDefs = append(seg.ModDefs, sw.ModDef{ID: linkDefID, Type: sw.DefLink, Props: props})
		mods = append(mods, linkDefID)
	}
	if s.color != "" {
		seg.ModDefs = append(seg.ModDefs, sw.ModDef{ID: colorDefID, Type: sw.DefColor, Props: map[string]any{"hex": s.color}})
		mods = append(mods, colorDefID)
	}
	mods = append(mods, s.mods...)
	if len(mods) > 0 {
		seg.Mods = mods
	}
	return seg
}

// runs accumulates text runs, merging neighbours with the same style.
type runs struct {
	out    []sw.Segment
	styles []style
}

func (r *runs) add(text string, st style) {
	if text == "" {
		return
	}
	if n := len(r.out); n > 0 && r.styles[n-1].equal(st) {
		r.out[n-1].Props["text"] = r.out[n-1].Text() + text
		return
	}
	r.out = append(r.out, st.segment(text))
	r.styles = append(r.styles, st)
}

func (r *runs) empty() bool { return len(r.out) == 0 }

// trim drops leading and trailing whitespace of the whole run sequence and
// removes runs left empty.
func (r *runs) trim() []sw.Segment {
	if len(r.out) == 0 {
		return nil
	}
	first, last := r.out[0], r.out[len(r.out)-1]
	first.Props["text"] = strings.TrimLeft(first.Text(), " \t\n")
	last.Props["text"] = strings.TrimRight(last.Text(), " \t\n")
	out := make([]sw.Segment, 0, len(r.out))
	for _, seg := range r.out {
		if seg.Text() != "" {
			out = append(out, seg)
		}
	}
	return out
}
