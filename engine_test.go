package segmentweaver

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder keeps every node handed to a serializer.
type recorder struct{ nodes []*Node[string] }

func (r *recorder) record(n *Node[string]) { r.nodes = append(r.nodes, n) }

func (r *recorder) byType(t string) []*Node[string] {
	var out []*Node[string]
	for _, n := range r.nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func wrapTag(tag string) func(n *Node[string], e *Engine[string]) (string, error) {
	return func(n *Node[string], e *Engine[string]) (string, error) {
		return "<" + tag + ">" + strings.Join(n.Content, "") + strings.Join(n.Children, "") + "</" + tag + ">", nil
	}
}

func newStringRegistry(rec *recorder) *Registry[string] {
	reg := NewRegistry[string]()
	reg.HandleSegment(TypeText, func(n *Node[string], e *Engine[string]) (string, error) {
		if rec != nil {
			rec.record(n)
		}
		return n.Text(), nil
	})
	reg.HandleSegment(TypeParagraph, func(n *Node[string], e *Engine[string]) (string, error) {
		if rec != nil {
			rec.record(n)
		}
		return wrapTag("p")(n, e)
	})
	list := func(n *Node[string], e *Engine[string]) (string, error) {
		if rec != nil {
			rec.record(n)
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "<ol start=%d type=%s>", n.Segment.Start(), n.Type)
		for _, item := range n.Content {
			sb.WriteString("<li>" + item + "</li>")
		}
		sb.WriteString("</ol>")
		return sb.String(), nil
	}
	reg.RegisterSegment(SegmentFunc[string](list), TypeListNumber, TypeListLowerLetter)
	reg.HandleModifier(ModBold, func(m *Mark[string], e *Engine[string]) (string, error) {
		return "<b>" + m.Inner + "</b>", nil
	})
	reg.HandleModifier(ModItalic, func(m *Mark[string], e *Engine[string]) (string, error) {
		return "<i>" + m.Inner + "</i>", nil
	})
	reg.HandleModifier(DefLink, func(m *Mark[string], e *Engine[string]) (string, error) {
		link, err := DecodeModifier[Link](m.Modifier)
		if err != nil {
			return "", err
		}
		return `<a href="` + link.Href + `">` + m.Inner + "</a>", nil
	})
	reg.SetText(func(s string) string { return s })
	reg.SetHardBreak(func() string { return "<br>" })
	return reg
}

func text(s string, mods ...string) Segment {
	return Segment{Type: TypeText, Props: map[string]any{"text": s}, Mods: mods}
}

func paragraph(content ...Segment) Segment {
	return Segment{Type: TypeParagraph, Content: content}
}

func Test_Engine(t *testing.T) {
	t.Run("should render one unit per top-level segment in order", func(t *testing.T) {
		engine := NewEngine(newStringRegistry(nil))
		out, err := engine.Render([]Segment{
			paragraph(text("one")),
			paragraph(text("two"), text(" and "), text("three")),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"<p>one</p>", "<p>two and three</p>"}, out)
	})

	t.Run("should return an empty slice for an empty document", func(t *testing.T) {
		engine := NewEngine(newStringRegistry(nil))
		out, err := engine.Render(nil)
		require.NoError(t, err)
		assert.NotNil(t, out)
		assert.Len(t, out, 0)
	})

	t.Run("should apply the first modifier outermost", func(t *testing.T) {
		engine := NewEngine(newStringRegistry(nil))
		out, err := engine.Render([]Segment{text("x", ModBold, ModItalic)})
		require.NoError(t, err)
		assert.Equal(t, []string{"<b><i>x</i></b>"}, out)

		out, err = engine.Render([]Segment{text("x", ModItalic, ModBold)})
		require.NoError(t, err)
		assert.Equal(t, []string{"<i><b>x</b></i>"}, out)
	})

	t.Run("should resolve modifier definitions local to the segment", func(t *testing.T) {
		seg := text("docs", "l1", ModBold)
		seg.ModDefs = []ModDef{{ID: "l1", Type: DefLink, Props: map[string]any{"href": "https://example.com"}}}
		engine := NewEngine(newStringRegistry(nil))
		out, err := engine.Render([]Segment{seg})
		require.NoError(t, err)
		assert.Equal(t, []string{`<a href="https://example.com"><b>docs</b></a>`}, out)
	})

	t.Run("should not inherit modifier definitions from ancestors", func(t *testing.T) {
		p := paragraph(text("child", "l1"))
		p.ModDefs = []ModDef{{ID: "l1", Type: DefLink, Props: map[string]any{"href": "/x"}}}
		var dropped []error
		engine := NewEngine(newStringRegistry(nil), WithErrorHandler(func(err error) { dropped = append(dropped, err) }))
		out, err := engine.Render([]Segment{p})
		require.NoError(t, err)
		assert.Equal(t, []string{"<p>child</p>"}, out)
		require.Len(t, dropped, 1)
		assert.ErrorIs(t, dropped[0], ErrUnresolvedModifier)
	})

	t.Run("should preserve unknown properties for serializers", func(t *testing.T) {
		rec := &recorder{}
		engine := NewEngine(newStringRegistry(rec))
		seg := text("hi")
		seg.Props["foo"] = "bar"
		_, err := engine.Render([]Segment{seg})
		require.NoError(t, err)
		require.Len(t, rec.nodes, 1)
		foo, ok := rec.nodes[0].Prop("foo")
		require.True(t, ok)
		assert.Equal(t, "bar", foo)
	})

	t.Run("should render a numbered list with a nested sub-list", func(t *testing.T) {
		doc := `[{
			"type": "listnumber", "start": 5,
			"content": [
				{"type": "paragraph", "content": [{"type": "text", "text": "first"}]},
				{"type": "paragraph", "content": [{"type": "text", "text": "second"}],
				 "children": [{
					"type": "listlowerletter",
					"content": [
						{"type": "paragraph", "content": [{"type": "text", "text": "a"}]},
						{"type": "paragraph", "content": [{"type": "text", "text": "b"}]}
					]
				 }]}
			]
		}]`
		segs, err := Decode([]byte(doc))
		require.NoError(t, err)

		rec := &recorder{}
		engine := NewEngine(newStringRegistry(rec))
		out, err := engine.Render(segs)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t,
			"<ol start=5 type=listnumber><li><p>first</p></li><li><p>second<ol start=1 type=listlowerletter><li><p>a</p></li><li><p>b</p></li></ol></p></li></ol>",
			out[0])

		outer := rec.byType(TypeListNumber)
		require.Len(t, outer, 1)
		assert.Len(t, outer[0].Content, 2)
		inner := rec.byType(TypeListLowerLetter)
		require.Len(t, inner, 1)
		assert.Len(t, inner[0].Content, 2)
		assert.Equal(t, "[0].content[1].children[0]", inner[0].Path.String())
	})

	t.Run("should visit content before children", func(t *testing.T) {
		rec := &recorder{}
		engine := NewEngine(newStringRegistry(rec))
		p := paragraph(text("c"))
		p.Children = []Segment{text("k")}
		_, err := engine.Render([]Segment{p})
		require.NoError(t, err)
		texts := rec.byType(TypeText)
		require.Len(t, texts, 2)
		assert.Equal(t, "c", texts[0].Text())
		assert.Equal(t, "k", texts[1].Text())
	})

	t.Run("should wrap serializer errors with the node location", func(t *testing.T) {
		reg := newStringRegistry(nil)
		boom := errors.New("boom")
		reg.HandleSegment("exploding", func(n *Node[string], e *Engine[string]) (string, error) {
			return "", boom
		})
		engine := NewEngine(reg)
		_, err := engine.Render([]Segment{paragraph(Segment{ID: "x1", Type: "exploding"})})
		require.Error(t, err)
		var serr *SerializerError
		require.ErrorAs(t, err, &serr)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "x1", serr.ID)
		assert.Equal(t, "[0].content[0]", serr.Path.String())
	})

	t.Run("should let serializers render nested documents under the same policy", func(t *testing.T) {
		reg := newStringRegistry(nil)
		reg.HandleSegment("embed", func(n *Node[string], e *Engine[string]) (string, error) {
			out, err := e.Render([]Segment{{Type: "not-a-real-type"}})
			if err != nil {
				return "", err
			}
			return strings.Join(out, ""), nil
		})
		engine := NewEngine(reg, WithErrorOnUnknowns(true))
		_, err := engine.Render([]Segment{{Type: "embed"}})
		require.Error(t, err)
		var unknown *UnknownSegmentTypeError
		assert.ErrorAs(t, err, &unknown)
		var serr *SerializerError
		assert.False(t, errors.As(err, &serr))
	})

	t.Run("should hand hard-break units to serializers through TextUnits", func(t *testing.T) {
		reg := newStringRegistry(nil)
		reg.HandleSegment(TypeText, func(n *Node[string], e *Engine[string]) (string, error) {
			units, err := e.TextUnits(n.Text())
			return strings.Join(units, ""), err
		})
		out, err := NewEngine(reg, WithRenderHardBreaks(true)).Render([]Segment{text("a\r\nb")})
		require.NoError(t, err)
		assert.Equal(t, []string{"a<br>b"}, out)

		out, err = NewEngine(reg).Render([]Segment{text("a\nb")})
		require.NoError(t, err)
		assert.Equal(t, []string{"a\nb"}, out)
	})
}

func Test_Engine_UnknownPolicy(t *testing.T) {
	unknownDoc := func() []Segment {
		return []Segment{
			paragraph(text("before")),
			{ID: "n1", Type: "not-a-real-type", Content: []Segment{text("inside")}},
			paragraph(text("after")),
		}
	}

	t.Run("should degrade unknown segments to an empty unit by default", func(t *testing.T) {
		var reported []error
		engine := NewEngine(newStringRegistry(nil), WithErrorHandler(func(err error) { reported = append(reported, err) }))
		out, err := engine.Render(unknownDoc())
		require.NoError(t, err)
		assert.Equal(t, []string{"<p>before</p>", "", "<p>after</p>"}, out)
		require.Len(t, reported, 1)
		assert.ErrorIs(t, reported[0], ErrUnknownSegmentType)
	})

	t.Run("should raise on unknown segments when strict", func(t *testing.T) {
		engine := NewEngine(newStringRegistry(nil), WithErrorOnUnknowns(true))
		out, err := engine.Render(unknownDoc())
		require.Error(t, err)
		assert.Nil(t, out)
		var unknown *UnknownSegmentTypeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "n1", unknown.ID)
		assert.Equal(t, "not-a-real-type", unknown.Type)
		assert.Equal(t, "[1]", unknown.Path.String())
	})

	t.Run("should ignore the fallback unless unknown components are rendered", func(t *testing.T) {
		reg := newStringRegistry(nil)
		reg.SetUnknownSegment(SegmentFunc[string](func(n *Node[string], e *Engine[string]) (string, error) {
			return "[" + n.Type + ":" + strings.Join(n.Content, "") + "]", nil
		}))

		out, err := NewEngine(reg).Render(unknownDoc())
		require.NoError(t, err)
		assert.Equal(t, "", out[1])

		out, err = NewEngine(reg, WithRenderUnknownComponents(true)).Render(unknownDoc())
		require.NoError(t, err)
		assert.Equal(t, "[not-a-real-type:inside]", out[1])
	})

	t.Run("should raise before consulting the fallback when both flags are set", func(t *testing.T) {
		reg := newStringRegistry(nil)
		reg.SetUnknownSegment(SegmentFunc[string](func(n *Node[string], e *Engine[string]) (string, error) {
			return "fallback", nil
		}))
		engine := NewEngine(reg, WithErrorOnUnknowns(true), WithRenderUnknownComponents(true))
		_, err := engine.Render(unknownDoc())
		assert.ErrorIs(t, err, ErrUnknownSegmentType)
	})

	t.Run("should raise on unresolved modifier references when strict", func(t *testing.T) {
		engine := NewEngine(newStringRegistry(nil), WithErrorOnUnknowns(true))
		_, err := engine.Render([]Segment{text("x", ModBold, "missing")})
		var unresolved *UnresolvedModifierError
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, "missing", unresolved.Reference)
		assert.Equal(t, 1, unresolved.Index)
	})

	t.Run("should pass unresolved references to the modifier fallback", func(t *testing.T) {
		reg := newStringRegistry(nil)
		reg.SetUnknownModifier(ModifierFunc[string](func(m *Mark[string], e *Engine[string]) (string, error) {
			return "{" + m.Modifier.Type + "}" + m.Inner, nil
		}))
		engine := NewEngine(reg, WithRenderUnknownComponents(true))
		out, err := engine.Render([]Segment{text("x", "missing", ModBold)})
		require.NoError(t, err)
		assert.Equal(t, []string{"{missing}<b>x</b>"}, out)
	})

	t.Run("should skip modifiers with no serializer and keep the inner unit", func(t *testing.T) {
		engine := NewEngine(newStringRegistry(nil))
		out, err := engine.Render([]Segment{text("x", ModUnderline, ModBold)})
		require.NoError(t, err)
		assert.Equal(t, []string{"<b>x</b>"}, out)
	})

	t.Run("should raise on known modifiers with no serializer when strict", func(t *testing.T) {
		engine := NewEngine(newStringRegistry(nil), WithErrorOnUnknowns(true))
		_, err := engine.Render([]Segment{text("x", ModUnderline)})
		var unknown *UnknownModifierTypeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, ModUnderline, unknown.Modifier.Type)
	})

	t.Run("should route malformed segments through the same policy", func(t *testing.T) {
		segs, err := Decode([]byte(`[{"type":"paragraph","content":"oops"},{"text":"no type"}]`))
		require.NoError(t, err)

		var reported []error
		out, err := NewEngine(newStringRegistry(nil), WithErrorHandler(func(err error) { reported = append(reported, err) })).Render(segs)
		require.NoError(t, err)
		assert.Equal(t, []string{"", ""}, out)
		require.Len(t, reported, 2)
		var malformed *MalformedSegmentError
		require.ErrorAs(t, reported[0], &malformed)
		assert.Equal(t, "content", malformed.Field)

		_, err = NewEngine(newStringRegistry(nil), WithErrorOnUnknowns(true)).Render(segs)
		assert.ErrorIs(t, err, ErrMalformedSegment)
	})

	t.Run("should stop at the depth limit", func(t *testing.T) {
		seg := text("leaf")
		for i := 0; i < 10; i++ {
			seg = paragraph(seg)
		}
		out, err := NewEngine(newStringRegistry(nil), WithMaxDepth(5)).Render([]Segment{seg})
		require.NoError(t, err)
		assert.NotContains(t, out[0], "leaf")

		_, err = NewEngine(newStringRegistry(nil), WithMaxDepth(5), WithErrorOnUnknowns(true)).Render([]Segment{seg})
		assert.ErrorIs(t, err, ErrMalformedSegment)
	})

	t.Run("should keep the depth limit when a policy leaves it unset", func(t *testing.T) {
		aliased := []Segment{{Type: TypeParagraph, Props: map[string]any{"text": "loop"}}}
		aliased[0].Content = aliased

		for _, p := range []Policy{{}, {MaxDepth: -1}} {
			engine := NewEngine(newStringRegistry(nil), WithPolicy(p))
			assert.Equal(t, DefaultMaxDepth, engine.Policy().MaxDepth)
			_, err := engine.Render(aliased)
			require.NoError(t, err)
		}

		_, err := NewEngine(newStringRegistry(nil), WithPolicy(Policy{ErrorOnUnknowns: true})).Render(aliased)
		assert.ErrorIs(t, err, ErrMalformedSegment)

		out, err := NewEngine(newStringRegistry(nil), WithPolicy(Policy{RenderPlainText: true})).Render(aliased)
		require.NoError(t, err)
		assert.Len(t, out, DefaultMaxDepth)
	})
}

func Test_Engine_Validators(t *testing.T) {
	t.Run("should drop invalid modifier definitions and degrade references to them", func(t *testing.T) {
		seg := text("x", "l1", ModBold)
		seg.ModDefs = []ModDef{{ID: "l1", Type: DefLink, Props: map[string]any{}}}

		var reported []error
		engine := NewEngine(newStringRegistry(nil),
			WithValidators(DefaultValidators()),
			WithErrorHandler(func(err error) { reported = append(reported, err) }))
		out, err := engine.Render([]Segment{seg})
		require.NoError(t, err)
		assert.Equal(t, []string{"<b>x</b>"}, out)
		require.Len(t, reported, 2)
		assert.ErrorIs(t, reported[0], ErrInvalidSegment)
		assert.ErrorIs(t, reported[1], ErrUnresolvedModifier)
	})

	t.Run("should raise validation failures when strict", func(t *testing.T) {
		list := Segment{Type: TypeListNumber, Props: map[string]any{"start": -1.0}}
		engine := NewEngine(newStringRegistry(nil), WithValidators(DefaultValidators()), WithErrorOnUnknowns(true))
		_, err := engine.Render([]Segment{list})
		var invalid *ValidationError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, TypeListNumber, invalid.Subject)
	})
}

func Test_Engine_PlainText(t *testing.T) {
	t.Run("should emit text and break units without dispatch", func(t *testing.T) {
		reg := NewRegistry[string]()
		reg.SetText(func(s string) string { return s })
		reg.SetHardBreak(func() string { return "<br>" })
		engine := NewEngine(reg, WithRenderPlainText(true), WithRenderHardBreaks(true))

		out, err := engine.Render([]Segment{paragraph(text("a\nb"))})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "<br>", "b"}, out)
	})

	t.Run("should keep literal breaks without the hard-break flag", func(t *testing.T) {
		engine := NewEngine(newStringRegistry(nil), WithRenderPlainText(true))
		out, err := engine.Render([]Segment{paragraph(text("a\nb", "unresolved"))})
		require.NoError(t, err)
		assert.Equal(t, []string{"a\nb"}, out)
	})

	t.Run("should ignore unknown types and modifiers", func(t *testing.T) {
		engine := NewEngine(newStringRegistry(nil), WithRenderPlainText(true), WithErrorOnUnknowns(true))
		out, err := engine.Render([]Segment{{Type: "not-a-real-type", Content: []Segment{text("kept", "nope")}}})
		require.NoError(t, err)
		assert.Equal(t, []string{"kept"}, out)
	})

	t.Run("should fail without a text constructor", func(t *testing.T) {
		engine := NewEngine(NewRegistry[string](), WithRenderPlainText(true))
		_, err := engine.Render([]Segment{text("a")})
		assert.ErrorIs(t, err, ErrNoTextUnit)
	})

	t.Run("should join blocks with blank lines", func(t *testing.T) {
		list := Segment{Type: TypeListBullet, Content: []Segment{paragraph(text("one")), paragraph(text("two"))}}
		got := PlainText([]Segment{
			paragraph(text("Hello, "), text("world", ModBold)),
			list,
		})
		assert.Equal(t, "Hello, world\n\none\ntwo", got)
	})
}

func Test_Engine_Concurrent(t *testing.T) {
	engine := NewEngine(newStringRegistry(nil))
	doc := []Segment{paragraph(text("a", ModBold)), paragraph(text("b", ModItalic))}
	done := make(chan []string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			out, err := engine.Render(doc)
			if err != nil {
				done <- nil
				return
			}
			done <- out
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, []string{"<p><b>a</b></p>", "<p><i>b</i></p>"}, <-done)
	}
}
