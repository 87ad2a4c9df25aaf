package segmentweaver

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// ErrNoTextUnit is returned by plain-text rendering when the registry has no
// text constructor.
var ErrNoTextUnit = errors.New("plain-text rendering needs Registry.SetText")

// Engine renders segment trees into units of type U by dispatching every node
// to the serializers in its Registry.
//
// An Engine is immutable after NewEngine and may be shared by concurrent
// Render calls as long as the Registry is not modified.
type Engine[U any] struct {
	reg *Registry[U]
	settings
}

func NewEngine[U any](reg *Registry[U], opts ...Option) *Engine[U] {
	if reg == nil {
		reg = NewRegistry[U]()
	}
	return &Engine[U]{reg: reg, settings: newSettings(opts)}
}

func (e *Engine[U]) Policy() Policy         { return e.policy }
func (e *Engine[U]) Vocabulary() Vocabulary { return e.vocab }
func (e *Engine[U]) Registry() *Registry[U] { return e.reg }

// Render renders each top-level segment in order.
//
// The result has one unit per input segment, and every Node handed to a
// serializer has one unit per content and child segment. Segments that render
// nothing leave the zero U in their slot. With ErrorOnUnknowns set the first
// problem aborts the whole call and no partial result is returned.
//
// In plain-text mode the result is instead the flat sequence of text units
// (and break units) found in the document.
//
// Segments must form a tree. Aliased slices that loop back on themselves are
// stopped by MaxDepth, not detected.
func (e *Engine[U]) Render(segments []Segment) ([]U, error) {
	if e.policy.RenderPlainText {
		return e.renderPlain(segments)
	}
	w := &walker[U]{e: e}
	out, err := w.list(segments, "")
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []U{}
	}
	return out, nil
}

// RenderSegment renders a single segment.
func (e *Engine[U]) RenderSegment(seg Segment) (U, error) {
	var zero U
	out, err := e.Render([]Segment{seg})
	if err != nil || len(out) == 0 {
		return zero, err
	}
	return out[0], nil
}

// Validate checks the whole document against the engine's vocabulary,
// validators and registered serializers without rendering it.
func (e *Engine[U]) Validate(segments []Segment) error {
	return Validate(segments, ValidateOptions{
		Vocabulary:      e.vocab,
		Validators:      e.validators,
		MaxDepth:        e.policy.MaxDepth,
		IsKnownSegment:  e.reg.HasSegment,
		IsKnownModifier: e.reg.HasModifier,
	})
}

// TextUnits builds the units for a run of text, splitting it at line breaks
// into break units when the policy asks for hard breaks. Segment serializers
// use it to honour RenderHardBreaks.
func (e *Engine[U]) TextUnits(text string) ([]U, error) {
	if e.reg.text == nil {
		return nil, ErrNoTextUnit
	}
	return e.appendText(nil, text), nil
}

func (e *Engine[U]) appendText(out []U, text string) []U {
	if !e.policy.RenderHardBreaks || e.reg.hardBreak == nil {
		if text != "" {
			out = append(out, e.reg.text(text))
		}
		return out
	}
	for i, line := range SplitHardBreaks(text) {
		if i > 0 {
			out = append(out, e.reg.hardBreak())
		}
		if line != "" {
			out = append(out, e.reg.text(line))
		}
	}
	return out
}

func (e *Engine[U]) renderPlain(segments []Segment) ([]U, error) {
	if e.reg.text == nil {
		return nil, ErrNoTextUnit
	}
	out := []U{}
	limit := e.policy.MaxDepth
	for i := range segments {
		segments[i].Walk(func(s *Segment, depth int) bool {
			if depth >= limit {
				return false
			}
			if s.HasText() {
				out = e.appendText(out, s.Text())
			}
			return true
		})
	}
	return out, nil
}

// walker holds the state of one Render call.
type walker[U any] struct {
	e    *Engine[U]
	path Path
}

func (w *walker[U]) list(segs []Segment, field string) ([]U, error) {
	if len(segs) == 0 {
		return nil, nil
	}
	out := make([]U, len(segs))
	for i := range segs {
		w.path = append(w.path, PathStep{Field: field, Index: i})
		u, err := w.node(&segs[i])
		w.path = w.path[:len(w.path)-1]
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

func (w *walker[U]) node(seg *Segment) (U, error) {
	var zero U
	e := w.e
	at := SegmentError{Path: slices.Clone(w.path), ID: seg.ID, Type: seg.Type}

	if limit := e.policy.MaxDepth; len(w.path) > limit {
		return zero, w.fail(NewMalformedSegmentError(at, "", fmt.Sprintf("nesting deeper than %d", limit)))
	}
	if field, reason, bad := seg.problem(); bad {
		return zero, w.fail(NewMalformedSegmentError(at, field, reason))
	}

	defs := seg.ModDefs
	if e.validators != nil {
		if err := e.validators.check(at, seg.ID, seg.Type, seg.Props); err != nil {
			return zero, w.fail(err)
		}
		var err error
		if defs, err = w.validDefs(at, defs); err != nil {
			return zero, err
		}
	}

	mods, err := resolveModifiers(seg.Mods, defs, ResolveOptions{
		Vocabulary:      e.vocab,
		ErrorOnUnknowns: e.policy.ErrorOnUnknowns,
		KeepUnresolved:  e.policy.RenderUnknownComponents && e.reg.unknownModifier != nil,
		OnDropped:       func(u *UnresolvedModifierError) { w.report(u) },
	}, at)
	if err != nil {
		return zero, err
	}

	ser, ok := e.reg.segment(seg.Type)
	if !ok {
		unknown := NewUnknownSegmentTypeError(at)
		switch {
		case e.policy.ErrorOnUnknowns:
			return zero, unknown
		case e.policy.RenderUnknownComponents && e.reg.unknownSegment != nil:
			ser = e.reg.unknownSegment
		default:
			w.report(unknown)
			return zero, nil
		}
	}

	content, err := w.list(seg.Content, FieldContent)
	if err != nil {
		return zero, err
	}
	children, err := w.list(seg.Children, FieldChildren)
	if err != nil {
		return zero, err
	}

	n := &Node[U]{
		ID:       seg.ID,
		Type:     seg.Type,
		Props:    seg.Props,
		Mods:     mods,
		Content:  content,
		Children: children,
		Path:     at.Path,
		Segment:  seg,
	}
	u, err := ser.SerializeSegment(n, e)
	if err != nil {
		return zero, wrapSerializerError(at, err)
	}
	return w.applyMods(n, u, at)
}

// applyMods wraps the rendered unit from the last modifier to the first, so
// mods[0] ends up outermost.
func (w *walker[U]) applyMods(n *Node[U], inner U, at SegmentError) (U, error) {
	var zero U
	e := w.e
	for i := len(n.Mods) - 1; i >= 0; i-- {
		m := n.Mods[i]
		var (
			ser ModifierSerializer[U]
			ok  bool
		)
		if m.Unresolved {
			ser, ok = e.reg.unknownModifier, e.reg.unknownModifier != nil
		} else {
			ser, ok = e.reg.modifier(m.Type)
		}
		if !ok {
			unknown := NewUnknownModifierTypeError(at, m)
			switch {
			case e.policy.ErrorOnUnknowns:
				return zero, unknown
			case e.policy.RenderUnknownComponents && e.reg.unknownModifier != nil:
				ser = e.reg.unknownModifier
			default:
				w.report(unknown)
				continue
			}
		}
		out, err := ser.SerializeModifier(&Mark[U]{Modifier: m, Inner: inner, Node: n}, e)
		if err != nil {
			return zero, wrapSerializerError(at, err)
		}
		inner = out
	}
	return inner, nil
}

// validDefs drops modifier definitions that fail validation. References to
// them then resolve like any other missing id.
func (w *walker[U]) validDefs(at SegmentError, defs []ModDef) ([]ModDef, error) {
	var out []ModDef
	for i, d := range defs {
		if err := w.e.validators.check(at, d.ID, d.Type, d.Props); err != nil {
			if err := w.fail(err); err != nil {
				return nil, err
			}
			if out == nil {
				out = slices.Clone(defs[:i])
			}
			continue
		}
		if out != nil {
			out = append(out, d)
		}
	}
	if out == nil {
		return defs, nil
	}
	return out, nil
}

// fail raises err under a strict policy and otherwise reports it and
// returns nil.
func (w *walker[U]) fail(err error) error {
	if w.e.policy.ErrorOnUnknowns {
		return err
	}
	w.report(err)
	return nil
}

func (w *walker[U]) report(err error) {
	w.e.logger.Debug("segment degraded", slog.String("path", w.path.String()), slog.Any("error", err))
	if w.e.onDegraded != nil {
		w.e.onDegraded(err)
	}
}

func wrapSerializerError(at SegmentError, err error) error {
	if isEngineError(err) {
		return err
	}
	return newSerializerError(at, err)
}

// PlainText extracts the text of a document. Runs inside one block are
// concatenated, nested blocks start on a new line and top-level segments are
// separated by a blank line.
func PlainText(segments []Segment) string {
	blocks := make([]string, 0, len(segments))
	for i := range segments {
		var sb strings.Builder
		writePlain(&sb, &segments[i], 0)
		if sb.Len() > 0 {
			blocks = append(blocks, strings.TrimRight(sb.String(), "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func writePlain(sb *strings.Builder, s *Segment, depth int) {
	if depth >= DefaultMaxDepth {
		return
	}
	block := len(s.Content) > 0 || len(s.Children) > 0
	if block && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString(s.Text())
	for i := range s.Content {
		writePlain(sb, &s.Content[i], depth+1)
	}
	for i := range s.Children {
		writePlain(sb, &s.Children[i], depth+1)
	}
}
