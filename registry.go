package segmentweaver

// Node is what a segment serializer receives: the segment's own data, its
// resolved modifiers and its already rendered content and children.
//
// U is the host's renderable unit (an HTML node, a string, a layout box...).
// A zero U in Content or Children marks a descendant that rendered nothing.
type Node[U any] struct {
	ID       string
	Type     string
	Props    map[string]any // opaque properties, shared with the input; read-only
	Mods     []Modifier
	Content  []U
	Children []U
	Path     Path
	Segment  *Segment // source segment; read-only
}

// Text returns the "text" property of the segment.
func (n *Node[U]) Text() string {
	t, _ := n.Props["text"].(string)
	return t
}

// Prop returns an opaque property by key.
func (n *Node[U]) Prop(key string) (any, bool) {
	v, ok := n.Props[key]
	return v, ok
}

// Mark is what a modifier serializer receives: one resolved modifier and the
// unit it should wrap.
type Mark[U any] struct {
	Modifier Modifier
	Inner    U
	Node     *Node[U] // the segment carrying the modifier
}

// SegmentSerializer turns a node into a renderable unit. The engine is passed
// so serializers can render nested documents under the same policy.
type SegmentSerializer[U any] interface {
	SerializeSegment(n *Node[U], e *Engine[U]) (U, error)
}

// SegmentFunc adapts a function to SegmentSerializer.
type SegmentFunc[U any] func(n *Node[U], e *Engine[U]) (U, error)

func (f SegmentFunc[U]) SerializeSegment(n *Node[U], e *Engine[U]) (U, error) { return f(n, e) }

// ModifierSerializer applies one modifier over a rendered unit.
type ModifierSerializer[U any] interface {
	SerializeModifier(m *Mark[U], e *Engine[U]) (U, error)
}

// ModifierFunc adapts a function to ModifierSerializer.
type ModifierFunc[U any] func(m *Mark[U], e *Engine[U]) (U, error)

func (f ModifierFunc[U]) SerializeModifier(m *Mark[U], e *Engine[U]) (U, error) { return f(m, e) }

// Registry maps segment and modifier types to serializers. Lookups are exact
// string matches. A Registry must not be modified once rendering has started;
// after that it is safe for concurrent use.
type Registry[U any] struct {
	segments        map[string]SegmentSerializer[U]
	modifiers       map[string]ModifierSerializer[U]
	unknownSegment  SegmentSerializer[U]
	unknownModifier ModifierSerializer[U]
	text            func(string) U
	hardBreak       func() U
}

func NewRegistry[U any]() *Registry[U] {
	return &Registry[U]{
		segments:  map[string]SegmentSerializer[U]{},
		modifiers: map[string]ModifierSerializer[U]{},
	}
}

// RegisterSegment binds s to every given segment type, replacing earlier bindings.
func (r *Registry[U]) RegisterSegment(s SegmentSerializer[U], types ...string) {
	for _, t := range types {
		r.segments[t] = s
	}
}

// RegisterModifier binds s to every given modifier type (bare name or modDef type).
func (r *Registry[U]) RegisterModifier(s ModifierSerializer[U], types ...string) {
	for _, t := range types {
		r.modifiers[t] = s
	}
}

// HandleSegment is RegisterSegment for a plain function.
func (r *Registry[U]) HandleSegment(t string, fn func(n *Node[U], e *Engine[U]) (U, error)) {
	r.RegisterSegment(SegmentFunc[U](fn), t)
}

// HandleModifier is RegisterModifier for a plain function.
func (r *Registry[U]) HandleModifier(t string, fn func(m *Mark[U], e *Engine[U]) (U, error)) {
	r.RegisterModifier(ModifierFunc[U](fn), t)
}

// SetUnknownSegment sets the fallback used for segment types with no
// serializer, when the policy allows unknown components to render.
func (r *Registry[U]) SetUnknownSegment(s SegmentSerializer[U]) { r.unknownSegment = s }

// SetUnknownModifier sets the fallback for unknown or unresolved modifiers.
func (r *Registry[U]) SetUnknownModifier(s ModifierSerializer[U]) { r.unknownModifier = s }

// SetText sets the constructor for bare text units used in plain-text mode.
func (r *Registry[U]) SetText(fn func(string) U) { r.text = fn }

// SetHardBreak sets the constructor for explicit line-break units.
func (r *Registry[U]) SetHardBreak(fn func() U) { r.hardBreak = fn }

func (r *Registry[U]) segment(t string) (SegmentSerializer[U], bool) {
	s, ok := r.segments[t]
	return s, ok
}

func (r *Registry[U]) modifier(t string) (ModifierSerializer[U], bool) {
	s, ok := r.modifiers[t]
	return s, ok
}

// HasSegment reports whether a serializer is registered for t.
func (r *Registry[U]) HasSegment(t string) bool {
	_, ok := r.segments[t]
	return ok
}

// HasModifier reports whether a modifier serializer is registered for t.
func (r *Registry[U]) HasModifier(t string) bool {
	_, ok := r.modifiers[t]
	return ok
}

// SegmentTypes lists the registered segment types in no particular order.
func (r *Registry[U]) SegmentTypes() []string {
	out := make([]string, 0, len(r.segments))
	for t := range r.segments {
		out = append(out, t)
	}
	return out
}
