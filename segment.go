package segmentweaver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Structural keys of a segment object. Every other key ends up in Props.
const (
	keyID       = "id"
	keyType     = "type"
	keyChildren = "children"
	keyContent  = "content"
	keyMods     = "mods"
	keyModDefs  = "modDefs"
)

// Segment is a node in the rich-text content tree.
//
// Children holds nested ("indirect") content such as a sub-list under a list
// item; Content holds direct content such as the text runs of a paragraph.
// The engine treats both the same way and leaves their meaning to serializers.
type Segment struct {
	ID       string
	Type     string
	Children []Segment
	Content  []Segment
	Mods     []string
	ModDefs  []ModDef
	// Props holds every property other than the structural ones above.
	// It is passed to serializers untouched.
	Props map[string]any

	malformed []string
}

// ModDef is a typed modifier definition scoped to the segment that declares it.
type ModDef struct {
	ID    string
	Type  string
	Props map[string]any

	malformed []string
}

// Text returns the "text" property, or "" when the segment carries none.
func (s *Segment) Text() string {
	t, _ := s.Props["text"].(string)
	return t
}

// HasText reports whether the segment carries a string "text" property.
func (s *Segment) HasText() bool {
	_, ok := s.Props["text"].(string)
	return ok
}

// Start returns the starting index of a list segment. Lists without a usable
// "start" property start at 1.
func (s *Segment) Start() int {
	if n, ok := number(s.Props["start"]); ok {
		return int(n)
	}
	return 1
}

// Prop returns an opaque property by key.
func (s *Segment) Prop(key string) (any, bool) {
	v, ok := s.Props[key]
	return v, ok
}

// Walk visits s and its descendants in document order: the segment itself,
// then its content, then its children. Returning false from fn skips the
// descendants of that segment.
func (s *Segment) Walk(fn func(seg *Segment, depth int) bool) {
	s.walk(fn, 0)
}

func (s *Segment) walk(fn func(*Segment, int) bool, depth int) {
	if !fn(s, depth) {
		return
	}
	for i := range s.Content {
		s.Content[i].walk(fn, depth+1)
	}
	for i := range s.Children {
		s.Children[i].walk(fn, depth+1)
	}
}

// Check reports structural problems of this segment alone (not its
// descendants): a missing type, structural keys with the wrong JSON shape, and
// modifier definitions without id or type.
func (s *Segment) Check() error {
	field, reason, bad := s.problem()
	if !bad {
		return nil
	}
	return NewMalformedSegmentError(SegmentError{ID: s.ID, Type: s.Type}, field, reason)
}

func (s *Segment) problem() (field, reason string, bad bool) {
	if len(s.malformed) > 0 {
		return s.malformed[0], fmt.Sprintf("%q has an invalid shape", s.malformed[0]), true
	}
	if s.Type == "" {
		return keyType, "type is required", true
	}
	for i := range s.ModDefs {
		d := &s.ModDefs[i]
		switch {
		case len(d.malformed) > 0:
			return keyModDefs, fmt.Sprintf("modDefs[%d].%s has an invalid shape", i, d.malformed[0]), true
		case d.ID == "":
			return keyModDefs, fmt.Sprintf("modDefs[%d] has no id", i), true
		case d.Type == "":
			return keyModDefs, fmt.Sprintf("modDefs[%d] has no type", i), true
		}
	}
	return "", "", false
}

// UnmarshalJSON decodes a segment object. Structural keys with an unexpected
// shape are not fatal: they are recorded and reported as a malformed segment
// when the segment is rendered or validated.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("segment must be a JSON object: %w", err)
	}
	*s = Segment{}
	for key, val := range raw {
		var ok bool
		switch key {
		case keyID:
			ok = decodeString(val, &s.ID)
		case keyType:
			ok = decodeString(val, &s.Type)
		case keyChildren:
			s.Children, ok = decodeSegments(val)
		case keyContent:
			s.Content, ok = decodeSegments(val)
		case keyMods:
			ok = json.Unmarshal(val, &s.Mods) == nil
		case keyModDefs:
			s.ModDefs, ok = decodeModDefs(val)
		default:
			v, err := decodeValue(val)
			if err != nil {
				return err
			}
			if s.Props == nil {
				s.Props = make(map[string]any)
			}
			s.Props[key] = v
			ok = true
		}
		if !ok {
			s.malformed = append(s.malformed, key)
		}
	}
	sort.Strings(s.malformed)
	return nil
}

// MarshalJSON encodes the segment with its opaque properties inlined.
func (s Segment) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Props)+6)
	for k, v := range s.Props {
		out[k] = v
	}
	out[keyType] = s.Type
	if s.ID != "" {
		out[keyID] = s.ID
	}
	if s.Children != nil {
		out[keyChildren] = s.Children
	}
	if s.Content != nil {
		out[keyContent] = s.Content
	}
	if s.Mods != nil {
		out[keyMods] = s.Mods
	}
	if s.ModDefs != nil {
		out[keyModDefs] = s.ModDefs
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a modifier definition, keeping type-specific fields in Props.
func (d *ModDef) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("modifier definition must be a JSON object: %w", err)
	}
	*d = ModDef{}
	for key, val := range raw {
		switch key {
		case keyID:
			if !decodeString(val, &d.ID) {
				d.malformed = append(d.malformed, key)
			}
		case keyType:
			if !decodeString(val, &d.Type) {
				d.malformed = append(d.malformed, key)
			}
		default:
			v, err := decodeValue(val)
			if err != nil {
				return err
			}
			if d.Props == nil {
				d.Props = make(map[string]any)
			}
			d.Props[key] = v
		}
	}
	sort.Strings(d.malformed)
	return nil
}

// MarshalJSON encodes the definition with its fields inlined.
func (d ModDef) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Props)+2)
	for k, v := range d.Props {
		out[k] = v
	}
	out[keyID] = d.ID
	out[keyType] = d.Type
	return json.Marshal(out)
}

// Decode parses the wire form of a document: a single segment object or an
// array of segment objects.
func Decode(data []byte) ([]Segment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode segments: empty input")
	}
	if trimmed[0] == '[' {
		var segs []Segment
		if err := json.Unmarshal(trimmed, &segs); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
		if segs == nil {
			segs = []Segment{}
		}
		return segs, nil
	}
	var seg Segment
	if err := json.Unmarshal(trimmed, &seg); err != nil {
		return nil, fmt.Errorf("decode segment: %w", err)
	}
	return []Segment{seg}, nil
}

// DecodeReader reads a whole document from r and decodes it.
func DecodeReader(r io.Reader) ([]Segment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	return Decode(data)
}

func decodeString(raw json.RawMessage, dst *string) bool {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return true
	}
	return json.Unmarshal(raw, dst) == nil
}

// decodeValue decodes an opaque property. Numbers stay json.Number so large
// integers survive a decode and encode round trip.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeSegments(raw json.RawMessage) ([]Segment, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		return nil, true
	}
	out := make([]Segment, len(items))
	for i := range items {
		if err := json.Unmarshal(items[i], &out[i]); err != nil {
			return nil, false
		}
	}
	return out, true
}

func decodeModDefs(raw json.RawMessage) ([]ModDef, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		return nil, true
	}
	out := make([]ModDef, len(items))
	for i := range items {
		if err := json.Unmarshal(items[i], &out[i]); err != nil {
			return nil, false
		}
	}
	return out, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
