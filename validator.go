package segmentweaver

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
)

// Fields is what a Validator sees: the own data of a segment or modifier
// definition, without descendants.
type Fields struct {
	ID    string
	Type  string
	Props map[string]any
}

// Lookup returns a property by dotted key, e.g. "rgb.r".
func (f Fields) Lookup(key string) (any, bool) {
	var cur any = f.Props
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Validator checks the fields of one segment or modifier definition.
// Returns nil if valid, or an error describing the problem.
type Validator interface {
	Validate(f Fields) error
}

// RegexValidator checks a string property against a regular expression.
// A missing property passes unless Required is set.
type RegexValidator struct {
	Key         string
	Pattern     *regexp.Regexp
	Description string // Human-readable description of what the pattern expects
	Required    bool
}

// Validate implements the Validator interface.
func (v *RegexValidator) Validate(f Fields) error {
	raw, ok := f.Lookup(v.Key)
	if !ok {
		if v.Required {
			return fmt.Errorf("%s is required", v.Key)
		}
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("%s must be a string, got %T", v.Key, raw)
	}
	if !v.Pattern.MatchString(s) {
		return fmt.Errorf("%s %q does not match expected pattern: %s", v.Key, s, v.Description)
	}
	return nil
}

// EnumValidator checks that a string property is one of Values.
type EnumValidator struct {
	Key      string
	Values   []string
	Required bool
}

// Validate implements the Validator interface.
func (v *EnumValidator) Validate(f Fields) error {
	raw, ok := f.Lookup(v.Key)
	if !ok {
		if v.Required {
			return fmt.Errorf("%s is required", v.Key)
		}
		return nil
	}
	s, _ := raw.(string)
	if !slices.Contains(v.Values, s) {
		return fmt.Errorf("%s must be one of %s, got %v", v.Key, strings.Join(v.Values, ", "), raw)
	}
	return nil
}

// RangeValidator checks that a numeric property lies in [Min, Max].
type RangeValidator struct {
	Key      string
	Min, Max float64
	Integer  bool
	Required bool
}

// Validate implements the Validator interface.
func (v *RangeValidator) Validate(f Fields) error {
	raw, ok := f.Lookup(v.Key)
	if !ok {
		if v.Required {
			return fmt.Errorf("%s is required", v.Key)
		}
		return nil
	}
	n, ok := number(raw)
	if !ok {
		return fmt.Errorf("%s must be a number, got %T", v.Key, raw)
	}
	if v.Integer && n != math.Trunc(n) {
		return fmt.Errorf("%s must be an integer, got %v", v.Key, n)
	}
	if n < v.Min || n > v.Max {
		return fmt.Errorf("%s must be between %v and %v, got %v", v.Key, v.Min, v.Max, n)
	}
	return nil
}

// FuncValidator uses a custom function to validate fields.
type FuncValidator struct {
	ValidateFunc func(f Fields) error
}

// Validate implements the Validator interface.
func (v *FuncValidator) Validate(f Fields) error {
	return v.ValidateFunc(f)
}

// ValidatorRegistry manages validators keyed by segment type or modifier
// definition type.
type ValidatorRegistry struct {
	validators map[string][]Validator
}

// NewValidatorRegistry creates a new validator registry.
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{
		validators: make(map[string][]Validator),
	}
}

// Register adds a validator for a type.
// Multiple validators can be registered for the same type; they run in order.
func (r *ValidatorRegistry) Register(typ string, validator Validator) {
	if validator == nil {
		return
	}
	r.validators[typ] = append(r.validators[typ], validator)
}

// RegisterRegex creates and registers a RegexValidator for an optional property.
func (r *ValidatorRegistry) RegisterRegex(typ, key, pattern, description string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern for %s.%s: %w", typ, key, err)
	}

	r.Register(typ, &RegexValidator{
		Key:         key,
		Pattern:     re,
		Description: description,
	})
	return nil
}

// RegisterFunc creates and registers a FuncValidator.
func (r *ValidatorRegistry) RegisterFunc(typ string, validateFunc func(Fields) error) {
	r.Register(typ, &FuncValidator{
		ValidateFunc: validateFunc,
	})
}

// ValidateFields runs the validators registered for f.Type.
// Returns nil if valid, or the first failure.
func (r *ValidatorRegistry) ValidateFields(f Fields) error {
	validators, ok := r.validators[f.Type]
	if !ok {
		// No validators registered for this type
		return nil
	}

	for _, validator := range validators {
		if err := validator.Validate(f); err != nil {
			return err
		}
	}

	return nil
}

// check validates and locates the failure.
func (r *ValidatorRegistry) check(at SegmentError, id, typ string, props map[string]any) error {
	err := r.ValidateFields(Fields{ID: id, Type: typ, Props: props})
	if err == nil {
		return nil
	}
	return NewValidationError(at, typ, id, err.Error())
}

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// DefaultValidators returns validators for the reference modifier
// definitions and list segments.
func DefaultValidators() *ValidatorRegistry {
	r := NewValidatorRegistry()
	unbounded := math.MaxFloat64

	r.Register(DefIndent, &RangeValidator{Key: "indents", Min: 0, Max: unbounded, Integer: true})
	r.Register(DefAlignment, &EnumValidator{
		Key:      "alignment",
		Values:   []string{AlignLeft, AlignRight, AlignCenter, AlignJustify},
		Required: true,
	})
	r.Register(DefFont, &RangeValidator{Key: "fontSize", Min: 0, Max: unbounded})
	r.Register(DefLink, &RegexValidator{
		Key:         "href",
		Pattern:     regexp.MustCompile(`^\S+$`),
		Description: "a non-empty URL without spaces",
		Required:    true,
	})

	for _, typ := range []string{DefColor, DefHighlight} {
		r.Register(typ, &RangeValidator{Key: "rgb.r", Min: 0, Max: 255})
		r.Register(typ, &RangeValidator{Key: "rgb.g", Min: 0, Max: 255})
		r.Register(typ, &RangeValidator{Key: "rgb.b", Min: 0, Max: 255})
		r.Register(typ, &RangeValidator{Key: "hsl.h", Min: 0, Max: 360})
		r.Register(typ, &RangeValidator{Key: "hsl.s", Min: 0, Max: 100})
		r.Register(typ, &RangeValidator{Key: "hsl.l", Min: 0, Max: 100})
		r.Register(typ, &RangeValidator{Key: "hsv.h", Min: 0, Max: 360})
		r.Register(typ, &RangeValidator{Key: "hsv.s", Min: 0, Max: 100})
		r.Register(typ, &RangeValidator{Key: "hsv.v", Min: 0, Max: 100})
		r.Register(typ, &RangeValidator{Key: "alpha", Min: 0, Max: 1})
		r.Register(typ, &RegexValidator{Key: "hex", Pattern: hexColor, Description: "#rgb, #rrggbb or #rrggbbaa"})
	}

	for _, typ := range []string{TypeListNumber, TypeListUpperLetter, TypeListLowerLetter, TypeListUpperRoman, TypeListLowerRoman} {
		r.Register(typ, &RangeValidator{Key: "start", Min: 0, Max: math.MaxInt32, Integer: true})
	}
	return r
}

// ValidateOptions drives Validate.
type ValidateOptions struct {
	// Vocabulary decides which types are known. The zero value means
	// DefaultVocabulary.
	Vocabulary Vocabulary
	// Validators, when set, also check fields.
	Validators *ValidatorRegistry
	// IsKnownSegment and IsKnownModifier replace the vocabulary check, e.g.
	// with registry lookups.
	IsKnownSegment  func(t string) bool
	IsKnownModifier func(t string) bool
	// AllowUnknown skips type checks and reports only shape, reference and
	// field problems.
	AllowUnknown bool
	// MaxDepth limits nesting; values <= 0 mean DefaultMaxDepth.
	MaxDepth int
}

// Validate walks the whole document and reports every problem it finds:
// malformed segments, unresolved modifier references, unknown segment and
// modifier types and failed field validators. It returns nil or an
// *AggregateError in document order.
func Validate(segments []Segment, opts ValidateOptions) error {
	v := &validation{opts: opts}
	if v.opts.Vocabulary.IsZero() {
		v.opts.Vocabulary = DefaultVocabulary()
	}
	if v.opts.IsKnownSegment == nil {
		v.opts.IsKnownSegment = v.opts.Vocabulary.IsSegmentType
	}
	if v.opts.IsKnownModifier == nil {
		v.opts.IsKnownModifier = v.opts.Vocabulary.IsModifierType
	}
	if v.opts.MaxDepth <= 0 {
		v.opts.MaxDepth = DefaultMaxDepth
	}
	v.list(segments, "")
	if len(v.errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: v.errs}
}

type validation struct {
	opts ValidateOptions
	path Path
	errs []error
}

func (v *validation) list(segs []Segment, field string) {
	for i := range segs {
		v.path = append(v.path, PathStep{Field: field, Index: i})
		v.segment(&segs[i])
		v.path = v.path[:len(v.path)-1]
	}
}

func (v *validation) segment(seg *Segment) {
	at := SegmentError{Path: slices.Clone(v.path), ID: seg.ID, Type: seg.Type}
	if len(v.path) > v.opts.MaxDepth {
		v.errs = append(v.errs, NewMalformedSegmentError(at, "", fmt.Sprintf("nesting deeper than %d", v.opts.MaxDepth)))
		return
	}
	if field, reason, bad := seg.problem(); bad {
		v.errs = append(v.errs, NewMalformedSegmentError(at, field, reason))
	} else if !v.opts.AllowUnknown && !v.opts.IsKnownSegment(seg.Type) {
		v.errs = append(v.errs, NewUnknownSegmentTypeError(at))
	}

	defs := seg.ModDefs
	if r := v.opts.Validators; r != nil {
		if err := r.check(at, seg.ID, seg.Type, seg.Props); err != nil {
			v.errs = append(v.errs, err)
		}
		defs = defs[:0:0]
		for _, d := range seg.ModDefs {
			if err := r.check(at, d.ID, d.Type, d.Props); err != nil {
				v.errs = append(v.errs, err)
				continue
			}
			defs = append(defs, d)
		}
	}

	mods, _ := resolveModifiers(seg.Mods, defs, ResolveOptions{
		Vocabulary: v.opts.Vocabulary,
		OnDropped:  func(u *UnresolvedModifierError) { v.errs = append(v.errs, u) },
	}, at)
	if !v.opts.AllowUnknown {
		for _, m := range mods {
			if !v.opts.IsKnownModifier(m.Type) {
				v.errs = append(v.errs, NewUnknownModifierTypeError(at, m))
			}
		}
	}

	v.list(seg.Content, FieldContent)
	v.list(seg.Children, FieldChildren)
}
