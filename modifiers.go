package segmentweaver

// Modifier is the resolved form of one mods entry.
//
// A bare modifier has no ID and no Props. A modifier resolved from a modDef
// carries the definition's ID, Type and fields. An unresolved modifier (kept
// only for an unknown-modifier fallback) has Type set to the raw reference.
type Modifier struct {
	Ref        string         // The original mods entry
	ID         string         // modDef id; empty for bare modifiers
	Type       string         // Bare name or modDef type
	Props      map[string]any // modDef fields, shared with the input; read-only
	Unresolved bool
}

// IsBare reports whether m is a payload-less named modifier such as "bold".
func (m Modifier) IsBare() bool { return m.ID == "" && !m.Unresolved }

// Def returns the modifier as a ModDef, for use with DecodeModDef.
func (m Modifier) Def() ModDef {
	return ModDef{ID: m.ID, Type: m.Type, Props: m.Props}
}

// ResolveOptions drives ResolveModifiers.
type ResolveOptions struct {
	// Vocabulary supplies the known bare modifier names. The zero value
	// means DefaultVocabulary.
	Vocabulary Vocabulary
	// ErrorOnUnknowns makes an unresolved reference fail resolution.
	ErrorOnUnknowns bool
	// KeepUnresolved passes unresolved references through as Modifiers with
	// Unresolved set instead of dropping them.
	KeepUnresolved bool
	// OnDropped, when set, is told about each reference that was dropped.
	OnDropped func(err *UnresolvedModifierError)
}

// ResolveModifiers resolves a mods list against the modDefs local to the
// same segment. Output order follows mods; bare names win over modDef ids.
// Resolution is pure: the same input always yields the same output.
func ResolveModifiers(mods []string, defs []ModDef, opts ResolveOptions) ([]Modifier, error) {
	return resolveModifiers(mods, defs, opts, SegmentError{})
}

// ResolveSegment resolves the modifiers of a single segment. Errors carry the
// segment's id and type.
func ResolveSegment(seg *Segment, opts ResolveOptions) ([]Modifier, error) {
	return resolveModifiers(seg.Mods, seg.ModDefs, opts, SegmentError{ID: seg.ID, Type: seg.Type})
}

func resolveModifiers(mods []string, defs []ModDef, opts ResolveOptions, at SegmentError) ([]Modifier, error) {
	if len(mods) == 0 {
		return nil, nil
	}
	vocab := opts.Vocabulary
	if vocab.IsZero() {
		vocab = DefaultVocabulary()
	}
	out := make([]Modifier, 0, len(mods))
	for i, ref := range mods {
		if vocab.IsBareModifier(ref) {
			out = append(out, Modifier{Ref: ref, Type: ref})
			continue
		}
		if def := findModDef(defs, ref); def != nil {
			out = append(out, Modifier{Ref: ref, ID: def.ID, Type: def.Type, Props: def.Props})
			continue
		}
		unresolved := NewUnresolvedModifierError(at, ref, i)
		if opts.ErrorOnUnknowns {
			return nil, unresolved
		}
		if opts.KeepUnresolved {
			out = append(out, Modifier{Ref: ref, Type: ref, Unresolved: true})
			continue
		}
		if opts.OnDropped != nil {
			opts.OnDropped(unresolved)
		}
	}
	return out, nil
}

// findModDef returns the first definition with the given id.
func findModDef(defs []ModDef, id string) *ModDef {
	for i := range defs {
		if defs[i].ID == id {
			return &defs[i]
		}
	}
	return nil
}
