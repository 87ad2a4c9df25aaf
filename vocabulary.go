package segmentweaver

import (
	"strconv"
	"strings"
)

// Reference segment types.
const (
	TypeText            = "text"
	TypeParagraph       = "paragraph"
	TypeQuote           = "quote"
	TypeHorizontalRule  = "horizontalrule"
	TypeHeading1        = "heading1"
	TypeHeading2        = "heading2"
	TypeHeading3        = "heading3"
	TypeHeading4        = "heading4"
	TypeHeading5        = "heading5"
	TypeHeading6        = "heading6"
	TypeListBullet      = "listbullet"
	TypeListNumber      = "listnumber"
	TypeListUpperLetter = "listupperletter"
	TypeListLowerLetter = "listlowerletter"
	TypeListUpperRoman  = "listupperroman"
	TypeListLowerRoman  = "listlowerroman"
)

// Reference bare modifiers.
const (
	ModBold          = "bold"
	ModItalic        = "italic"
	ModUnderline     = "underline"
	ModStrikethrough = "strikethrough"
	ModCode          = "code"
	ModSuperscript   = "superscript"
	ModSubscript     = "subscript"
	ModLowercase     = "lowercase"
	ModUppercase     = "uppercase"
	ModSentencecase  = "sentencecase"
	ModCapitalize    = "capitalize"
)

// Reference modifier definition types.
const (
	DefIndent    = "indent"
	DefAlignment = "alignment"
	DefFont      = "font"
	DefColor     = "color"
	DefHighlight = "highlight"
	DefLink      = "link"
)

var (
	referenceSegmentTypes = []string{
		TypeText,
		TypeListBullet, TypeListNumber, TypeListUpperLetter, TypeListLowerLetter, TypeListUpperRoman, TypeListLowerRoman,
		TypeParagraph, TypeQuote, TypeHorizontalRule,
		TypeHeading1, TypeHeading2, TypeHeading3, TypeHeading4, TypeHeading5, TypeHeading6,
	}
	referenceBareModifiers = []string{
		ModBold, ModItalic, ModUnderline, ModStrikethrough, ModCode, ModSuperscript, ModSubscript,
		ModLowercase, ModUppercase, ModSentencecase, ModCapitalize,
	}
	referenceModDefTypes = []string{DefIndent, DefAlignment, DefFont, DefColor, DefHighlight, DefLink}
)

// Vocabulary is the set of segment types, bare modifier names and modifier
// definition types considered "known". It never restricts what a document may
// contain; it only separates known content from custom content.
//
// A Vocabulary is immutable: the With* methods return extended copies.
type Vocabulary struct {
	segments map[string]struct{}
	bare     map[string]struct{}
	defs     map[string]struct{}
}

// DefaultVocabulary returns the reference vocabulary.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(referenceSegmentTypes, referenceBareModifiers, referenceModDefTypes)
}

// NewVocabulary builds a vocabulary from explicit lists.
func NewVocabulary(segmentTypes, bareModifiers, modDefTypes []string) Vocabulary {
	return Vocabulary{
		segments: toSet(nil, segmentTypes),
		bare:     toSet(nil, bareModifiers),
		defs:     toSet(nil, modDefTypes),
	}
}

// IsZero reports whether the vocabulary was never initialised.
func (v Vocabulary) IsZero() bool {
	return v.segments == nil && v.bare == nil && v.defs == nil
}

func (v Vocabulary) IsSegmentType(t string) bool {
	_, ok := v.segments[t]
	return ok
}

func (v Vocabulary) IsBareModifier(m string) bool {
	_, ok := v.bare[m]
	return ok
}

func (v Vocabulary) IsModDefType(t string) bool {
	_, ok := v.defs[t]
	return ok
}

// IsModifierType reports whether t names a known bare modifier or a known
// modifier definition type.
func (v Vocabulary) IsModifierType(t string) bool {
	return v.IsBareModifier(t) || v.IsModDefType(t)
}

func (v Vocabulary) WithSegmentTypes(types ...string) Vocabulary {
	v.segments = toSet(v.segments, types)
	return v
}

func (v Vocabulary) WithBareModifiers(names ...string) Vocabulary {
	v.bare = toSet(v.bare, names)
	return v
}

func (v Vocabulary) WithModDefTypes(types ...string) Vocabulary {
	v.defs = toSet(v.defs, types)
	return v
}

func toSet(base map[string]struct{}, items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+len(items))
	for k := range base {
		out[k] = struct{}{}
	}
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

// HeadingLevel returns 1..6 for heading types and 0 otherwise.
func HeadingLevel(t string) int {
	if !strings.HasPrefix(t, "heading") || len(t) != len("heading")+1 {
		return 0
	}
	lvl := int(t[len(t)-1] - '0')
	if lvl < 1 || lvl > 6 {
		return 0
	}
	return lvl
}

// ListStyle describes how list items are numbered.
type ListStyle int

const (
	NotAList ListStyle = iota
	ListBullet
	ListDecimal
	ListUpperLetter
	ListLowerLetter
	ListUpperRoman
	ListLowerRoman
)

// ListStyleOf maps a list segment type to its numbering style.
func ListStyleOf(t string) ListStyle {
	switch t {
	case TypeListBullet:
		return ListBullet
	case TypeListNumber:
		return ListDecimal
	case TypeListUpperLetter:
		return ListUpperLetter
	case TypeListLowerLetter:
		return ListLowerLetter
	case TypeListUpperRoman:
		return ListUpperRoman
	case TypeListLowerRoman:
		return ListLowerRoman
	}
	return NotAList
}

// IsListType reports whether t is one of the reference list types.
func IsListType(t string) bool { return ListStyleOf(t) != NotAList }

// Marker formats the n-th item marker for the style ("3", "C", "iii", ...).
// Bullet lists always return "•".
func (s ListStyle) Marker(n int) string {
	switch s {
	case ListBullet:
		return "•"
	case ListDecimal:
		return strconv.Itoa(n)
	case ListUpperLetter:
		return strings.ToUpper(letters(n))
	case ListLowerLetter:
		return letters(n)
	case ListUpperRoman:
		return strings.ToUpper(roman(n))
	case ListLowerRoman:
		return roman(n)
	}
	return ""
}

// letters renders n as a bijective base-26 sequence: 1=a, 26=z, 27=aa.
func letters(n int) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('a' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func roman(n int) string {
	if n <= 0 || n >= 4000 {
		return strconv.Itoa(n)
	}
	vals := []int{1000, 900, 500, 400, 100, 90, 50, 40, 10, 9, 5, 4, 1}
	syms := []string{"m", "cm", "d", "cd", "c", "xc", "l", "xl", "x", "ix", "v", "iv", "i"}
	var sb strings.Builder
	for i, v := range vals {
		for n >= v {
			sb.WriteString(syms[i])
			n -= v
		}
	}
	return sb.String()
}
