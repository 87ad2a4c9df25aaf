package segmentweaver

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrUnresolvedModifier  = errors.New("unresolved modifier reference")
	ErrUnknownSegmentType  = errors.New("unknown segment type")
	ErrUnknownModifierType = errors.New("unknown modifier type")
	ErrMalformedSegment    = errors.New("malformed segment")
	ErrInvalidSegment      = errors.New("invalid segment")
)

// Field names used in a Path.
const (
	FieldContent  = "content"
	FieldChildren = "children"
)

// PathStep is one hop from a parent segment list into an element.
// Field is empty for the top-level list.
type PathStep struct {
	Field string
	Index int
}

// Path locates a segment within a document, e.g. [0].content[2].children[0].
type Path []PathStep

// String returns the path in bracket notation; the empty path is "$".
func (p Path) String() string {
	if len(p) == 0 {
		return "$"
	}
	var sb strings.Builder
	for i, step := range p {
		if step.Field != "" {
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(step.Field)
		}
		fmt.Fprintf(&sb, "[%d]", step.Index)
	}
	return sb.String()
}

// SegmentError carries the location shared by every engine error.
type SegmentError struct {
	Path    Path   // Where the segment sits in the document
	ID      string // Segment id, if it has one
	Type    string // Segment type, if it has one
	Message string
}

// Error implements the error interface.
func (e *SegmentError) Error() string {
	return e.Message + " " + e.where()
}

func (e *SegmentError) where() string {
	var sb strings.Builder
	sb.WriteString("at ")
	sb.WriteString(e.Path.String())
	switch {
	case e.ID != "" && e.Type != "":
		fmt.Fprintf(&sb, " (id %q, type %q)", e.ID, e.Type)
	case e.ID != "":
		fmt.Fprintf(&sb, " (id %q)", e.ID)
	case e.Type != "":
		fmt.Fprintf(&sb, " (type %q)", e.Type)
	}
	return sb.String()
}

// MalformedSegmentError reports a segment with a missing type or a
// structurally invalid field.
type MalformedSegmentError struct {
	SegmentError
	Field string // Offending key, if known
}

func (e *MalformedSegmentError) Error() string {
	return fmt.Sprintf("malformed segment %s: %s", e.where(), e.Message)
}

func (e *MalformedSegmentError) Is(target error) bool { return target == ErrMalformedSegment }

// UnknownSegmentTypeError reports a segment type with no serializer and no
// applicable fallback.
type UnknownSegmentTypeError struct {
	SegmentError
}

func (e *UnknownSegmentTypeError) Error() string {
	return fmt.Sprintf("unknown segment type %q %s", e.Type, e.where())
}

func (e *UnknownSegmentTypeError) Is(target error) bool { return target == ErrUnknownSegmentType }

// UnknownModifierTypeError reports a resolved modifier whose type has no
// serializer and no applicable fallback.
type UnknownModifierTypeError struct {
	SegmentError
	Modifier Modifier
}

func (e *UnknownModifierTypeError) Error() string {
	return fmt.Sprintf("unknown modifier type %q (ref %q) %s", e.Modifier.Type, e.Modifier.Ref, e.where())
}

func (e *UnknownModifierTypeError) Is(target error) bool { return target == ErrUnknownModifierType }

// UnresolvedModifierError reports a mods entry that is neither a known bare
// modifier nor the id of one of the segment's own modDefs.
type UnresolvedModifierError struct {
	SegmentError
	Reference string // The mods entry
	Index     int    // Position in mods
}

func (e *UnresolvedModifierError) Error() string {
	return fmt.Sprintf("unresolved modifier %q (mods[%d]) %s", e.Reference, e.Index, e.where())
}

func (e *UnresolvedModifierError) Is(target error) bool { return target == ErrUnresolvedModifier }

// ValidationError reports a segment or modifier definition that failed a
// registered Validator.
type ValidationError struct {
	SegmentError
	Subject   string // Segment or modifier definition type that was validated
	SubjectID string
}

func (e *ValidationError) Error() string {
	if e.SubjectID != "" {
		return fmt.Sprintf("validation failed for %s %q %s: %s", e.Subject, e.SubjectID, e.where(), e.Message)
	}
	return fmt.Sprintf("validation failed for %s %s: %s", e.Subject, e.where(), e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidSegment }

// SerializerError wraps an error returned by a host serializer.
type SerializerError struct {
	SegmentError
	Err error
}

func (e *SerializerError) Error() string {
	return fmt.Sprintf("serializer failed %s: %v", e.where(), e.Err)
}

func (e *SerializerError) Unwrap() error { return e.Err }

// AggregateError collects every problem found by Validate.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d problems:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// Problems returns the collected errors if err is an AggregateError,
// a one-element slice for any other non-nil error, and nil otherwise.
func Problems(err error) []error {
	if err == nil {
		return nil
	}
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return []error{err}
}

// NewMalformedSegmentError creates a MalformedSegmentError.
func NewMalformedSegmentError(at SegmentError, field, reason string) *MalformedSegmentError {
	at.Message = reason
	return &MalformedSegmentError{SegmentError: at, Field: field}
}

// NewUnknownSegmentTypeError creates an UnknownSegmentTypeError.
func NewUnknownSegmentTypeError(at SegmentError) *UnknownSegmentTypeError {
	at.Message = "no serializer registered"
	return &UnknownSegmentTypeError{SegmentError: at}
}

// NewUnknownModifierTypeError creates an UnknownModifierTypeError.
func NewUnknownModifierTypeError(at SegmentError, m Modifier) *UnknownModifierTypeError {
	at.Message = "no modifier serializer registered"
	return &UnknownModifierTypeError{SegmentError: at, Modifier: m}
}

// NewUnresolvedModifierError creates an UnresolvedModifierError.
func NewUnresolvedModifierError(at SegmentError, ref string, index int) *UnresolvedModifierError {
	at.Message = "reference matches no bare modifier and no local modDef"
	return &UnresolvedModifierError{SegmentError: at, Reference: ref, Index: index}
}

// NewValidationError creates a ValidationError.
func NewValidationError(at SegmentError, subject, subjectID, message string) *ValidationError {
	at.Message = message
	return &ValidationError{SegmentError: at, Subject: subject, SubjectID: subjectID}
}

func newSerializerError(at SegmentError, err error) *SerializerError {
	at.Message = err.Error()
	return &SerializerError{SegmentError: at, Err: err}
}

// isEngineError reports whether err already carries a document location, so
// nested renders do not wrap it twice.
func isEngineError(err error) bool {
	var (
		malformed  *MalformedSegmentError
		unknownSeg *UnknownSegmentTypeError
		unknownMod *UnknownModifierTypeError
		unresolved *UnresolvedModifierError
		invalid    *ValidationError
		serializer *SerializerError
	)
	return errors.As(err, &malformed) || errors.As(err, &unknownSeg) || errors.As(err, &unknownMod) ||
		errors.As(err, &unresolved) || errors.As(err, &invalid) || errors.As(err, &serializer)
}
