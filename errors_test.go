package segmentweaver

import (
	"errors"
	"strings"
	"testing"
)

func Test_Engine_Should_Report_UnknownSegmentType(t *testing.T) {
	reg := NewRegistry[string]()

	// Strict mode
	en := NewEngine(reg, WithErrorOnUnknowns(true))
	_, err := en.Render([]Segment{{ID: "s1", Type: "callout"}})

	if err == nil {
		t.Fatal("expected error for unknown segment type, got nil")
	}

	// Check that it's the right error type
	unknown, ok := err.(*UnknownSegmentTypeError)
	if !ok {
		t.Fatalf("expected UnknownSegmentTypeError, got %T: %v", err, err)
	}

	// Check error details
	if unknown.ID != "s1" {
		t.Errorf("expected id 's1', got %q", unknown.ID)
	}
	if unknown.Type != "callout" {
		t.Errorf("expected type 'callout', got %q", unknown.Type)
	}
	if !errors.Is(err, ErrUnknownSegmentType) {
		t.Errorf("expected errors.Is to match ErrUnknownSegmentType")
	}
	if !strings.Contains(err.Error(), `"callout"`) || !strings.Contains(err.Error(), "at [0]") {
		t.Errorf("error message lacks type or location: %s", err.Error())
	}
}

func Test_Engine_Should_Continue_After_Error_In_DegradeMode(t *testing.T) {
	reg := NewRegistry[string]()
	reg.HandleSegment(TypeText, func(n *Node[string], e *Engine[string]) (string, error) {
		return n.Text(), nil
	})

	var handled []error
	en := NewEngine(reg, WithErrorHandler(func(err error) { handled = append(handled, err) }))
	out, err := en.Render([]Segment{
		{Type: TypeText, Props: map[string]any{"text": "First"}},
		{Type: "bogus"},
		{Type: TypeText, Props: map[string]any{"text": "Last"}},
	})

	// Should not return an error
	if err != nil {
		t.Fatalf("expected no error in degrade mode, got: %v", err)
	}

	// One slot per input, the unknown one empty
	if len(out) != 3 {
		t.Fatalf("expected 3 units, got %d", len(out))
	}
	if out[0] != "First" || out[1] != "" || out[2] != "Last" {
		t.Errorf("unexpected output: %q", out)
	}

	if len(handled) != 1 {
		t.Fatalf("expected 1 handled error, got %d", len(handled))
	}
	if _, ok := handled[0].(*UnknownSegmentTypeError); !ok {
		t.Errorf("expected UnknownSegmentTypeError, got %T", handled[0])
	}
}

func Test_Errors_Should_Match_Sentinels(t *testing.T) {
	at := SegmentError{Path: Path{{Index: 2}, {Field: FieldContent, Index: 0}}, ID: "n", Type: "text"}
	cases := []struct {
		err      error
		sentinel error
	}{
		{NewMalformedSegmentError(at, "mods", "bad shape"), ErrMalformedSegment},
		{NewUnknownSegmentTypeError(at), ErrUnknownSegmentType},
		{NewUnknownModifierTypeError(at, Modifier{Ref: "x", Type: "x"}), ErrUnknownModifierType},
		{NewUnresolvedModifierError(at, "x", 0), ErrUnresolvedModifier},
		{NewValidationError(at, DefLink, "l1", "href is required"), ErrInvalidSegment},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.sentinel) {
			t.Errorf("%T: expected errors.Is(%v)", c.err, c.sentinel)
		}
		if !strings.Contains(c.err.Error(), "[2].content[0]") {
			t.Errorf("%T: message lacks path: %s", c.err, c.err.Error())
		}
		if !isEngineError(c.err) {
			t.Errorf("%T: expected isEngineError", c.err)
		}
	}
}

func Test_Errors_Should_Format_Path(t *testing.T) {
	if got := (Path{}).String(); got != "$" {
		t.Errorf("expected '$' for empty path, got %q", got)
	}
	p := Path{{Index: 0}, {Field: FieldContent, Index: 1}, {Field: FieldChildren, Index: 3}}
	if got := p.String(); got != "[0].content[1].children[3]" {
		t.Errorf("unexpected path %q", got)
	}
}

func Test_Errors_Should_Unwrap_SerializerError(t *testing.T) {
	cause := errors.New("disk full")
	err := newSerializerError(SegmentError{ID: "p1"}, cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected SerializerError to unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("message lacks cause: %s", err.Error())
	}
}

func Test_Errors_Should_Aggregate(t *testing.T) {
	a := NewUnknownSegmentTypeError(SegmentError{Type: "a"})
	b := NewUnresolvedModifierError(SegmentError{Type: "b"}, "ref", 1)
	err := &AggregateError{Errors: []error{a, b}}

	if !errors.Is(err, ErrUnknownSegmentType) || !errors.Is(err, ErrUnresolvedModifier) {
		t.Error("expected AggregateError to expose every collected error")
	}
	if !strings.HasPrefix(err.Error(), "2 problems:") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if got := Problems(err); len(got) != 2 {
		t.Errorf("expected 2 problems, got %d", len(got))
	}
	if got := Problems(a); len(got) != 1 {
		t.Errorf("expected 1 problem for a plain error, got %d", len(got))
	}
	if Problems(nil) != nil {
		t.Error("expected no problems for nil")
	}
	single := &AggregateError{Errors: []error{a}}
	if single.Error() != a.Error() {
		t.Errorf("expected single aggregate to read like its error, got %s", single.Error())
	}
}
