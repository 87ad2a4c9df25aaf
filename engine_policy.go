package segmentweaver

import (
	"io"
	"log/slog"
)

// DefaultMaxDepth bounds nesting so aliased or cyclic input cannot recurse forever.
const DefaultMaxDepth = 512

// Policy decides what happens at every dispatch point where something is
// unknown, unresolved or malformed.
type Policy struct {
	// ErrorOnUnknowns aborts the render with a typed error. It wins over
	// RenderUnknownComponents.
	ErrorOnUnknowns bool
	// RenderUnknownComponents lets configured fallbacks render unknown
	// segments and modifiers. Without it unknowns render nothing.
	RenderUnknownComponents bool
	// RenderHardBreaks turns line breaks in text into explicit break units.
	RenderHardBreaks bool
	// RenderPlainText skips dispatch entirely and emits text units only.
	RenderPlainText bool
	// MaxDepth limits nesting. Values <= 0 mean DefaultMaxDepth; the limit
	// cannot be switched off.
	MaxDepth int
}

// DefaultPolicy degrades gracefully: unknown content renders as nothing.
func DefaultPolicy() Policy {
	return Policy{MaxDepth: DefaultMaxDepth}
}

type settings struct {
	policy     Policy
	vocab      Vocabulary
	validators *ValidatorRegistry
	logger     *slog.Logger
	onDegraded func(error)
}

// Option configures an Engine.
type Option func(*settings)

// WithPolicy replaces the whole policy.
func WithPolicy(p Policy) Option {
	return func(s *settings) { s.policy = p }
}

func WithErrorOnUnknowns(v bool) Option {
	return func(s *settings) { s.policy.ErrorOnUnknowns = v }
}

func WithRenderUnknownComponents(v bool) Option {
	return func(s *settings) { s.policy.RenderUnknownComponents = v }
}

func WithRenderHardBreaks(v bool) Option {
	return func(s *settings) { s.policy.RenderHardBreaks = v }
}

func WithRenderPlainText(v bool) Option {
	return func(s *settings) { s.policy.RenderPlainText = v }
}

func WithMaxDepth(n int) Option {
	return func(s *settings) { s.policy.MaxDepth = n }
}

// WithVocabulary sets the vocabulary used to recognise bare modifier names.
func WithVocabulary(v Vocabulary) Option {
	return func(s *settings) { s.vocab = v }
}

// WithValidators runs field validators on every segment and modifier
// definition during rendering. Failures go through the same policy as
// unknown types.
func WithValidators(r *ValidatorRegistry) Option {
	return func(s *settings) { s.validators = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithErrorHandler registers fn to observe problems that were degraded
// instead of raised (only called when ErrorOnUnknowns is false).
func WithErrorHandler(fn func(error)) Option {
	return func(s *settings) { s.onDegraded = fn }
}

func newSettings(opts []Option) settings {
	s := settings{
		policy: DefaultPolicy(),
		vocab:  DefaultVocabulary(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(&s)
	}
	if s.vocab.IsZero() {
		s.vocab = DefaultVocabulary()
	}
	if s.policy.MaxDepth <= 0 {
		s.policy.MaxDepth = DefaultMaxDepth
	}
	return s
}
