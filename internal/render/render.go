// Package render is the shared rendering service behind the HTTP API, the
// MCP tools and the CLI: decode, select, render in a named format, cache.
package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/muesli/termenv"

	sw "github.com/grahms/segmentweaver"
	"github.com/grahms/segmentweaver/ansirender"
	"github.com/grahms/segmentweaver/htmlrender"
	"github.com/grahms/segmentweaver/internal/cache"
	"github.com/grahms/segmentweaver/mdrender"
)

// Output formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatANSI     = "ansi"
	FormatText     = "text"
)

// Formats lists the supported output formats.
var Formats = []string{FormatHTML, FormatMarkdown, FormatANSI, FormatText}

var (
	// ErrUnknownFormat is returned for a format outside Formats.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrBadDocument wraps JSON and JSONPath failures.
	ErrBadDocument = errors.New("bad document")
)

// PolicyOverrides are the optional policy fields a caller may set per
// request. Unset fields keep the base policy.
type PolicyOverrides struct {
	ErrorOnUnknowns         *bool `json:"errorOnUnknowns,omitempty"`
	RenderUnknownComponents *bool `json:"renderUnknownComponents,omitempty"`
	RenderHardBreaks        *bool `json:"renderHardBreaks,omitempty"`
	RenderPlainText         *bool `json:"renderPlainText,omitempty"`
	MaxDepth                *int  `json:"maxDepth,omitempty"`
}

func (o *PolicyOverrides) Apply(base sw.Policy) sw.Policy {
	if o == nil {
		return base
	}
	if o.ErrorOnUnknowns != nil {
		base.ErrorOnUnknowns = *o.ErrorOnUnknowns
	}
	if o.RenderUnknownComponents != nil {
		base.RenderUnknownComponents = *o.RenderUnknownComponents
	}
	if o.RenderHardBreaks != nil {
		base.RenderHardBreaks = *o.RenderHardBreaks
	}
	if o.RenderPlainText != nil {
		base.RenderPlainText = *o.RenderPlainText
	}
	if o.MaxDepth != nil {
		base.MaxDepth = *o.MaxDepth
	}
	return base
}

// IsDocumentError reports whether err is a problem with the submitted
// document rather than with the service.
func IsDocumentError(err error) bool {
	for _, target := range []error{
		ErrBadDocument,
		sw.ErrMalformedSegment,
		sw.ErrUnknownSegmentType,
		sw.ErrUnknownModifierType,
		sw.ErrUnresolvedModifier,
		sw.ErrInvalidSegment,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Request describes one render.
type Request struct {
	Format string
	// Document is a JSON segment or array of segments.
	Document []byte
	// Select optionally narrows the document with a JSONPath expression.
	Select string
	Policy sw.Policy
}

type Result struct {
	Output   string   `json:"output"`
	Cached   bool     `json:"cached"`
	Degraded []string `json:"degraded,omitempty"`
}

// Service renders documents, consulting the cache first.
type Service struct {
	cache cache.Cache
	log   *slog.Logger
}

// NewService builds a service; a nil cache disables caching.
func NewService(c cache.Cache, log *slog.Logger) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{cache: c, log: log}
}

// Render decodes req.Document and renders it. Degraded problems are collected
// in the result; raised problems are returned as the error.
func (s *Service) Render(ctx context.Context, req Request) (Result, error) {
	format := strings.ToLower(req.Format)
	if format == "" {
		format = FormatHTML
	}
	if req.Policy.MaxDepth <= 0 {
		req.Policy.MaxDepth = sw.DefaultMaxDepth
	}
	key := cache.Key(format, policyKey(req.Policy), req.Select, string(req.Document))
	if res, ok := s.cached(ctx, key); ok {
		return res, nil
	}

	segs, err := Decode(req.Document, req.Select)
	if err != nil {
		return Result{}, err
	}

	var degraded []string
	out, err := Output(format, segs,
		sw.WithPolicy(req.Policy),
		sw.WithLogger(s.log),
		sw.WithErrorHandler(func(err error) { degraded = append(degraded, err.Error()) }),
	)
	if err != nil {
		return Result{}, err
	}
	res := Result{Output: out, Degraded: degraded}
	if b, err := json.Marshal(res); err != nil {
		s.log.Warn("cache encode failed", "error", err)
	} else if err := s.cache.Set(ctx, key, b); err != nil {
		s.log.Warn("cache write failed", "error", err)
	}
	return res, nil
}

// cached returns a stored result, degraded problems included. Unreadable
// entries count as misses.
func (s *Service) cached(ctx context.Context, key string) (Result, bool) {
	b, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("cache read failed", "error", err)
		}
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		s.log.Warn("cache entry unreadable", "error", err)
		return Result{}, false
	}
	res.Cached = true
	return res, true
}

// Validate decodes the document and validates it. Without explicit
// validators the default field validators run.
func (s *Service) Validate(document []byte, selectPath string, opts sw.ValidateOptions) error {
	segs, err := Decode(document, selectPath)
	if err != nil {
		return err
	}
	if opts.Validators == nil {
		opts.Validators = sw.DefaultValidators()
	}
	return sw.Validate(segs, opts)
}

// Decode parses a document, narrowing it with a JSONPath when selectPath is
// set.
func Decode(document []byte, selectPath string) ([]sw.Segment, error) {
	var (
		segs []sw.Segment
		err  error
	)
	if selectPath != "" {
		segs, err = sw.Select(document, selectPath)
	} else {
		segs, err = sw.Decode(document)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadDocument, err)
	}
	return segs, nil
}

// Output renders segments in the named format.
func Output(format string, segs []sw.Segment, opts ...sw.Option) (string, error) {
	switch strings.ToLower(format) {
	case FormatHTML, "":
		return htmlrender.Render(segs, opts...)
	case FormatMarkdown, "md":
		return mdrender.Render(segs, opts...)
	case FormatANSI:
		o := ansirender.DefaultOptions()
		o.Profile = termenv.TrueColor
		return ansirender.Render(segs, o, opts...)
	case FormatText:
		o := ansirender.DefaultOptions()
		o.Profile = termenv.Ascii
		return ansirender.Render(segs, o, opts...)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func policyKey(p sw.Policy) string {
	b, _ := json.Marshal(p)
	return string(b)
}
