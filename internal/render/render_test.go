package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sw "github.com/grahms/segmentweaver"
	"github.com/grahms/segmentweaver/internal/cache"
)

const doc = `[
	{"type":"paragraph","content":[{"type":"text","text":"hi","mods":["bold"]}]},
	{"type":"callout","content":[{"type":"text","text":"x"}]}
]`

func Test_Service_Render(t *testing.T) {
	t.Run("should render and then serve from cache", func(t *testing.T) {
		s := NewService(cache.NewMemory(8, time.Minute), nil)
		ctx := context.Background()

		res, err := s.Render(ctx, Request{Format: FormatHTML, Document: []byte(doc), Policy: sw.DefaultPolicy()})
		require.NoError(t, err)
		assert.Equal(t, "<p><strong>hi</strong></p>", res.Output)
		assert.False(t, res.Cached)
		require.Len(t, res.Degraded, 1)
		assert.Contains(t, res.Degraded[0], "callout")

		res, err = s.Render(ctx, Request{Format: FormatHTML, Document: []byte(doc), Policy: sw.DefaultPolicy()})
		require.NoError(t, err)
		assert.True(t, res.Cached)
		assert.Equal(t, "<p><strong>hi</strong></p>", res.Output)
	})

	t.Run("should keep degraded problems on cache hits", func(t *testing.T) {
		s := NewService(cache.NewMemory(8, time.Minute), nil)
		ctx := context.Background()
		req := Request{Format: FormatHTML, Document: []byte(doc)}

		first, err := s.Render(ctx, req)
		require.NoError(t, err)
		second, err := s.Render(ctx, req)
		require.NoError(t, err)

		assert.True(t, second.Cached)
		assert.Equal(t, first.Output, second.Output)
		require.Len(t, second.Degraded, 1)
		assert.Equal(t, first.Degraded, second.Degraded)
	})

	t.Run("should treat an unset depth limit like the default", func(t *testing.T) {
		s := NewService(cache.NewMemory(8, time.Minute), nil)
		ctx := context.Background()

		_, err := s.Render(ctx, Request{Document: []byte(doc), Policy: sw.Policy{}})
		require.NoError(t, err)
		res, err := s.Render(ctx, Request{Document: []byte(doc), Policy: sw.DefaultPolicy()})
		require.NoError(t, err)
		assert.True(t, res.Cached)
	})

	t.Run("should key the cache by policy", func(t *testing.T) {
		s := NewService(cache.NewMemory(8, time.Minute), nil)
		ctx := context.Background()

		_, err := s.Render(ctx, Request{Format: FormatHTML, Document: []byte(doc)})
		require.NoError(t, err)

		_, err = s.Render(ctx, Request{Format: FormatHTML, Document: []byte(doc), Policy: sw.Policy{ErrorOnUnknowns: true}})
		assert.ErrorIs(t, err, sw.ErrUnknownSegmentType)
	})

	t.Run("should render a selected subtree", func(t *testing.T) {
		s := NewService(nil, nil)
		res, err := s.Render(context.Background(), Request{
			Format:   FormatText,
			Document: []byte(doc),
			Select:   "$[0]",
			Policy:   sw.Policy{ErrorOnUnknowns: true},
		})
		require.NoError(t, err)
		assert.Equal(t, "hi", res.Output)
	})

	t.Run("should reject unknown formats and bad documents", func(t *testing.T) {
		s := NewService(nil, nil)
		_, err := s.Render(context.Background(), Request{Format: "pdf", Document: []byte(doc)})
		assert.ErrorIs(t, err, ErrUnknownFormat)

		_, err = s.Render(context.Background(), Request{Document: []byte(`{"type":`)})
		assert.ErrorIs(t, err, ErrBadDocument)
		assert.True(t, IsDocumentError(err))
	})

	t.Run("should render markdown", func(t *testing.T) {
		out, err := Output(FormatMarkdown, []sw.Segment{{Type: sw.TypeHeading1, Props: map[string]any{"text": "T"}}})
		require.NoError(t, err)
		assert.Equal(t, "# T", out)
	})
}

func Test_Service_Validate(t *testing.T) {
	t.Run("should report every problem", func(t *testing.T) {
		s := NewService(nil, nil)
		err := s.Validate([]byte(`[
			{"type":"callout"},
			{"type":"text","text":"x","mods":["missing"]}
		]`), "", sw.ValidateOptions{})
		require.Error(t, err)
		assert.Len(t, sw.Problems(err), 2)
		assert.ErrorIs(t, err, sw.ErrUnknownSegmentType)
		assert.ErrorIs(t, err, sw.ErrUnresolvedModifier)
	})

	t.Run("should accept a valid document", func(t *testing.T) {
		s := NewService(nil, nil)
		assert.NoError(t, s.Validate([]byte(doc), "$[0]", sw.ValidateOptions{}))
	})
}

func Test_PolicyOverrides(t *testing.T) {
	t.Run("should only override set fields", func(t *testing.T) {
		on, depth := true, 4
		o := &PolicyOverrides{ErrorOnUnknowns: &on, MaxDepth: &depth}
		got := o.Apply(sw.Policy{RenderHardBreaks: true, MaxDepth: 512})
		assert.Equal(t, sw.Policy{ErrorOnUnknowns: true, RenderHardBreaks: true, MaxDepth: 4}, got)

		var none *PolicyOverrides
		assert.Equal(t, sw.DefaultPolicy(), none.Apply(sw.DefaultPolicy()))
	})
}
