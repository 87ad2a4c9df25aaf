package segmentweaver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectDoc = `[
	{"type": "heading1", "id": "h", "content": [{"type": "text", "text": "Title"}]},
	{"type": "paragraph", "id": "p", "content": [
		{"type": "text", "text": "one", "mods": ["bold"]},
		{"type": "text", "text": "two"}
	]}
]`

func Test_Select(t *testing.T) {
	t.Run("should select a single segment", func(t *testing.T) {
		segs, err := Select([]byte(selectDoc), "$[1]")
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.Equal(t, "p", segs[0].ID)
		assert.Len(t, segs[0].Content, 2)
	})

	t.Run("should flatten array matches", func(t *testing.T) {
		segs, err := Select([]byte(selectDoc), "$[1].content")
		require.NoError(t, err)
		require.Len(t, segs, 2)
		assert.Equal(t, "one", segs[0].Text())
		assert.Equal(t, []string{ModBold}, segs[0].Mods)
	})

	t.Run("should support filters", func(t *testing.T) {
		segs, err := Select([]byte(selectDoc), `$[?(@.type == 'heading1')]`)
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.Equal(t, "h", segs[0].ID)
	})

	t.Run("should return nothing when nothing matches", func(t *testing.T) {
		segs, err := Select([]byte(selectDoc), "$[7]")
		require.NoError(t, err)
		assert.Empty(t, segs)
	})

	t.Run("should reject scalar matches bad paths and bad JSON", func(t *testing.T) {
		_, err := Select([]byte(selectDoc), "$[0].type")
		assert.Error(t, err)
		_, err = Select([]byte(selectDoc), "$[")
		assert.Error(t, err)
		_, err = Select([]byte(`[{`), "$[0]")
		assert.Error(t, err)
	})
}
