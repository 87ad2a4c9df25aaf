package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sw "github.com/grahms/segmentweaver"
	"github.com/grahms/segmentweaver/internal/cache"
	"github.com/grahms/segmentweaver/internal/config"
)

const doc = `[
	{"type":"heading1","content":[{"type":"text","text":"Title"}]},
	{"type":"paragraph","content":[
		{"type":"text","text":"see ","mods":["bold"]},
		{"type":"text","text":"docs","mods":["l"],"modDefs":[{"id":"l","type":"link","href":"https://example.com"}]}
	]}
]`

// run executes the root command with fresh flag values.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	reset(rootCmd)
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func reset(cmd *cobra.Command) {
	visit := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(visit)
	cmd.PersistentFlags().VisitAll(visit)
	for _, c := range cmd.Commands() {
		reset(c)
	}
}

func Test_RenderCommand(t *testing.T) {
	t.Run("should render html when not writing to a terminal", func(t *testing.T) {
		out, err := run(t, doc, "render")
		require.NoError(t, err)
		assert.Equal(t, `<h1>Title</h1><p><strong>see </strong><a href="https://example.com">docs</a></p>`+"\n", out)
	})

	t.Run("should render markdown", func(t *testing.T) {
		out, err := run(t, doc, "render", "--format", "markdown")
		require.NoError(t, err)
		assert.Contains(t, out, "# Title")
		assert.Contains(t, out, "[docs](https://example.com)")
	})

	t.Run("should render plain text from a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.json")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
		out, err := run(t, "", "render", "-f", "text", "--plain", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Title")
		assert.Contains(t, out, "see docs")
		assert.NotContains(t, out, "\x1b[")
	})

	t.Run("should honour select", func(t *testing.T) {
		out, err := run(t, doc, "render", "--select", "$[0]")
		require.NoError(t, err)
		assert.Equal(t, "<h1>Title</h1>\n", out)
	})

	t.Run("should fail in strict mode on unknown types", func(t *testing.T) {
		_, err := run(t, `{"type":"callout"}`, "render", "--strict")
		require.Error(t, err)
		assert.ErrorIs(t, err, sw.ErrUnknownSegmentType)
	})
}

func Test_ValidateCommand(t *testing.T) {
	t.Run("should accept a valid document", func(t *testing.T) {
		out, err := run(t, doc, "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "document is valid")
	})

	t.Run("should list problems and fail", func(t *testing.T) {
		out, err := run(t, `[{"type":"callout"},{"type":"text","text":"x","mods":["nope"]}]`, "validate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 problem(s)")
		assert.Equal(t, 2, strings.Count("\n"+out, "\n- "))
	})

	t.Run("should allow unknown types on request", func(t *testing.T) {
		_, err := run(t, `{"type":"callout"}`, "validate", "--allow-unknown")
		assert.NoError(t, err)
	})
}

func Test_ImportCommand(t *testing.T) {
	t.Run("should import markdown from stdin", func(t *testing.T) {
		out, err := run(t, "# Hi\n\nthere", "import", "--format", "markdown")
		require.NoError(t, err)
		segs, err := sw.Decode([]byte(out))
		require.NoError(t, err)
		require.Len(t, segs, 2)
		assert.Equal(t, sw.TypeHeading1, segs[0].Type)
	})

	t.Run("should pick the importer from the file extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "page.html")
		require.NoError(t, os.WriteFile(path, []byte("<ul><li>a</li></ul>"), 0o644))
		out, err := run(t, "", "import", path)
		require.NoError(t, err)
		segs, err := sw.Decode([]byte(out))
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.Equal(t, sw.TypeListBullet, segs[0].Type)
	})

	t.Run("should require a format for stdin", func(t *testing.T) {
		_, err := run(t, "x", "import")
		assert.Error(t, err)
	})
}

func Test_ResolveCommand(t *testing.T) {
	t.Run("should print the tree with resolved modifiers", func(t *testing.T) {
		out, err := run(t, doc, "resolve")
		require.NoError(t, err)
		assert.Contains(t, out, "heading1\n")
		assert.Contains(t, out, `  text "see " [bold]`)
		assert.Contains(t, out, `  text "docs" [link(l)]`)
	})

	t.Run("should mark unresolved references and dump definitions", func(t *testing.T) {
		out, err := run(t, `{"type":"text","text":"x","mods":["nope","c"],"modDefs":[{"id":"c","type":"color","hex":"#ff0000"}]}`,
			"resolve", "--dump")
		require.NoError(t, err)
		assert.Contains(t, out, `text "x" [nope? color(c)]`)
		assert.Contains(t, out, "#ff0000")
	})
}

func Test_VersionCommand(t *testing.T) {
	t.Run("should print the version", func(t *testing.T) {
		out, err := run(t, "", "version")
		require.NoError(t, err)
		assert.Equal(t, "segmentweaver version "+sw.Version+"\n", out)
	})
}

func Test_OpenCache(t *testing.T) {
	ctx := context.Background()

	t.Run("should build the configured backend", func(t *testing.T) {
		c, err := openCache(ctx, config.CacheConfig{Backend: config.CacheNone})
		require.NoError(t, err)
		assert.IsType(t, cache.Nop{}, c)

		c, err = openCache(ctx, config.CacheConfig{Backend: config.CacheMemory, MaxEntries: 4, TTL: time.Minute})
		require.NoError(t, err)
		assert.IsType(t, &cache.Memory{}, c)
	})

	t.Run("should connect to redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := openCache(ctx, config.CacheConfig{Backend: config.CacheRedis, RedisAddr: mr.Addr(), TTL: time.Minute})
		require.NoError(t, err)
		defer c.Close()
		require.NoError(t, c.Set(ctx, "k", []byte("v")))
		assert.True(t, mr.Exists("segmentweaver:render:k"))
	})

	t.Run("should fail on an unreachable redis", func(t *testing.T) {
		_, err := openCache(ctx, config.CacheConfig{Backend: config.CacheRedis, RedisAddr: "127.0.0.1:1"})
		assert.Error(t, err)
	})

	t.Run("should reject unknown backends", func(t *testing.T) {
		_, err := openCache(ctx, config.CacheConfig{Backend: "memcached"})
		assert.Error(t, err)
	})
}
