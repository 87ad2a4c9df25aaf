package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sw "github.com/grahms/segmentweaver"
)

func Test_Load(t *testing.T) {
	t.Run("should fall back to defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("should read yaml and apply env overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "segmentweaver.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
render:
  error_on_unknowns: true
  max_depth: 32
cache:
  backend: redis
  ttl: 1h
  redis_addr: localhost:6379
`), 0o600))
		t.Setenv("SEGMENTWEAVER_PORT", "9100")
		t.Setenv("SEGMENTWEAVER_RENDER_HARD_BREAKS", "true")
		t.Setenv("SEGMENTWEAVER_CACHE_TTL", "not-a-duration")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "9100", cfg.Port)
		assert.Equal(t, CacheRedis, cfg.Cache.Backend)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
		assert.Equal(t, sw.Policy{ErrorOnUnknowns: true, RenderHardBreaks: true, MaxDepth: 32}, cfg.Render.Policy())
		assert.NoError(t, cfg.Validate())
	})

	t.Run("should fail on a missing or broken file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)

		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [1"), 0o600))
		_, err = Load(path)
		assert.Error(t, err)
	})
}

func Test_Validate(t *testing.T) {
	t.Run("should require a redis address for the redis cache", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.Backend = CacheRedis
		assert.Error(t, cfg.Validate())
	})

	t.Run("should reject unknown cache backends", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.Backend = "memcached"
		assert.Error(t, cfg.Validate())
	})
}
