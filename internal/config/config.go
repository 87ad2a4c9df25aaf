package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	sw "github.com/grahms/segmentweaver"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	Render RenderConfig `yaml:"render"`
	Cache  CacheConfig  `yaml:"cache"`
}

// RenderConfig holds the default engine policy.
type RenderConfig struct {
	ErrorOnUnknowns         bool `yaml:"error_on_unknowns"`
	RenderUnknownComponents bool `yaml:"render_unknown_components"`
	RenderHardBreaks        bool `yaml:"render_hard_breaks"`
	MaxDepth                int  `yaml:"max_depth"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	MaxEntries    int           `yaml:"max_entries"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:           "8090",
		LogLevel:       "info",
		MaxUploadBytes: 10 << 20, // 10MB
		Render: RenderConfig{
			MaxDepth: sw.DefaultMaxDepth,
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			TTL:        10 * time.Minute,
			MaxEntries: 1024,
		},
	}
}

// Load reads the optional YAML file at path over the defaults, then applies
// SEGMENTWEAVER_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.Port = envOr("SEGMENTWEAVER_PORT", cfg.Port)
	cfg.LogLevel = envOr("SEGMENTWEAVER_LOG_LEVEL", cfg.LogLevel)
	cfg.MaxUploadBytes = envInt64("SEGMENTWEAVER_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.Render.ErrorOnUnknowns = envBool("SEGMENTWEAVER_ERROR_ON_UNKNOWNS", cfg.Render.ErrorOnUnknowns)
	cfg.Render.RenderUnknownComponents = envBool("SEGMENTWEAVER_RENDER_UNKNOWN_COMPONENTS", cfg.Render.RenderUnknownComponents)
	cfg.Render.RenderHardBreaks = envBool("SEGMENTWEAVER_RENDER_HARD_BREAKS", cfg.Render.RenderHardBreaks)
	cfg.Render.MaxDepth = envInt("SEGMENTWEAVER_MAX_DEPTH", cfg.Render.MaxDepth)

	cfg.Cache.Backend = envOr("SEGMENTWEAVER_CACHE", cfg.Cache.Backend)
	cfg.Cache.TTL = envDuration("SEGMENTWEAVER_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.MaxEntries = envInt("SEGMENTWEAVER_CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries)
	cfg.Cache.RedisAddr = envOr("SEGMENTWEAVER_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = envOr("SEGMENTWEAVER_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = envInt("SEGMENTWEAVER_REDIS_DB", cfg.Cache.RedisDB)

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.Render.MaxDepth <= 0 {
		cfg.Render.MaxDepth = sw.DefaultMaxDepth
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 1024
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("SEGMENTWEAVER_REDIS_ADDR is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	return nil
}

// Policy returns the engine policy described by the render section.
func (c RenderConfig) Policy() sw.Policy {
	return sw.Policy{
		ErrorOnUnknowns:         c.ErrorOnUnknowns,
		RenderUnknownComponents: c.RenderUnknownComponents,
		RenderHardBreaks:        c.RenderHardBreaks,
		MaxDepth:                c.MaxDepth,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
