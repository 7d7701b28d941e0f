// Package config loads the engine configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the similarity-engine configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Cache    CacheConfig    `yaml:"cache"`
	Postgres PostgresConfig `yaml:"postgres"`
	Engine   EngineConfig   `yaml:"engine"`
	Worker   WorkerConfig   `yaml:"worker"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AuthConfig holds API authentication settings. An empty key list
// disables authentication.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds shared key-value cache connection settings.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds the relational store connection settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// EngineConfig holds similarity scoring parameters.
type EngineConfig struct {
	Threshold          float64 `yaml:"threshold"`             // minimum combined score (default 0.3)
	TopN               int     `yaml:"top_n"`                 // results exposed per query (default 5)
	NeighborTTLSec     int     `yaml:"neighbor_ttl_sec"`      // cached neighbor-list TTL (default 86400)
	RealtimeCorpusCap  int     `yaml:"realtime_corpus_cap"`   // max candidates for on-request model fit (default 1000)
	SuggestTopK        int     `yaml:"suggest_top_k"`         // tag suggestions per query (default 5)
	TagSearchLimit     int     `yaml:"tag_search_limit"`      // prefix search results (default 10)
	MinQueryTitleRunes int     `yaml:"min_query_title_runes"` // realtime path gate (default 3)
}

// WorkerConfig holds background job intervals and queue settings.
type WorkerConfig struct {
	RebuildIntervalSec int    `yaml:"rebuild_interval_sec"` // full model rebuild (default 21600)
	CleanupIntervalSec int    `yaml:"cleanup_interval_sec"` // tag-keyword cleanup (default 86400)
	DrainIntervalSec   int    `yaml:"drain_interval_sec"`   // recompute-queue poll (default 5)
	RecomputeQueueKey  string `yaml:"recompute_queue_key"`  // list key the API pushes case ids onto
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 9090
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if len(c.Cache.Addrs) == 0 {
		c.Cache.Addrs = []string{"localhost:6379"}
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 30
	}
	if c.Engine.Threshold <= 0 {
		c.Engine.Threshold = 0.3
	}
	if c.Engine.TopN <= 0 {
		c.Engine.TopN = 5
	}
	if c.Engine.NeighborTTLSec <= 0 {
		c.Engine.NeighborTTLSec = 86400
	}
	if c.Engine.RealtimeCorpusCap <= 0 {
		c.Engine.RealtimeCorpusCap = 1000
	}
	if c.Engine.SuggestTopK <= 0 {
		c.Engine.SuggestTopK = 5
	}
	if c.Engine.TagSearchLimit <= 0 {
		c.Engine.TagSearchLimit = 10
	}
	if c.Engine.MinQueryTitleRunes <= 0 {
		c.Engine.MinQueryTitleRunes = 3
	}
	if c.Worker.RebuildIntervalSec <= 0 {
		c.Worker.RebuildIntervalSec = 21600
	}
	if c.Worker.CleanupIntervalSec <= 0 {
		c.Worker.CleanupIntervalSec = 86400
	}
	if c.Worker.DrainIntervalSec <= 0 {
		c.Worker.DrainIntervalSec = 5
	}
	if c.Worker.RecomputeQueueKey == "" {
		c.Worker.RecomputeQueueKey = "recompute:queue"
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.Engine.Threshold < 0 || c.Engine.Threshold > 1 {
		return fmt.Errorf("engine.threshold must be in [0, 1], got %v", c.Engine.Threshold)
	}
	if c.Engine.TopN > domainNeighborCacheSize {
		return fmt.Errorf("engine.top_n must not exceed the cached list size %d", domainNeighborCacheSize)
	}
	return nil
}

// Cached neighbor lists hold at most this many entries; top_n serves a
// slice of that, so it cannot be larger.
const domainNeighborCacheSize = 20

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to an empty string.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// findConfigPath resolves config/<env>.yaml relative to CONFIG_DIR,
// the working directory, or the package source tree (for tests).
func findConfigPath(env string) string {
	filename := env + ".yaml"

	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, filename)
	}

	candidate := filepath.Join("config", filename)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}

	// Fall back to the repository layout when run from a package dir.
	if _, src, _, ok := runtime.Caller(0); ok {
		root := filepath.Dir(filepath.Dir(filepath.Dir(src)))
		return filepath.Join(root, "config", filename)
	}

	return candidate
}

// Redacted returns the DSN with any password component masked, for logs.
func (p PostgresConfig) Redacted() string {
	if i := strings.Index(p.DSN, "://"); i >= 0 {
		rest := p.DSN[i+3:]
		if at := strings.Index(rest, "@"); at >= 0 {
			if colon := strings.Index(rest[:at], ":"); colon >= 0 {
				return p.DSN[:i+3] + rest[:colon] + ":***" + rest[at:]
			}
		}
	}
	return p.DSN
}
