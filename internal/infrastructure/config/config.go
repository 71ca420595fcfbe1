package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/glintlabs/glint/internal/engine"
	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/orchestrate"
	"github.com/glintlabs/glint/internal/relay"
	"github.com/glintlabs/glint/internal/search"
	"github.com/glintlabs/glint/internal/snapshot"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Engine      EngineConfig
	Orchestrate OrchestrateConfig
	Search      SearchConfig
	Relay       RelayConfig
	Snapshot    SnapshotConfig
	Session     SessionConfig
	Extract     ExtractConfig
	Logging     LogConfig
	RateLimit   RateLimitConfig
}

// ExtractConfig holds content extraction settings.
type ExtractConfig struct {
	// RulesPath points at a YAML classification ruleset overriding the
	// embedded default. Empty uses the embedded rules.
	RulesPath string `envconfig:"EXTRACT_RULES_PATH"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8400"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// EngineConfig holds the per-session loop settings.
type EngineConfig struct {
	TickInterval   time.Duration `envconfig:"ENGINE_TICK" default:"200ms"`
	CaptureWait    time.Duration `envconfig:"ENGINE_CAPTURE_WAIT" default:"5s"`
	CooldownWindow time.Duration `envconfig:"ENGINE_COOLDOWN" default:"30s"`
	CooldownBucket float64       `envconfig:"ENGINE_COOLDOWN_BUCKET" default:"96"`
	TextKeyLen     int           `envconfig:"ENGINE_TEXT_KEY_LEN" default:"32"`
}

// OrchestrateConfig holds the remote chain endpoints and stage deadlines.
type OrchestrateConfig struct {
	CaptureURL       string        `envconfig:"CAPTURE_URL" default:"http://localhost:8500/v1/capture"`
	ReasoningURL     string        `envconfig:"REASONING_URL" default:"http://localhost:8500/v1/agents"`
	NotebookURL      string        `envconfig:"NOTEBOOK_URL" default:"http://localhost:8500/v1/notebook"`
	CaptureTimeout   time.Duration `envconfig:"CAPTURE_TIMEOUT" default:"10s"`
	ReasoningTimeout time.Duration `envconfig:"REASONING_TIMEOUT" default:"30s"`
	NotebookTimeout  time.Duration `envconfig:"NOTEBOOK_TIMEOUT" default:"10s"`
}

// SearchConfig holds the fallback search settings.
type SearchConfig struct {
	PrimaryURL   string        `envconfig:"SEARCH_PRIMARY_URL"`
	SecondaryURL string        `envconfig:"SEARCH_SECONDARY_URL"`
	Timeout      time.Duration `envconfig:"SEARCH_TIMEOUT" default:"8s"`
	CacheSize    int           `envconfig:"SEARCH_CACHE_SIZE" default:"64"`
	CacheTTL     time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"15m"`
}

// RelayConfig holds the gaze relay settings.
type RelayConfig struct {
	URL            string        `envconfig:"GAZE_URL"`
	PollURL        string        `envconfig:"GAZE_POLL_URL"`
	ReconnectDelay time.Duration `envconfig:"GAZE_RECONNECT_DELAY" default:"2s"`
	PollInterval   time.Duration `envconfig:"GAZE_POLL_INTERVAL" default:"500ms"`
	MinConfidence  float64       `envconfig:"GAZE_MIN_CONFIDENCE" default:"0.5"`
}

// SnapshotConfig holds crop settings.
type SnapshotConfig struct {
	RegionSize float64 `envconfig:"SNAPSHOT_REGION" default:"320"`
}

// SessionConfig holds session persistence settings.
type SessionConfig struct {
	StoreDir string `envconfig:"SESSION_STORE_DIR" default:"./data/sessions"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from GLINT_-prefixed environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("glint", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8400", Host: "0.0.0.0"},
		Engine: EngineConfig{
			TickInterval:   200 * time.Millisecond,
			CaptureWait:    5 * time.Second,
			CooldownWindow: 30 * time.Second,
			CooldownBucket: 96,
			TextKeyLen:     32,
		},
		Orchestrate: OrchestrateConfig{
			CaptureURL:       "http://localhost:8500/v1/capture",
			ReasoningURL:     "http://localhost:8500/v1/agents",
			NotebookURL:      "http://localhost:8500/v1/notebook",
			CaptureTimeout:   10 * time.Second,
			ReasoningTimeout: 30 * time.Second,
			NotebookTimeout:  10 * time.Second,
		},
		Search: SearchConfig{
			Timeout:   8 * time.Second,
			CacheSize: 64,
			CacheTTL:  15 * time.Minute,
		},
		Relay: RelayConfig{
			ReconnectDelay: 2 * time.Second,
			PollInterval:   500 * time.Millisecond,
			MinConfidence:  0.5,
		},
		Snapshot: SnapshotConfig{RegionSize: 320},
		Session:  SessionConfig{StoreDir: "./data/sessions"},
		Logging:  LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// EngineSettings converts to the engine package's config.
func (c *Config) EngineSettings() engine.Config {
	return engine.Config{
		TickInterval:   c.Engine.TickInterval,
		CaptureWait:    c.Engine.CaptureWait,
		CooldownWindow: c.Engine.CooldownWindow,
		CooldownBucket: c.Engine.CooldownBucket,
		TextKeyLen:     c.Engine.TextKeyLen,
	}
}

// OrchestrateSettings converts to the orchestrate package's config.
func (c *Config) OrchestrateSettings() orchestrate.Config {
	return orchestrate.Config{
		CaptureURL:       c.Orchestrate.CaptureURL,
		ReasoningURL:     c.Orchestrate.ReasoningURL,
		CaptureTimeout:   c.Orchestrate.CaptureTimeout,
		ReasoningTimeout: c.Orchestrate.ReasoningTimeout,
	}
}

// SearchSettings converts to the search package's config.
func (c *Config) SearchSettings() search.Config {
	cache := search.DefaultCacheConfig()
	if c.Search.CacheSize > 0 {
		cache.MaxEntries = c.Search.CacheSize
	}
	if c.Search.CacheTTL > 0 {
		cache.TTL = c.Search.CacheTTL
	}
	return search.Config{
		PrimaryURL:   c.Search.PrimaryURL,
		SecondaryURL: c.Search.SecondaryURL,
		Timeout:      c.Search.Timeout,
		Cache:        cache,
	}
}

// RelaySettings converts to the relay package's config.
func (c *Config) RelaySettings() relay.Config {
	return relay.Config{
		URL:            c.Relay.URL,
		PollURL:        c.Relay.PollURL,
		ReconnectDelay: c.Relay.ReconnectDelay,
		PollInterval:   c.Relay.PollInterval,
		MinConfidence:  c.Relay.MinConfidence,
	}
}

// SnapshotSettings converts to the snapshot package's config.
func (c *Config) SnapshotSettings() snapshot.Config {
	return snapshot.Config{RegionSize: c.Snapshot.RegionSize}
}

// LoggingSettings converts to the logging package's config.
func (c *Config) LoggingSettings() logging.Config {
	return logging.Config{
		Level:       c.Logging.Level,
		Development: c.Logging.Development,
		OutputPaths: []string{"stdout"},
	}
}
