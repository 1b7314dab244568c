// Package config loads and validates the gateway configuration from YAML
// or JSON files with environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backend constants.
const (
	StoreBackendMemory = "memory" // In-memory only, development and tests
	StoreBackendNATSKV = "natskv" // NATS JetStream KV buckets
)

// Config represents the complete gateway configuration.
type Config struct {
	HTTP     HTTPConfig     `json:"http" yaml:"http"`
	NATS     NATSConfig     `json:"nats" yaml:"nats"`
	Mongo    MongoConfig    `json:"mongo" yaml:"mongo"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Defaults DefaultsConfig `json:"defaults" yaml:"defaults"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// HTTPConfig holds the HTTP listener settings.
type HTTPConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	CORSOrigins    []string `json:"corsOrigins" yaml:"corsOrigins"`
	MaxRequestSize int64    `json:"maxRequestSize" yaml:"maxRequestSize"`
	MetricsAddr    string   `json:"metricsAddr" yaml:"metricsAddr"`
}

// NATSConfig holds the NATS connection settings. An empty URL disables
// NATS entirely: the KV store backend and event emission both need it.
type NATSConfig struct {
	URL         string        `json:"url" yaml:"url"`
	Name        string        `json:"name" yaml:"name"`
	ReplyWindow time.Duration `json:"replyWindow" yaml:"replyWindow"`
}

// MongoConfig holds the cache mirror settings. An empty URI disables the
// mirror; the gateway then serves queries from the canonical store.
type MongoConfig struct {
	URI        string `json:"uri" yaml:"uri"`
	Database   string `json:"database" yaml:"database"`
	Collection string `json:"collection" yaml:"collection"`
}

// StoreConfig selects the canonical store backend.
type StoreConfig struct {
	Backend string `json:"backend" yaml:"backend"`
}

// DefaultsConfig tunes dispatcher behavior.
type DefaultsConfig struct {
	PageLimit             int  `json:"pageLimit" yaml:"pageLimit"`
	EnforceAttributeFlags bool `json:"enforceAttributeFlags" yaml:"enforceAttributeFlags"`
}

// LoggingConfig holds the slog setup.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "text"
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
		NATS: NATSConfig{
			Name:        "objectgateway",
			ReplyWindow: 5 * time.Second,
		},
		Mongo: MongoConfig{
			Database:   "objectgateway",
			Collection: "records",
		},
		Store: StoreConfig{
			Backend: StoreBackendMemory,
		},
		Defaults: DefaultsConfig{
			PageLimit: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the configuration file at path, layered over defaults, then
// applies environment overrides. An empty path loads defaults plus
// environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays OBJECTGATEWAY_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("OBJECTGATEWAY_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("OBJECTGATEWAY_METRICS_ADDR"); v != "" {
		c.HTTP.MetricsAddr = v
	}
	if v := os.Getenv("OBJECTGATEWAY_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("OBJECTGATEWAY_MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("OBJECTGATEWAY_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("OBJECTGATEWAY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OBJECTGATEWAY_PAGE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Defaults.PageLimit = n
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("config: http.addr cannot be empty")
	}

	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendNATSKV:
		if c.NATS.URL == "" {
			return fmt.Errorf("config: store backend %q requires nats.url", c.Store.Backend)
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	if c.Mongo.URI != "" {
		if c.Mongo.Database == "" {
			return fmt.Errorf("config: mongo.database cannot be empty when mongo.uri is set")
		}
		if c.Mongo.Collection == "" {
			return fmt.Errorf("config: mongo.collection cannot be empty when mongo.uri is set")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}

	if c.Defaults.PageLimit < 0 {
		return fmt.Errorf("config: defaults.pageLimit cannot be negative")
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	cp.HTTP.CORSOrigins = append([]string(nil), c.HTTP.CORSOrigins...)
	return &cp
}
