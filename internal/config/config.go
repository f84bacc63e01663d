// ABOUTME: Configuration loading and parsing for tabsaver
// ABOUTME: YAML or TOML files with ${VAR} expansion, env overrides, and duration parsing

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Browser backends.
const (
	BackendSession  = "session"
	BackendDevTools = "devtools"
)

// Config represents the complete tabsaver configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Store      StoreConfig      `yaml:"store" toml:"store"`
	Browser    BrowserConfig    `yaml:"browser" toml:"browser"`
	Operations OperationsConfig `yaml:"operations" toml:"operations"`
	Registry   RegistryConfig   `yaml:"registry" toml:"registry"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path" env:"TABSAVER_DATABASE_PATH"`
}

// StoreConfig holds key-value store settings
type StoreConfig struct {
	Namespace string `yaml:"namespace" toml:"namespace" env:"TABSAVER_STORE_NAMESPACE"`
	// Watch picks up changes written by other tabsaver processes.
	Watch bool `yaml:"watch" toml:"watch" env:"TABSAVER_STORE_WATCH"`
}

// BrowserConfig selects where open tabs are read from
type BrowserConfig struct {
	Backend     string `yaml:"backend" toml:"backend" env:"TABSAVER_BROWSER_BACKEND"`
	SessionFile string `yaml:"session_file" toml:"session_file" env:"TABSAVER_BROWSER_SESSION_FILE"`
	DevToolsURL string `yaml:"devtools_url" toml:"devtools_url" env:"TABSAVER_BROWSER_DEVTOOLS_URL"`
}

// OperationsConfig holds per-operation limits
type OperationsConfig struct {
	Timeout time.Duration `yaml:"-" toml:"-"`

	// Raw string value for YAML/TOML unmarshaling
	TimeoutRaw string `yaml:"timeout" toml:"timeout" env:"TABSAVER_OPERATIONS_TIMEOUT"`
}

// RegistryConfig holds identifier registry settings
type RegistryConfig struct {
	MaxRetries int `yaml:"max_retries" toml:"max_retries" env:"TABSAVER_REGISTRY_MAX_RETRIES"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"TABSAVER_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"TABSAVER_LOG_FORMAT"`
	// File, when set, receives logs with size-based rotation.
	File string `yaml:"file" toml:"file" env:"TABSAVER_LOG_FILE"`
}

// Default returns the configuration used when no file exists.
// dataDir is where the database and session file live.
func Default(dataDir string) *Config {
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(dataDir, "tabsaver.db")},
		Store:    StoreConfig{Namespace: "sync", Watch: true},
		Browser: BrowserConfig{
			Backend:     BackendSession,
			SessionFile: filepath.Join(dataDir, "session.json"),
			DevToolsURL: "http://127.0.0.1:9222",
		},
		Operations: OperationsConfig{TimeoutRaw: "10s"},
		Registry:   RegistryConfig{MaxRetries: 5},
		Logging:    LoggingConfig{Level: "warn", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then
// TABSAVER_* variables override file values. Unset fields take defaults
// relative to dataDir.
func Load(path, dataDir string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default(dataDir)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return finish(cfg)
}

// FromEnv returns Default(dataDir) with TABSAVER_* overrides applied.
func FromEnv(dataDir string) (*Config, error) {
	return finish(Default(dataDir))
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Marshal encodes cfg as YAML, for writing a starter config file.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Store.Namespace == "" {
		return fmt.Errorf("store.namespace is required")
	}

	switch c.Browser.Backend {
	case BackendSession:
		if c.Browser.SessionFile == "" {
			return fmt.Errorf("browser.session_file is required for the session backend")
		}
	case BackendDevTools:
		if c.Browser.DevToolsURL == "" {
			return fmt.Errorf("browser.devtools_url is required for the devtools backend")
		}
	default:
		return fmt.Errorf("browser.backend must be %q or %q, got %q", BackendSession, BackendDevTools, c.Browser.Backend)
	}

	if c.Operations.Timeout <= 0 {
		return fmt.Errorf("operations.timeout must be positive")
	}

	if c.Registry.MaxRetries < 0 {
		return fmt.Errorf("registry.max_retries must not be negative")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Operations.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Operations.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing operations.timeout %q: %w", cfg.Operations.TimeoutRaw, err)
		}
		cfg.Operations.Timeout = d
	}
	return nil
}
