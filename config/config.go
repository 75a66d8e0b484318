// Package config loads the service configuration.
//
// Precedence, lowest to highest: built-in defaults, an optional config.yaml
// (searched in "." and "./config", with ${VAR} and ${VAR:-default}
// placeholders expanded), then flat environment variables such as PORT or
// GROQ_API_KEY.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Groq    GroqConfig    `mapstructure:"groq"`
	Static  StaticConfig  `mapstructure:"static"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
	Usage   UsageConfig   `mapstructure:"usage"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`

	// BodySizeLimit uses echo's size syntax ("1M", "512K").
	BodySizeLimit string `mapstructure:"body_size_limit"`

	SwaggerEnabled bool `mapstructure:"swagger_enabled"`
}

// GroqConfig configures the upstream chat-completion API.
type GroqConfig struct {
	// APIKey may be empty; predictions then fail with a configuration error.
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`

	// Timeout is the whole-request timeout in seconds.
	Timeout int `mapstructure:"timeout"`

	MaxRetries int `mapstructure:"max_retries"`
}

// StaticConfig locates the front-end files.
type StaticConfig struct {
	Dir       string `mapstructure:"dir"`
	IndexFile string `mapstructure:"index_file"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Format is "json", "pretty", or "auto" (pretty on a terminal, json otherwise).
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

// UsageConfig controls per-prediction usage tracking.
type UsageConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`

	// FlushInterval is in seconds.
	FlushInterval int `mapstructure:"flush_interval"`

	// RetentionDays of 0 keeps entries forever.
	RetentionDays int `mapstructure:"retention_days"`
}

// StorageConfig selects the usage tracking backend.
type StorageConfig struct {
	Type       string           `mapstructure:"type"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	PostgreSQL PostgreSQLConfig `mapstructure:"postgresql"`
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// Default values.
const (
	DefaultPort          = "8000"
	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultGroqModel     = "llama-3.3-70b-versatile"
	DefaultTimeout       = 60
	DefaultMaxRetries    = 1
	DefaultStaticDir     = "public"
	DefaultIndexFile     = "index.html"
	DefaultBodySizeLimit = "1M"
)

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          DefaultPort,
			BodySizeLimit: DefaultBodySizeLimit,
		},
		Groq: GroqConfig{
			BaseURL:    DefaultGroqBaseURL,
			Model:      DefaultGroqModel,
			Timeout:    DefaultTimeout,
			MaxRetries: DefaultMaxRetries,
		},
		Static: StaticConfig{
			Dir:       DefaultStaticDir,
			IndexFile: DefaultIndexFile,
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		Logging: LoggingConfig{
			Format: "auto",
			Level:  "info",
		},
		Usage: UsageConfig{
			BufferSize:    1000,
			FlushInterval: 5,
			RetentionDays: 90,
		},
		Storage: StorageConfig{
			Type:       "sqlite",
			SQLite:     SQLiteConfig{Path: "data/geoprompt.db"},
			PostgreSQL: PostgreSQLConfig{MaxConns: 10},
			MongoDB:    MongoDBConfig{Database: "geoprompt"},
		},
	}
}

// Load builds the configuration from defaults, config.yaml and the environment.
func Load() (*Config, error) {
	cfg := buildDefaultConfig()

	if err := applyConfigFile(cfg); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configSearchPaths lists where config.yaml is looked up, in order.
var configSearchPaths = []string{".", "config"}

func applyConfigFile(cfg *Config) error {
	var raw []byte
	var path string
	for _, dir := range configSearchPaths {
		candidate := filepath.Join(dir, "config.yaml")
		data, err := os.ReadFile(candidate)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", candidate, err)
		}
		raw, path = data, candidate
		break
	}
	if raw == nil {
		return nil
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader([]byte(expandString(string(raw))))); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} with the variable's value and ${VAR:-default}
// with the value or, when unset or empty, the default. ${VAR} placeholders
// with no value and no default are left as they are.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]

		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// applyEnvOverrides copies set environment variables onto cfg.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*dst = value
		}
	}
	num := func(key string, dst *int) {
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, value))
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, value))
			return
		}
		*dst = b
	}

	str("PORT", &cfg.Server.Port)
	str("BODY_SIZE_LIMIT", &cfg.Server.BodySizeLimit)
	flag("SWAGGER_ENABLED", &cfg.Server.SwaggerEnabled)

	str("GROQ_API_KEY", &cfg.Groq.APIKey)
	str("GROQ_BASE_URL", &cfg.Groq.BaseURL)
	str("GROQ_MODEL", &cfg.Groq.Model)
	num("HTTP_TIMEOUT", &cfg.Groq.Timeout)
	num("UPSTREAM_MAX_RETRIES", &cfg.Groq.MaxRetries)

	str("STATIC_DIR", &cfg.Static.Dir)
	str("INDEX_FILE", &cfg.Static.IndexFile)

	flag("METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("METRICS_ENDPOINT", &cfg.Metrics.Endpoint)

	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_LEVEL", &cfg.Logging.Level)

	flag("USAGE_ENABLED", &cfg.Usage.Enabled)
	num("USAGE_BUFFER_SIZE", &cfg.Usage.BufferSize)
	num("USAGE_FLUSH_INTERVAL", &cfg.Usage.FlushInterval)
	num("USAGE_RETENTION_DAYS", &cfg.Usage.RetentionDays)

	str("STORAGE_TYPE", &cfg.Storage.Type)
	str("SQLITE_PATH", &cfg.Storage.SQLite.Path)
	str("POSTGRES_URL", &cfg.Storage.PostgreSQL.URL)
	num("POSTGRES_MAX_CONNS", &cfg.Storage.PostgreSQL.MaxConns)
	str("MONGODB_URL", &cfg.Storage.MongoDB.URL)
	str("MONGODB_DATABASE", &cfg.Storage.MongoDB.Database)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port must not be empty"))
	}
	if c.Groq.BaseURL == "" {
		errs = append(errs, errors.New("groq base URL must not be empty"))
	}
	if c.Groq.Model == "" {
		errs = append(errs, errors.New("groq model must not be empty"))
	}
	if c.Groq.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP timeout must be positive, got %d", c.Groq.Timeout))
	}
	if c.Groq.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("upstream max retries must not be negative, got %d", c.Groq.MaxRetries))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Endpoint, "/") {
		errs = append(errs, fmt.Errorf("metrics endpoint must start with '/', got %q", c.Metrics.Endpoint))
	}
	switch c.Logging.Format {
	case "json", "pretty", "auto":
	default:
		errs = append(errs, fmt.Errorf("log format must be json, pretty or auto, got %q", c.Logging.Format))
	}
	switch c.Storage.Type {
	case "sqlite", "postgresql", "mongodb":
	default:
		errs = append(errs, fmt.Errorf("unknown storage type %q (valid: sqlite, postgresql, mongodb)", c.Storage.Type))
	}

	return errors.Join(errs...)
}

// HasGroqKey reports whether an upstream credential is configured.
func (c *Config) HasGroqKey() bool {
	return strings.TrimSpace(c.Groq.APIKey) != ""
}
