// Package config loads linear-task settings from defaults, an optional YAML
// file and LINEAR_TASK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is used for the config directory and default file names.
	AppName = "linear-task"

	// EnvPrefix prefixes every environment override, e.g. LINEAR_TASK_LOG_LEVEL.
	EnvPrefix = "LINEAR_TASK"

	// DefaultAPIEndpoint is Linear's production GraphQL endpoint.
	DefaultAPIEndpoint = "https://api.linear.app/graphql"

	// DefaultDescriptionTemplate is used when the user leaves the description empty.
	// {url} and {title} are replaced with the page URL and title.
	DefaultDescriptionTemplate = "URL: {url}"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrInvalid is returned (wrapped) by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the runtime configuration.
type Config struct {
	APIEndpoint         string        `mapstructure:"api_endpoint"`
	Timeout             time.Duration `mapstructure:"timeout"`
	LogFile             string        `mapstructure:"log_file"`
	LogLevel            string        `mapstructure:"log_level"`
	DescriptionTemplate string        `mapstructure:"description_template"`
	FetchTitle          bool          `mapstructure:"fetch_title"`
	Store               StoreConfig   `mapstructure:"store"`
}

// StoreConfig selects and configures the local key-value store.
type StoreConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// Dir returns the per-user directory for linear-task files.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppName)
}

// DefaultFilePath returns the config file consulted when no explicit path is given.
func DefaultFilePath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_endpoint", DefaultAPIEndpoint)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log_file", filepath.Join(Dir(), AppName+".log"))
	v.SetDefault("log_level", "warning")
	v.SetDefault("description_template", DefaultDescriptionTemplate)
	v.SetDefault("fetch_title", true)
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.path", filepath.Join(Dir(), "store.db"))
	v.SetDefault("store.redis_url", "redis://localhost:6379/0")
	v.SetDefault("store.redis_prefix", AppName+":")
}

// Load builds a Config. path may be empty, in which case DefaultFilePath is
// used if it exists. An explicitly given path must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultFilePath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields that have a closed set of values.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalid, c.Store.Backend)
	}
	if c.Store.Backend == BackendSQLite && c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required for the sqlite backend", ErrInvalid)
	}
	if c.Store.Backend == BackendRedis && c.Store.RedisURL == "" {
		return fmt.Errorf("%w: store.redis_url is required for the redis backend", ErrInvalid)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warning", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.LogLevel)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	return nil
}

// Describe renders the description template for a page.
func (c Config) Describe(url, title string) string {
	tmpl := c.DescriptionTemplate
	if tmpl == "" {
		tmpl = DefaultDescriptionTemplate
	}
	return strings.NewReplacer("{url}", url, "{title}", title).Replace(tmpl)
}
