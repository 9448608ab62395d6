package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dl-alexandre/medialib/internal/types"
	"github.com/dl-alexandre/medialib/internal/utils"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "MEDIALIB_"
)

// Config holds application configuration
type Config struct {
	// DefaultOutputFormat is the default output format (json, table)
	DefaultOutputFormat types.OutputFormat `json:"defaultOutputFormat" yaml:"defaultOutputFormat"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `json:"logLevel" yaml:"logLevel"`

	// LogFormat selects the console log encoding (text, json)
	LogFormat string `json:"logFormat" yaml:"logFormat"`

	// ColorOutput enables color in console logs
	ColorOutput bool `json:"colorOutput" yaml:"colorOutput"`

	// DatabaseDriver is sqlite or postgres
	DatabaseDriver string `json:"databaseDriver" yaml:"databaseDriver"`

	// DatabaseDSN is the index location. Empty means medialib.db in the config directory.
	DatabaseDSN string `json:"databaseDSN" yaml:"databaseDSN"`

	// ProgressIntervalMs is the minimum delay between progress reports
	ProgressIntervalMs int `json:"progressIntervalMs" yaml:"progressIntervalMs"`

	// PageSize is the number of pending directories loaded per import page
	PageSize int `json:"pageSize" yaml:"pageSize"`

	// MaxDepth is the default depth bound of new collections, 0 for unlimited
	MaxDepth int `json:"maxDepth" yaml:"maxDepth"`

	// ExcludePatterns are added to every collection's own patterns
	ExcludePatterns []string `json:"excludePatterns" yaml:"excludePatterns"`

	// WatchIntervalSec is the delay between sweeps in watch mode
	WatchIntervalSec int `json:"watchIntervalSec" yaml:"watchIntervalSec"`

	// MetricsAddr is where watch mode serves /metrics. Empty disables it.
	MetricsAddr string `json:"metricsAddr" yaml:"metricsAddr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultOutputFormat: types.OutputFormatTable,
		LogLevel:            "normal",
		LogFormat:           "text",
		ColorOutput:         true,
		DatabaseDriver:      "sqlite",
		ProgressIntervalMs:  utils.DefaultProgressIntervalMs,
		PageSize:            utils.DefaultPageSize,
		WatchIntervalSec:    utils.DefaultWatchIntervalSec,
		MetricsAddr:         utils.DefaultMetricsAddr,
	}
}

// Load loads configuration with precedence: env vars > config file > defaults.
// CLI flags are applied on top by the caller.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(path); err != nil {
		// Config file not existing is not an error
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isYAML(path) {
		return yaml.Unmarshal(data, c)
	}
	return json.Unmarshal(data, c)
}

// loadFromEnv applies MEDIALIB_* variables through the same setters as `config set`.
func (c *Config) loadFromEnv() error {
	for _, key := range Keys() {
		v, ok := os.LookupEnv(EnvPrefix + envName(key))
		if !ok || v == "" {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, envName(key), err)
		}
	}
	return nil
}

// envName turns a camelCase key into its environment suffix: pageSize -> PAGE_SIZE.
func envName(key string) string {
	if key == "defaultOutputFormat" {
		return "OUTPUT_FORMAT"
	}
	var sb strings.Builder
	var prev rune
	for _, r := range key {
		if r >= 'A' && r <= 'Z' && prev >= 'a' && prev <= 'z' {
			sb.WriteByte('_')
		}
		sb.WriteRune(r)
		prev = r
	}
	return strings.ToUpper(sb.String())
}

type setter func(c *Config, v string) error

func intSetter(field func(c *Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", v)
		}
		*field(c) = n
		return nil
	}
}

func stringSetter(field func(c *Config) *string) setter {
	return func(c *Config, v string) error {
		*field(c) = strings.TrimSpace(v)
		return nil
	}
}

var setters = map[string]setter{
	"defaultOutputFormat": func(c *Config, v string) error {
		c.DefaultOutputFormat = types.OutputFormat(strings.ToLower(strings.TrimSpace(v)))
		return nil
	},
	"logLevel":  stringSetter(func(c *Config) *string { return &c.LogLevel }),
	"logFormat": stringSetter(func(c *Config) *string { return &c.LogFormat }),
	"colorOutput": func(c *Config, v string) error {
		c.ColorOutput = parseBool(v)
		return nil
	},
	"databaseDriver":     stringSetter(func(c *Config) *string { return &c.DatabaseDriver }),
	"databaseDSN":        stringSetter(func(c *Config) *string { return &c.DatabaseDSN }),
	"progressIntervalMs": intSetter(func(c *Config) *int { return &c.ProgressIntervalMs }),
	"pageSize":           intSetter(func(c *Config) *int { return &c.PageSize }),
	"maxDepth":           intSetter(func(c *Config) *int { return &c.MaxDepth }),
	"excludePatterns": func(c *Config, v string) error {
		c.ExcludePatterns = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.ExcludePatterns = append(c.ExcludePatterns, p)
			}
		}
		return nil
	},
	"watchIntervalSec": intSetter(func(c *Config) *int { return &c.WatchIntervalSec }),
	"metricsAddr":      stringSetter(func(c *Config) *string { return &c.MetricsAddr }),
}

// Keys lists the settable configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a single key from its string form. The result is not validated.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	return set(c, value)
}

// Save saves the configuration to the default config file
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo writes the configuration to path, as YAML when the extension asks for it.
func (c *Config) SaveTo(configPath string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(configPath) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DefaultOutputFormat != types.OutputFormatJSON &&
		c.DefaultOutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'table')", c.DefaultOutputFormat)
	}

	if !oneOf(c.LogLevel, "quiet", "normal", "verbose", "debug") {
		return fmt.Errorf("invalid log level: %s (must be one of: quiet, normal, verbose, debug)", c.LogLevel)
	}

	if !oneOf(c.LogFormat, "text", "json") {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.LogFormat)
	}

	if !oneOf(c.DatabaseDriver, "sqlite", "postgres") {
		return fmt.Errorf("invalid database driver: %s (must be 'sqlite' or 'postgres')", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("databaseDSN is required for the postgres driver")
	}

	if c.ProgressIntervalMs < 0 {
		return fmt.Errorf("progress interval must be non-negative, got: %d", c.ProgressIntervalMs)
	}

	if c.PageSize < 1 || c.PageSize > 10000 {
		return fmt.Errorf("page size must be between 1 and 10000, got: %d", c.PageSize)
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must be non-negative, got: %d", c.MaxDepth)
	}

	if c.WatchIntervalSec < 1 {
		return fmt.Errorf("watch interval must be at least 1 second, got: %d", c.WatchIntervalSec)
	}

	for _, p := range c.ExcludePatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
	}

	return nil
}

// GetProgressInterval returns the progress interval as a duration
func (c *Config) GetProgressInterval() time.Duration {
	return utils.ProgressInterval(c.ProgressIntervalMs)
}

// GetWatchInterval returns the watch interval as a duration
func (c *Config) GetWatchInterval() time.Duration {
	return time.Duration(c.WatchIntervalSec) * time.Second
}

// GetDatabaseDSN resolves an empty DSN to the default SQLite file.
func (c *Config) GetDatabaseDSN() (string, error) {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, utils.DefaultDatabaseFile), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "medialib"), nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
