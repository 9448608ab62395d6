package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dl-alexandre/medialib/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DefaultOutputFormat != types.OutputFormatTable {
		t.Errorf("Expected default output format 'table', got '%s'", cfg.DefaultOutputFormat)
	}

	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("Expected default driver 'sqlite', got '%s'", cfg.DatabaseDriver)
	}

	if cfg.PageSize != 100 {
		t.Errorf("Expected page size 100, got %d", cfg.PageSize)
	}

	if cfg.LogLevel != "normal" {
		t.Errorf("Expected log level 'normal', got '%s'", cfg.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"invalid output format", func(c *Config) { c.DefaultOutputFormat = "xml" }, "invalid output format"},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"invalid log format", func(c *Config) { c.LogFormat = "logfmt" }, "invalid log format"},
		{"invalid driver", func(c *Config) { c.DatabaseDriver = "mysql" }, "invalid database driver"},
		{"postgres without dsn", func(c *Config) { c.DatabaseDriver = "postgres" }, "databaseDSN is required"},
		{"page size zero", func(c *Config) { c.PageSize = 0 }, "page size must be between"},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, "max depth must be non-negative"},
		{"watch interval zero", func(c *Config) { c.WatchIntervalSec = 0 }, "watch interval must be at least"},
		{"bad exclude pattern", func(c *Config) { c.ExcludePatterns = []string{"[a-"} }, "invalid exclude pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Errorf("Expected error containing '%s', got nil", tt.errorMsg)
			} else if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestConfigDurationGetters(t *testing.T) {
	cfg := &Config{ProgressIntervalMs: 500, WatchIntervalSec: 60}

	if d := cfg.GetProgressInterval(); d != 500*time.Millisecond {
		t.Errorf("Expected progress interval 500ms, got %v", d)
	}

	if d := cfg.GetWatchInterval(); d != time.Minute {
		t.Errorf("Expected watch interval 1m, got %v", d)
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := DefaultConfig()
			cfg.DefaultOutputFormat = types.OutputFormatJSON
			cfg.DatabaseDriver = "postgres"
			cfg.DatabaseDSN = "postgres://localhost/medialib?sslmode=disable"
			cfg.PageSize = 250
			cfg.ExcludePatterns = []string{"*.cue", "Scans"}
			cfg.ColorOutput = false

			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("Failed to save config: %v", err)
			}

			loaded, err := LoadFrom(path)
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}

			if loaded.DefaultOutputFormat != types.OutputFormatJSON {
				t.Errorf("Expected output format 'json', got '%s'", loaded.DefaultOutputFormat)
			}
			if loaded.DatabaseDSN != cfg.DatabaseDSN {
				t.Errorf("Expected DSN '%s', got '%s'", cfg.DatabaseDSN, loaded.DatabaseDSN)
			}
			if loaded.PageSize != 250 {
				t.Errorf("Expected page size 250, got %d", loaded.PageSize)
			}
			if len(loaded.ExcludePatterns) != 2 || loaded.ExcludePatterns[1] != "Scans" {
				t.Errorf("Unexpected exclude patterns: %v", loaded.ExcludePatterns)
			}
			if loaded.ColorOutput {
				t.Error("Expected color output to stay disabled")
			}
		})
	}
}

func TestYAMLFileIsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medialib.yml")
	if err := os.WriteFile(path, []byte("pageSize: 42\nlogFormat: json\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.PageSize != 42 || cfg.LogFormat != "json" {
		t.Errorf("Unexpected config: pageSize=%d logFormat=%s", cfg.PageSize, cfg.LogFormat)
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Missing config file should not fail: %v", err)
	}
	if cfg.WatchIntervalSec != DefaultConfig().WatchIntervalSec {
		t.Errorf("Expected default watch interval, got %d", cfg.WatchIntervalSec)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MEDIALIB_OUTPUT_FORMAT", "json")
	t.Setenv("MEDIALIB_PAGE_SIZE", "7")
	t.Setenv("MEDIALIB_LOG_LEVEL", "debug")
	t.Setenv("MEDIALIB_COLOR_OUTPUT", "no")
	t.Setenv("MEDIALIB_EXCLUDE_PATTERNS", "*.nfo, Artwork")
	t.Setenv("MEDIALIB_METRICS_ADDR", "127.0.0.1:9000")

	cfg := DefaultConfig()
	if err := cfg.loadFromEnv(); err != nil {
		t.Fatalf("loadFromEnv: %v", err)
	}

	if cfg.DefaultOutputFormat != types.OutputFormatJSON {
		t.Errorf("Expected output format 'json', got '%s'", cfg.DefaultOutputFormat)
	}
	if cfg.PageSize != 7 {
		t.Errorf("Expected page size 7, got %d", cfg.PageSize)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.ColorOutput {
		t.Error("Expected color output to be disabled")
	}
	if len(cfg.ExcludePatterns) != 2 || cfg.ExcludePatterns[1] != "Artwork" {
		t.Errorf("Unexpected exclude patterns: %v", cfg.ExcludePatterns)
	}
	if cfg.MetricsAddr != "127.0.0.1:9000" {
		t.Errorf("Expected metrics addr from env, got '%s'", cfg.MetricsAddr)
	}
}

func TestLoadFromEnvRejectsBadInteger(t *testing.T) {
	t.Setenv("MEDIALIB_PAGE_SIZE", "many")
	cfg := DefaultConfig()
	err := cfg.loadFromEnv()
	if err == nil || !strings.Contains(err.Error(), "MEDIALIB_PAGE_SIZE") {
		t.Errorf("Expected error naming the variable, got %v", err)
	}
}

func TestEnvName(t *testing.T) {
	cases := map[string]string{
		"pageSize":            "PAGE_SIZE",
		"databaseDSN":         "DATABASE_DSN",
		"defaultOutputFormat": "OUTPUT_FORMAT",
		"progressIntervalMs":  "PROGRESS_INTERVAL_MS",
	}
	for key, want := range cases {
		if got := envName(key); got != want {
			t.Errorf("envName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestSetUnknownKey(t *testing.T) {
	err := DefaultConfig().Set("cacheTTL", "5")
	if err == nil || !strings.Contains(err.Error(), "valid keys") {
		t.Errorf("Expected unknown key error, got %v", err)
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEDIALIB_CONFIG_DIR", dir)

	dsn, err := DefaultConfig().GetDatabaseDSN()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "medialib.db"); dsn != want {
		t.Errorf("Expected %s, got %s", want, dsn)
	}
}
