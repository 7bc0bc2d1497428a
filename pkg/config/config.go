package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jupierce/coverage-viewer/pkg/grid"
	"github.com/jupierce/coverage-viewer/pkg/log"
)

// ConfigFileName is the default name of the configuration file
const ConfigFileName = "coverage-viewer.yaml"

// Report formats
const (
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

// ValidFormats lists the accepted report formats
var ValidFormats = []string{FormatJSON, FormatSQLite}

// Config holds all coverage-viewer configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Report   ReportConfig   `yaml:"report"`
	BigQuery BigQueryConfig `yaml:"bigquery"`
	Palette  grid.Palette   `yaml:"palette"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// ReportConfig locates the coverage report to load
type ReportConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// BigQueryConfig holds the export target
type BigQueryConfig struct {
	Project    string `yaml:"project"`
	Dataset    string `yaml:"dataset"`
	Collection string `yaml:"collection"`
}

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfig returns configuration used for anything a file leaves unset
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Palette: grid.DefaultPalette,
	}
}

// Load reads config from path, falling back to defaults when path is empty
// or the file does not exist
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge fills values missing from loaded with defaults
func Merge(loaded, defaults *Config) *Config {
	result := *loaded

	if result.Server.Addr == "" {
		result.Server.Addr = defaults.Server.Addr
	}
	if result.Server.ReadTimeout == 0 {
		result.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if result.Server.WriteTimeout == 0 {
		result.Server.WriteTimeout = defaults.Server.WriteTimeout
	}

	if result.Log.Level == "" {
		result.Log.Level = defaults.Log.Level
	}
	if result.Log.Dir == "" {
		result.Log.Dir = defaults.Log.Dir
	}

	if result.Report.Path == "" {
		result.Report.Path = defaults.Report.Path
	}
	if result.Report.Format == "" {
		result.Report.Format = defaults.Report.Format
	}

	if result.BigQuery.Project == "" {
		result.BigQuery.Project = defaults.BigQuery.Project
	}
	if result.BigQuery.Dataset == "" {
		result.BigQuery.Dataset = defaults.BigQuery.Dataset
	}
	if result.BigQuery.Collection == "" {
		result.BigQuery.Collection = defaults.BigQuery.Collection
	}

	if result.Palette.Good == "" {
		result.Palette.Good = defaults.Palette.Good
	}
	if result.Palette.Bad == "" {
		result.Palette.Bad = defaults.Palette.Bad
	}

	return &result
}

// Validate checks that config values are valid
func Validate(cfg *Config) error {
	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.Report.Format != "" && !IsValidFormat(cfg.Report.Format) {
		return fmt.Errorf("%w: report format must be one of %v, got %q",
			ErrInvalidConfig, ValidFormats, cfg.Report.Format)
	}

	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		return fmt.Errorf("%w: server timeouts must be non-negative", ErrInvalidConfig)
	}

	if err := cfg.Palette.Validate(); err != nil {
		return fmt.Errorf("%w: palette: %v", ErrInvalidConfig, err)
	}

	return nil
}

// IsValidFormat reports whether format names a supported report format
func IsValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Save writes cfg as YAML
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	header := "# coverage-viewer configuration\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
