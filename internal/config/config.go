package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-tangent/internal/log"
	"github.com/l3aro/go-tangent/pkg/dataflow"
	"github.com/l3aro/go-tangent/pkg/naming"
	"github.com/l3aro/go-tangent/pkg/report"
)

// Config holds all configuration for tangent
type Config struct {
	// Naming templates for gradient and temporary variables
	Naming naming.Templates `yaml:"naming"`

	// Dotted callee names whose results are always active
	PopFunctions []string `yaml:"pop_functions" env:"TANGENT_POP_FUNCTIONS"`

	// Analyses run by `tangent analyze` when --analysis is not given
	Analyses []string `yaml:"analyses" env:"TANGENT_ANALYSES"`

	// Positional parameters the active analysis differentiates with respect
	// to. Empty means all of them.
	Wrt []int `yaml:"wrt" env:"TANGENT_WRT"`

	// Output format: text, json or yaml
	Format string `yaml:"format" env:"TANGENT_FORMAT"`

	// Report cache
	CacheDir  string `yaml:"cache_dir" env:"TANGENT_CACHE_DIR"`
	CacheSize int    `yaml:"cache_size" env:"TANGENT_CACHE_SIZE"`

	// Logging
	LogLevel string `yaml:"log_level" env:"TANGENT_LOG_LEVEL"`
	LogJSON  bool   `yaml:"log_json" env:"TANGENT_LOG_JSON"`
	Verbose  bool   `yaml:"verbose" env:"TANGENT_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Naming:       naming.DefaultTemplates(),
		PopFunctions: slices.Clone(dataflow.DefaultPopFunctions),
		Analyses:     report.AllAnalyses(),
		Format:       string(report.FormatText),
		CacheDir:     filepath.Join(".tangent", "cache"),
		CacheSize:    1000,
		LogLevel:     "info",
	}
}

// GlobalConfigPath returns the global config file path (~/.tangent/config.yaml)
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tangent", "config.yaml")
	}
	return filepath.Join(home, ".tangent", "config.yaml")
}

// ProjectConfigPath returns the project-level config file path (./.tangent/config.yaml)
func ProjectConfigPath() string {
	return filepath.Join(".tangent", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Project-level config (./.tangent/config.yaml)
// 2. Environment variables
// 3. Global config (~/.tangent/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := mergeFile(cfg, GlobalConfigPath()); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := mergeFile(cfg, ProjectConfigPath()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path, then
// applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path onto cfg. A missing file is
// skipped.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TANGENT_POP_FUNCTIONS"); v != "" {
		cfg.PopFunctions = splitList(v)
	}
	if v := os.Getenv("TANGENT_ANALYSES"); v != "" {
		cfg.Analyses = splitList(v)
	}
	if v := os.Getenv("TANGENT_WRT"); v != "" {
		wrt, err := ParseWrt(v)
		if err != nil {
			return fmt.Errorf("TANGENT_WRT: %w", err)
		}
		cfg.Wrt = wrt
	}
	if v := os.Getenv("TANGENT_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("TANGENT_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("TANGENT_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TANGENT_CACHE_SIZE: %w", err)
		}
		cfg.CacheSize = n
	}
	if v := os.Getenv("TANGENT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TANGENT_LOG_JSON"); v != "" {
		cfg.LogJSON = parseBool(v)
	}
	if v := os.Getenv("TANGENT_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	return nil
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if err := c.Naming.Validate(); err != nil {
		return fmt.Errorf("naming: %w", err)
	}

	if len(c.Analyses) == 0 {
		return fmt.Errorf("analyses must not be empty")
	}
	for _, a := range c.Analyses {
		if !slices.Contains(report.AllAnalyses(), a) {
			return fmt.Errorf("invalid analysis: %s (must be one of %s)", a, strings.Join(report.AllAnalyses(), ", "))
		}
	}

	for _, i := range c.Wrt {
		if i < 0 {
			return fmt.Errorf("wrt indices must be non-negative, got %d", i)
		}
	}

	if _, err := report.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("format: %w", err)
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	return nil
}

// ReportOptions returns the analysis options described by the config.
func (c *Config) ReportOptions() report.Options {
	return report.Options{
		Analyses:     slices.Clone(c.Analyses),
		Wrt:          slices.Clone(c.Wrt),
		PopFunctions: slices.Clone(c.PopFunctions),
		Templates:    c.Naming,
	}
}

// CachePath returns the file the report cache persists to.
func (c *Config) CachePath() string {
	return filepath.Join(c.CacheDir, "reports.cache")
}

// Logger builds a logger at the configured level. Verbose forces debug.
func (c *Config) Logger() log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if c.Verbose {
		level = log.DebugLevel
	}
	return log.New(log.LoggerConfig{Level: level, JSONOutput: c.LogJSON})
}

// ParseWrt parses a comma-separated list of parameter indices such as "0,2".
func ParseWrt(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter index %q", part)
		}
		out = append(out, i)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}
