package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/l3aro/go-tangent/pkg/naming"
)

// isolate points HOME and the working directory at fresh temp dirs and
// clears every TANGENT_ variable.
func isolate(t *testing.T) (home, project string) {
	t.Helper()
	home, project = t.TempDir(), t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, project)
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "TANGENT_") {
			t.Setenv(k, "")
		}
	}
	return home, project
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Format", cfg.Format, "text"},
		{"CacheDir", cfg.CacheDir, filepath.Join(".tangent", "cache")},
		{"CacheSize", cfg.CacheSize, 1000},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogJSON", cfg.LogJSON, false},
		{"Verbose", cfg.Verbose, false},
		{"Adjoint template", cfg.Naming.Adjoint, "b%s"},
		{"Temp template", cfg.Naming.Temp, "_%s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:        "template without verb",
			mutate:      func(c *Config) { c.Naming.Adjoint = "grad" },
			errContains: "naming",
		},
		{
			name:        "template with two verbs",
			mutate:      func(c *Config) { c.Naming.Temp = "%s_%s" },
			errContains: "naming",
		},
		{
			name:        "unknown analysis",
			mutate:      func(c *Config) { c.Analyses = []string{"liveness"} },
			errContains: "invalid analysis",
		},
		{
			name:        "no analyses",
			mutate:      func(c *Config) { c.Analyses = nil },
			errContains: "analyses must not be empty",
		},
		{
			name:        "negative wrt",
			mutate:      func(c *Config) { c.Wrt = []int{0, -1} },
			errContains: "non-negative",
		},
		{
			name:        "unknown format",
			mutate:      func(c *Config) { c.Format = "xml" },
			errContains: "format",
		},
		{
			name:        "zero cache size",
			mutate:      func(c *Config) { c.CacheSize = 0 },
			errContains: "cache_size must be positive",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			errContains: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errContains == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.errContains)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Error = %q, should contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
naming:
  adjoint: "grad_%s"
analyses: [definitions, active]
wrt: [1]
format: json
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Naming.Adjoint != "grad_%s" {
		t.Errorf("Naming.Adjoint = %q, want grad_%%s", cfg.Naming.Adjoint)
	}
	if cfg.Naming.Tangent != "d%s" {
		t.Errorf("Naming.Tangent = %q, want default d%%s", cfg.Naming.Tangent)
	}
	if !reflect.DeepEqual(cfg.Analyses, []string{"definitions", "active"}) {
		t.Errorf("Analyses = %v", cfg.Analyses)
	}
	if !reflect.DeepEqual(cfg.Wrt, []int{1}) {
		t.Errorf("Wrt = %v, want [1]", cfg.Wrt)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFromFile(missing) = nil error")
	}

	writeFile(t, path, "format: [unclosed\n")
	if _, err := LoadFromFile(path); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("LoadFromFile(invalid yaml) error = %v", err)
	}
}

func TestLoadPriority(t *testing.T) {
	home, project := isolate(t)

	writeFile(t, filepath.Join(home, ".tangent", "config.yaml"), `
format: yaml
cache_size: 10
log_level: warn
`)
	writeFile(t, filepath.Join(project, ".tangent", "config.yaml"), `
format: json
`)
	t.Setenv("TANGENT_FORMAT", "text")
	t.Setenv("TANGENT_CACHE_SIZE", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"project beats env", cfg.Format, "json"},
		{"env beats global", cfg.CacheSize, 20},
		{"global beats default", cfg.LogLevel, "warn"},
		{"default", cfg.Naming.Adjoint, "b%s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TANGENT_POP_FUNCTIONS", "stack.pop, pop")
	t.Setenv("TANGENT_ANALYSES", "defined")
	t.Setenv("TANGENT_WRT", "0,2")
	t.Setenv("TANGENT_LOG_JSON", "yes")
	t.Setenv("TANGENT_VERBOSE", "1")

	cfg := DefaultConfig()
	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error: %v", err)
	}

	if !reflect.DeepEqual(cfg.PopFunctions, []string{"stack.pop", "pop"}) {
		t.Errorf("PopFunctions = %v", cfg.PopFunctions)
	}
	if !reflect.DeepEqual(cfg.Analyses, []string{"defined"}) {
		t.Errorf("Analyses = %v", cfg.Analyses)
	}
	if !reflect.DeepEqual(cfg.Wrt, []int{0, 2}) {
		t.Errorf("Wrt = %v", cfg.Wrt)
	}
	if !cfg.LogJSON || !cfg.Verbose {
		t.Errorf("LogJSON = %v, Verbose = %v, want both true", cfg.LogJSON, cfg.Verbose)
	}

	t.Setenv("TANGENT_CACHE_SIZE", "lots")
	if err := applyEnvOverrides(cfg); err == nil {
		t.Error("applyEnvOverrides() with bad TANGENT_CACHE_SIZE = nil error")
	}
}

func TestParseWrt(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "0", want: []int{0}},
		{in: "0, 1 ,3", want: []int{0, 1, 3}},
		{in: "", want: nil},
		{in: "a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWrt(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWrt(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseWrt(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigSave(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Naming = naming.Templates{
		Adjoint:     "adj_%s",
		Tangent:     "tan_%s",
		TempAdjoint: "_adj_%s",
		TempTangent: "_tan_%s",
		Temp:        "tmp_%s",
	}
	cfg.Wrt = []int{0, 1}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("round trip = %+v, want %+v", loaded, cfg)
	}
}

func TestReportOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Wrt = []int{1}

	opts := cfg.ReportOptions()
	if !reflect.DeepEqual(opts.Wrt, []int{1}) {
		t.Errorf("Wrt = %v", opts.Wrt)
	}
	if opts.Templates != cfg.Naming {
		t.Errorf("Templates = %+v, want %+v", opts.Templates, cfg.Naming)
	}

	opts.Analyses[0] = "changed"
	if cfg.Analyses[0] == "changed" {
		t.Error("ReportOptions shares the Analyses slice with the config")
	}

	if got := cfg.CachePath(); got != filepath.Join(".tangent", "cache", "reports.cache") {
		t.Errorf("CachePath() = %q", got)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
