// Package config loads surveyor settings from surveyor.yaml and SURVEYOR_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jward/surveyor"
	"github.com/jward/surveyor/internal/manifest"
	"github.com/jward/surveyor/internal/sqlschema"
)

// FileName is the config file looked up in the project root.
const FileName = "surveyor.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SURVEYOR_"

// Config represents the surveyor configuration.
type Config struct {
	Source      SourceConfig  `yaml:"source"`
	Schema      SchemaConfig  `yaml:"schema"`
	Output      OutputConfig  `yaml:"output"`
	Parallel    bool          `yaml:"parallel" env:"PARALLEL"`
	Workers     int           `yaml:"workers" env:"WORKERS"`
	NoGit       bool          `yaml:"no_git" env:"NO_GIT"`
	RulesScript string        `yaml:"rules_script" env:"RULES_SCRIPT"`
	Logging     LoggingConfig `yaml:"logging"`
}

// SourceConfig selects TypeScript/JavaScript files.
type SourceConfig struct {
	Extensions   []string `yaml:"extensions" env:"SOURCE_EXTENSIONS"`
	ExcludeDirs  []string `yaml:"exclude_dirs" env:"SOURCE_EXCLUDE_DIRS"`
	ExcludeGlobs []string `yaml:"exclude_globs" env:"SOURCE_EXCLUDE_GLOBS"`
}

// SchemaConfig selects SQL files and the dialects tried on them.
type SchemaConfig struct {
	Extensions []string `yaml:"extensions" env:"SCHEMA_EXTENSIONS"`
	Dialects   []string `yaml:"dialects" env:"DIALECTS"`
}

// OutputConfig controls where the manifest goes.
type OutputConfig struct {
	Path   string `yaml:"path" env:"OUTPUT"`
	Format string `yaml:"format" env:"FORMAT"` // json, yaml
	DB     string `yaml:"db" env:"DB"`         // empty disables the snapshot
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"LOG_FORMAT"` // console, json
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	d := surveyor.DefaultDiscoverOptions()
	return &Config{
		Source: SourceConfig{
			Extensions:   d.SourceExtensions,
			ExcludeDirs:  d.ExcludeDirs,
			ExcludeGlobs: d.ExcludeGlobs,
		},
		Schema: SchemaConfig{
			Extensions: d.SQLExtensions,
			Dialects:   append([]string(nil), sqlschema.DefaultDialects...),
		},
		Output: OutputConfig{
			Path:   "surveyor-manifest.json",
			Format: manifest.FormatJSON,
			DB:     filepath.Join(".surveyor", "snapshot.db"),
		},
		Parallel: true,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from file, then applies environment overrides,
// then validates. A missing file means defaults. If configPath is empty,
// it looks for surveyor.yaml in root.
func Load(root, configPath string) (*Config, error) {
	return LoadWithEnv(root, configPath, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil environ reads
// the process environment.
func LoadWithEnv(root, configPath string, environ map[string]string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		configPath = filepath.Join(root, FileName)
	}
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file, use defaults
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	default:
		// Keys present in the file replace defaults; absent keys keep them.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge combines another config into this one, with non-empty values of
// other taking precedence. Booleans and Workers are not merged because
// their zero values are meaningful; callers set those directly.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Source.Extensions) > 0 {
		c.Source.Extensions = other.Source.Extensions
	}
	if len(other.Source.ExcludeDirs) > 0 {
		c.Source.ExcludeDirs = other.Source.ExcludeDirs
	}
	if len(other.Source.ExcludeGlobs) > 0 {
		c.Source.ExcludeGlobs = other.Source.ExcludeGlobs
	}
	if len(other.Schema.Extensions) > 0 {
		c.Schema.Extensions = other.Schema.Extensions
	}
	if len(other.Schema.Dialects) > 0 {
		c.Schema.Dialects = other.Schema.Dialects
	}
	if other.Output.Path != "" {
		c.Output.Path = other.Output.Path
	}
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.DB != "" {
		c.Output.DB = other.Output.DB
	}
	if other.RulesScript != "" {
		c.RulesScript = other.RulesScript
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"console": true, "json": true}
)

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	if len(c.Schema.Dialects) == 0 {
		return errors.New("config: schema.dialects must not be empty")
	}
	if _, err := sqlschema.ResolveDialects(c.Schema.Dialects); err != nil {
		return fmt.Errorf("config: schema.dialects: %w", err)
	}
	switch c.Output.Format {
	case manifest.FormatJSON, manifest.FormatYAML:
	default:
		return fmt.Errorf("config: invalid output format: %s (must be json or yaml)", c.Output.Format)
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("config: invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("config: invalid log format: %s (must be console or json)", c.Logging.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// DiscoverOptions converts the source and schema sections into discovery
// settings.
func (c *Config) DiscoverOptions() surveyor.DiscoverOptions {
	return surveyor.DiscoverOptions{
		SourceExtensions: c.Source.Extensions,
		SQLExtensions:    c.Schema.Extensions,
		ExcludeDirs:      c.Source.ExcludeDirs,
		ExcludeGlobs:     c.Source.ExcludeGlobs,
		NoGit:            c.NoGit,
	}
}

// EngineOptions returns the engine options this config implies. The
// logger and root are supplied by the caller.
func (c *Config) EngineOptions() []surveyor.Option {
	opts := []surveyor.Option{
		surveyor.WithDialects(c.Schema.Dialects...),
		surveyor.WithParallel(c.Parallel),
		surveyor.WithWorkers(c.Workers),
		surveyor.WithDiscoverOptions(c.DiscoverOptions()),
	}
	if c.RulesScript != "" {
		opts = append(opts, surveyor.WithRulesScript(c.RulesScript))
	}
	return opts
}
