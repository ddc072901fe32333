// Package config loads merge defaults and engine settings from YAML.
//
// A missing config file is not an error: LoadConfig returns DefaultConfig.
// Values from the file override the defaults field by field, and the
// IMAGE_MERGE_LOG_LEVEL environment variable overrides log.level.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-merge-mcp/internal/engine"
	"github.com/ironsheep/image-merge-mcp/internal/imaging"
	"github.com/ironsheep/image-merge-mcp/internal/logging"
)

// EnvLogLevel overrides Log.Level when set.
const EnvLogLevel = "IMAGE_MERGE_LOG_LEVEL"

// Config represents the application configuration loaded from YAML
type Config struct {
	// Merge holds the defaults applied to every merge request
	Merge struct {
		// Direction is vertical, horizontal or smart
		Direction string `yaml:"direction"`

		// Background is a hex color, #RRGGBB or #RRGGBBAA
		Background string `yaml:"background"`

		// OverlapSensitivity is 0-100; higher accepts looser matches
		OverlapSensitivity int `yaml:"overlapSensitivity"`

		// StripChrome removes repeated headers and footers in smart merges
		StripChrome bool `yaml:"stripChrome"`
	} `yaml:"merge"`

	Limits struct {
		// MaxOutputPixels rejects larger canvases; 0 disables the limit
		MaxOutputPixels int64 `yaml:"maxOutputPixels"`
	} `yaml:"limits"`

	Engine struct {
		// Workers bounds per-image parallelism within a merge
		Workers int `yaml:"workers"`
	} `yaml:"engine"`

	Output struct {
		// Compression is default, none, speed or best
		Compression string `yaml:"compression"`
	} `yaml:"output"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Merge.Direction = string(engine.DirectionVertical)
	cfg.Merge.Background = imaging.White.Hex()
	cfg.Merge.OverlapSensitivity = imaging.DefaultSensitivity
	cfg.Merge.StripChrome = true

	cfg.Limits.MaxOutputPixels = engine.DefaultMaxOutputPixels

	cfg.Engine.Workers = runtime.NumCPU()

	cfg.Output.Compression = "default"

	cfg.Log.Level = logging.LevelInfo

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
// An empty path also yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Validate checks every field that has a restricted range.
func (c *Config) Validate() error {
	var errs []error
	if _, err := engine.ParseDirection(c.Merge.Direction); err != nil {
		errs = append(errs, fmt.Errorf("merge.direction: %w", err))
	}
	if _, err := imaging.ParseBackground(c.Merge.Background); err != nil {
		errs = append(errs, fmt.Errorf("merge.background: %w", err))
	}
	if c.Merge.OverlapSensitivity < 0 || c.Merge.OverlapSensitivity > 100 {
		errs = append(errs, fmt.Errorf("merge.overlapSensitivity: %d is outside 0-100", c.Merge.OverlapSensitivity))
	}
	if c.Limits.MaxOutputPixels < 0 {
		errs = append(errs, fmt.Errorf("limits.maxOutputPixels: must not be negative"))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers: must not be negative"))
	}
	if _, err := imaging.ParseCompression(c.Output.Compression); err != nil {
		errs = append(errs, fmt.Errorf("output.compression: %w", err))
	}
	if c.Log.Level != "" && !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// Options converts the merge section into engine options.
func (c *Config) Options() (engine.Options, error) {
	opts := engine.DefaultOptions()

	direction, err := engine.ParseDirection(c.Merge.Direction)
	if err != nil {
		return opts, err
	}
	bg, err := imaging.ParseBackground(c.Merge.Background)
	if err != nil {
		return opts, err
	}
	level, err := imaging.ParseCompression(c.Output.Compression)
	if err != nil {
		return opts, err
	}

	opts.Direction = direction
	opts.Background = bg
	opts.OverlapSensitivity = imaging.ClampSensitivity(c.Merge.OverlapSensitivity)
	opts.StripChrome = c.Merge.StripChrome
	opts.MaxOutputPixels = c.Limits.MaxOutputPixels
	opts.CompressionLevel = level
	return opts, nil
}

// EngineConfig returns the engine construction settings.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{Workers: c.Engine.Workers}
}
