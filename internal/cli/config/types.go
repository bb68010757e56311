// Package config loads the CLI configuration.
//
// Values are layered with koanf: built-in defaults, then autocite.yaml
// (found by walking up from the working directory), then AUTOCITE_
// environment variables, then explicitly set command-line flags.
package config

import (
	intconfig "github.com/autocitation/autocite/internal/config"
	"github.com/autocitation/autocite/pkg/core"
)

// ValidateConfig is an alias for the shared validation rule configuration.
type ValidateConfig = intconfig.ValidateConfig

// ServeConfig holds configuration for the preview server.
type ServeConfig struct {
	Addr  string `koanf:"addr" validate:"required"`
	Watch bool   `koanf:"watch"`
}

// Config holds all CLI configuration options.
type Config struct {
	Input         string               `koanf:"input" validate:"required"`
	OutputDir     string               `koanf:"output_dir" validate:"required"`
	StatePath     string               `koanf:"state_path"`
	Encoding      string               `koanf:"encoding" validate:"encoding"`
	Recursive     bool                 `koanf:"recursive"`
	IncludeHidden bool                 `koanf:"include_hidden"`
	Verbose       bool                 `koanf:"verbose"`
	OutputFormat  string               `koanf:"output" validate:"oneof=auto text markdown json"`
	Settings      core.ProjectSettings `koanf:"settings"`
	Rules         *ValidateConfig      `koanf:"validate"`
	Serve         ServeConfig          `koanf:"serve"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultOutputDir = intconfig.DefaultOutputDir
	DefaultStateFile = intconfig.DefaultStateFile
	DefaultEncoding  = intconfig.DefaultEncoding
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultServeAddr = "127.0.0.1:8765"
)

// StateDisabled as the state path turns run history off.
const StateDisabled = "off"

// DefaultConfig returns the configuration used when nothing was loaded.
func DefaultConfig() *Config {
	return &Config{
		Input:        ".",
		OutputDir:    DefaultOutputDir,
		StatePath:    DefaultStateFile,
		Encoding:     DefaultEncoding,
		Recursive:    true,
		OutputFormat: DefaultOutput,
		Settings:     core.DefaultProjectSettings(),
		Serve:        ServeConfig{Addr: DefaultServeAddr},
	}
}

// StateEnabled reports whether runs should be recorded.
func (c *Config) StateEnabled() bool {
	return c.StatePath != "" && c.StatePath != StateDisabled
}
