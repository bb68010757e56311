// Package config provides the configuration shared by the CLI and the
// preview server: the project file (autocite.yaml), the per-user app
// config and the user data paths.
package config

import (
	"fmt"
	"sort"

	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
)

// Default configuration values.
const (
	DefaultOutputDir = "output"
	DefaultStateFile = ".autocite/state.db"
	DefaultEncoding  = "utf-8"
)

// ValidateConfig holds validation rule configuration.
type ValidateConfig struct {
	// Disabled contains rule IDs to disable
	Disabled []string `koanf:"disabled" yaml:"disabled,omitempty"`

	// Severity maps rule ID to severity override (error, warn, info)
	Severity map[string]string `koanf:"severity" yaml:"severity,omitempty"`
}

// AnalyzerConfig converts the configuration into validator settings.
// Unknown severities are an error; unknown rule IDs are ignored.
func (c *ValidateConfig) AnalyzerConfig() (*validate.AnalyzerConfig, error) {
	cfg := validate.NewAnalyzerConfig()
	if c == nil {
		return cfg, nil
	}
	for _, id := range c.Disabled {
		cfg.DisabledRules[id] = true
	}

	ids := make([]string, 0, len(c.Severity))
	for id := range c.Severity {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sev, ok := core.ParseSeverity(c.Severity[id])
		if !ok {
			return nil, fmt.Errorf("invalid severity %q for rule %s", c.Severity[id], id)
		}
		cfg.SeverityOverrides[id] = sev
	}
	return cfg, nil
}

// ProjectConfig is the subset of autocite.yaml that tools outside the CLI
// (the preview server) need.
type ProjectConfig struct {
	Input     string               `koanf:"input"`
	OutputDir string               `koanf:"output_dir"`
	Settings  core.ProjectSettings `koanf:"settings"`
	Validate  *ValidateConfig      `koanf:"validate"`
}

// ApplyDefaults fills unset values.
func (c *ProjectConfig) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	def := core.DefaultProjectSettings()
	if c.Settings.StyleID == "" {
		c.Settings.StyleID = def.StyleID
	}
	if c.Settings.SortMode == "" {
		c.Settings.SortMode = def.SortMode
	}
	if c.Settings.CSLLocale == "" {
		c.Settings.CSLLocale = def.CSLLocale
	}
	if c.Settings.LanguagePref == "" {
		c.Settings.LanguagePref = def.LanguagePref
	}
}
