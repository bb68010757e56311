package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/autocitation/autocite/pkg/core"
)

// AppConfigFileName is the file name of the per-user config.
const AppConfigFileName = "config.yaml"

// AppConfig holds per-user preferences remembered between runs.
type AppConfig struct {
	LastStyle string `yaml:"last_style"`
	LastSort  string `yaml:"last_sort"`
	// CSLFolder is an extra directory searched for CSL styles.
	CSLFolder string `yaml:"csl_folder"`
}

// DefaultAppConfig returns the preferences used on first run.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		LastStyle: "builtin:kr_default",
		LastSort:  core.SortAuthorYear,
	}
}

// AppConfigPath returns the path of the per-user config in dir.
func AppConfigPath(dir string) string {
	return filepath.Join(dir, AppConfigFileName)
}

// LoadAppConfig reads the per-user config from dir. A missing or invalid
// file yields the defaults; missing keys keep their default values.
func LoadAppConfig(dir string) AppConfig {
	cfg := DefaultAppConfig()
	data, err := os.ReadFile(AppConfigPath(dir))
	if err != nil {
		return cfg
	}
	loaded := cfg
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg
	}
	return loaded
}

// SaveAppConfig writes cfg to dir, creating the directory if needed.
func SaveAppConfig(dir string, cfg AppConfig) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode app config: %w", err)
	}
	if err := os.WriteFile(AppConfigPath(dir), data, 0o600); err != nil {
		return fmt.Errorf("failed to write app config: %w", err)
	}
	return nil
}
