package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/autocitation/autocite/internal/config"
	"github.com/autocitation/autocite/pkg/core"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// envPrefix is the prefix of environment variables read into the config.
const envPrefix = "AUTOCITE_"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// keyAliases maps short flag and env names to config keys.
var keyAliases = map[string]string{
	"state":          "state_path",
	"style":          "settings.style",
	"sort":           "settings.sort",
	"language_pref":  "settings.language_pref",
	"backup_on_save": "settings.backup_on_save",
	"csl_locale":     "settings.csl_locale",
}

// pathFlags are resolved against the working directory when given on the
// command line, and against the project root otherwise.
var pathFlags = map[string]string{
	"input":      "input",
	"output-dir": "output_dir",
	"state":      "state_path",
}

func configKey(name string) string {
	key := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	if alias, ok := keyAliases[key]; ok {
		return alias
	}
	return key
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of an explicit --config file
//  2. Search upward from CWD for autocite.yaml
//  3. Current working directory
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := intconfig.FindProjectRoot(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || path == StateDisabled || path == ":memory:" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

func defaults() map[string]any {
	def := core.DefaultProjectSettings()
	return map[string]any{
		"input":                   ".",
		"output_dir":              DefaultOutputDir,
		"state_path":              DefaultStateFile,
		"encoding":                DefaultEncoding,
		"recursive":               true,
		"include_hidden":          false,
		"verbose":                 false,
		"output":                  DefaultOutput,
		"settings.style":          def.StyleID,
		"settings.sort":           def.SortMode,
		"settings.language_pref":  def.LanguagePref,
		"settings.backup_on_save": def.BackupOnSave,
		"settings.csl_locale":     def.CSLLocale,
		"serve.addr":              DefaultServeAddr,
		"serve.watch":             false,
	}
}

// savedChoice returns the style and sort remembered in the per-user config
// by format --save-choice. It is empty when nothing was saved.
func savedChoice() map[string]any {
	dir := intconfig.UserDataDir()
	if _, err := os.Stat(intconfig.AppConfigPath(dir)); err != nil {
		return nil
	}
	app := intconfig.LoadAppConfig(dir)
	out := map[string]any{}
	if app.LastStyle != "" {
		out["settings.style"] = app.LastStyle
	}
	if slices.Contains(core.SortModes, app.LastSort) {
		out["settings.sort"] = app.LastSort
	}
	return out
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > saved
// choice > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	configFileUsed = ""

	projectRoot := inferProjectRoot(cfgFile)

	// Paths given as flags are relative to where the user typed them.
	flagPaths := map[string]string{}
	if flags != nil {
		for name, key := range pathFlags {
			f := flags.Lookup(name)
			if f == nil || !f.Changed || f.Value.String() == "" {
				continue
			}
			v := f.Value.String()
			if abs, err := filepath.Abs(v); err == nil && v != StateDisabled && v != ":memory:" {
				v = abs
			}
			flagPaths[key] = v
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if saved := savedChoice(); len(saved) > 0 {
		if err := k.Load(confmap.Provider(saved, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load saved choice: %w", err)
		}
	}

	// 2. Find and load config file
	if cfgFile == "" {
		cfgFile = intconfig.FindConfigFile(projectRoot)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Load environment variables (AUTOCITE_ prefix)
	// Transform: AUTOCITE_OUTPUT_DIR -> output_dir, AUTOCITE_STYLE -> settings.style,
	// AUTOCITE_BACKUP_ON_SAVE -> settings.backup_on_save
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return configKey(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return configKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve relative paths against the project root
	cfg.ProjectRoot = projectRoot
	cfg.Input = pathValue(flagPaths, "input", cfg.Input, projectRoot)
	cfg.OutputDir = pathValue(flagPaths, "output_dir", cfg.OutputDir, projectRoot)
	cfg.StatePath = pathValue(flagPaths, "state_path", cfg.StatePath, projectRoot)
	cfg.Encoding = strings.ToLower(cfg.Encoding)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

func pathValue(flagPaths map[string]string, key, value, root string) string {
	if v, ok := flagPaths[key]; ok {
		return v
	}
	return resolvePathRelativeTo(value, root)
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration, or the
// defaults when nothing has been loaded.
func GetCurrentConfig() *Config {
	if currentConfig != nil {
		return currentConfig
	}
	return DefaultConfig()
}

// NewLogger creates the CLI logger: debug level when verbose, warnings
// otherwise.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
