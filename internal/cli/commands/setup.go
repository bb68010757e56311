// Package commands implements the autocite subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/config"
	"github.com/autocitation/autocite/internal/cli/output"
	intconfig "github.com/autocitation/autocite/internal/config"
	"github.com/autocitation/autocite/internal/project"
	"github.com/autocitation/autocite/internal/state"
	"github.com/autocitation/autocite/internal/styles"
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Pipeline *project.Pipeline
}

// NewCommandContext creates a CommandContext with a pipeline configured
// from the validate section of the config.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cmdCtx := NewCommandContextWithoutPipeline(cmd)
	if err := cmdCtx.buildPipeline(); err != nil {
		return nil, err
	}
	return cmdCtx, nil
}

// buildPipeline (re)creates the pipeline from the current rule configuration.
func (c *CommandContext) buildPipeline() error {
	analyzerCfg, err := c.Cfg.Rules.AnalyzerConfig()
	if err != nil {
		return err
	}
	c.Pipeline = project.New(project.Config{
		Logger:   c.Logger,
		Analyzer: validate.NewAnalyzer(analyzerCfg),
	})
	return nil
}

// DisableRules turns off additional rules for this invocation only.
func (c *CommandContext) DisableRules(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	cfg := *c.Cfg
	rules := &config.ValidateConfig{}
	if cfg.Rules != nil {
		*rules = *cfg.Rules
	}
	rules.Disabled = append(append([]string(nil), rules.Disabled...), ids...)
	cfg.Rules = rules
	c.Cfg = &cfg
	return c.buildPipeline()
}

// NewCommandContextWithoutPipeline creates a CommandContext for commands
// that never load a project.
func NewCommandContextWithoutPipeline(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the current configuration.
func getConfig() *config.Config {
	return config.GetCurrentConfig()
}

// settings returns the project settings with a CSL style name resolved
// against the style directories.
func (c *CommandContext) settings() core.ProjectSettings {
	s := c.Cfg.Settings
	s.StyleID = styles.Resolve(s.StyleID, styleDirs()...)
	return s
}

// LoadProject loads the configured input folder.
func (c *CommandContext) LoadProject(ctx context.Context) (*core.Project, project.LoadStats, error) {
	return c.Pipeline.Load(ctx, c.Cfg.Input, c.settings(), project.LoadOptions{
		Recursive:     c.Cfg.Recursive,
		IncludeHidden: c.Cfg.IncludeHidden,
	})
}

// styleDirs returns the CSL search path: the user's configured folder, the
// user styles dir, then the styles dir next to the executable.
func styleDirs() []string {
	var dirs []string
	if app := intconfig.LoadAppConfig(intconfig.UserDataDir()); app.CSLFolder != "" {
		dirs = append(dirs, app.CSLFolder)
	}
	dirs = append(dirs, intconfig.UserStylesDir())
	if d := intconfig.AppStylesDir(); d != "" {
		dirs = append(dirs, d)
	}
	return dirs
}

// RunRecorder records one command invocation in the state database.
// A zero RunRecorder records nothing.
type RunRecorder struct {
	store  *state.Store
	run    *state.Run
	logger *slog.Logger
}

// StartRun opens the state database and records the start of command.
// State problems are logged and never fail the command.
func (c *CommandContext) StartRun(ctx context.Context, command string) *RunRecorder {
	if !c.Cfg.StateEnabled() {
		return &RunRecorder{}
	}

	store := state.NewStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		c.Logger.Warn("state database unavailable", "path", c.Cfg.StatePath, "error", err)
		return &RunRecorder{}
	}
	run, err := store.CreateRun(ctx, c.Cfg.Input, command)
	if err != nil {
		c.Logger.Warn("failed to record run", "error", err)
		_ = store.Close()
		return &RunRecorder{}
	}
	return &RunRecorder{store: store, run: run, logger: c.Logger}
}

// ID returns the run id, or "" when nothing is recorded.
func (r *RunRecorder) ID() string {
	if r.run == nil {
		return ""
	}
	return r.run.ID
}

// Finish completes the run and, when it succeeded, stores a snapshot of proj.
func (r *RunRecorder) Finish(ctx context.Context, proj *core.Project, stats any, runErr error) {
	if r.store == nil {
		return
	}
	defer func() { _ = r.store.Close() }()

	status, msg := state.RunStatusCompleted, ""
	if runErr != nil {
		status, msg = state.RunStatusFailed, runErr.Error()
	}
	// The command context may already be canceled; the record still matters.
	ctx = context.WithoutCancel(ctx)
	if err := r.store.CompleteRun(ctx, r.run.ID, status, msg, stats); err != nil {
		r.logger.Warn("failed to complete run", "run", r.run.ID, "error", err)
		return
	}
	if proj != nil && runErr == nil {
		if err := r.store.SaveSnapshot(ctx, r.run.ID, proj); err != nil {
			r.logger.Warn("failed to save snapshot", "run", r.run.ID, "error", err)
		}
	}
}

// errIssuesFound is returned by commands that fail on validation errors.
var errIssuesFound = errors.New("validation errors found")

func issueSummary(c core.IssueCounts) string {
	return fmt.Sprintf("errors: %d, warns: %d, infos: %d", c.Errors, c.Warns, c.Infos)
}
