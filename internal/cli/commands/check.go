package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/output"
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Severity string
	Disable  []string
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate records and report issues",
		Long: `Validate every record of the input folder and print the issues found.

The command exits with a non-zero status when any error-level issue remains,
so it can gate CI jobs. Rules can be disabled per invocation with --disable
or permanently in the validate section of autocite.yaml.`,
		Example: `  # Report warnings and errors
  autocite check -i refs

  # Only errors, ignoring the DOI format rule
  autocite check -i refs --severity error --disable FM01`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Severity, "severity", string(core.SeverityWarn), "Minimum severity to report (error, warn, info)")
	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rule IDs to disable (comma-separated)")

	_ = cmd.RegisterFlagCompletionFunc("severity", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warn", "info"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runCheck(cmd *cobra.Command, opts *CheckOptions) (err error) {
	minSev, ok := core.ParseSeverity(opts.Severity)
	if !ok {
		return fmt.Errorf("invalid severity %q: must be error, warn or info", opts.Severity)
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if err := cmdCtx.DisableRules(opts.Disable...); err != nil {
		return err
	}

	ctx := cmd.Context()
	rec := cmdCtx.StartRun(ctx, "check")
	var (
		proj *core.Project
		out  output.CheckOutput
	)
	defer func() { rec.Finish(ctx, proj, out.Counts, err) }()

	proj, _, err = cmdCtx.LoadProject(ctx)
	if err != nil {
		return err
	}

	out = output.CheckOutput{
		Folder:      proj.Folder,
		MinSeverity: minSev,
		Issues:      validate.FilterBySeverity(proj.AllIssues(), minSev),
		Global:      validate.FilterBySeverity(proj.Issues, minSev),
		Counts:      proj.IssueCounts(),
	}
	out.Passed = out.Counts.Errors == 0

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		renderCheck(r, proj, &out)
	}

	if !out.Passed {
		return fmt.Errorf("%w: %d error(s)", errIssuesFound, out.Counts.Errors)
	}
	return nil
}

func renderCheck(r *output.Renderer, proj *core.Project, out *output.CheckOutput) {
	r.Header(1, fmt.Sprintf("Validation (%s)", proj.Folder))

	if len(out.Global) > 0 {
		r.Header(2, "Project")
		for _, it := range out.Global {
			r.StatusLine(it.Field, statusFor(it.Severity), it.Message)
		}
		r.Println("")
	}

	rows := make([][]string, 0, len(out.Issues))
	for _, it := range out.Issues {
		title, file := "", ""
		if rec, ok := proj.GetRecord(it.RecordID); ok {
			title = truncate(rec.Title, maxTitleWidth)
			file = filepath.Base(rec.SourceFile)
		}
		rows = append(rows, []string{
			string(it.Severity), it.RuleID, it.Field, it.Message, strings.Join(it.Suggestions, "; "), title, file,
		})
	}
	if len(rows) > 0 {
		r.Table([]string{"Severity", "Rule", "Field", "Message", "Suggestions", "Title", "File"}, rows)
		r.Println("")
	}

	r.Println(issueSummary(out.Counts))
	if out.Passed {
		r.Success("No errors found.")
	}
}

func statusFor(sev core.Severity) string {
	switch sev {
	case core.SeverityError:
		return "error"
	case core.SeverityWarn:
		return "warning"
	default:
		return "info"
	}
}
