package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/output"
	"github.com/autocitation/autocite/internal/project"
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/corrections"
)

// NewCorrectionsCommand creates the corrections command group.
func NewCorrectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "Generate and apply corrections spreadsheets",
		Long: `Work with corrections CSV files.

A corrections file has one row per (record, field) with the current value and
an empty new_value column. Fill in new_value in a spreadsheet and apply it to
change the records.`,
	}

	cmd.AddCommand(newCorrectionsGenerateCommand())
	cmd.AddCommand(newCorrectionsApplyCommand())
	return cmd
}

type correctionsGenerateOptions struct {
	All         bool
	IncludeInfo bool
	Out         string
}

func newCorrectionsGenerateCommand() *cobra.Command {
	opts := &correctionsGenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a corrections template",
		Example: `  # Rows for records with errors or warnings
  autocite corrections generate -i refs

  # Rows for every record
  autocite corrections generate -i refs --all --out fixes.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			proj, _, err := cmdCtx.LoadProject(cmd.Context())
			if err != nil {
				return err
			}

			path := opts.Out
			if path == "" {
				path = filepath.Join(cmdCtx.Cfg.OutputDir, CorrectionsFile)
			}
			n, err := corrections.Generate(proj.Records, path, corrections.GenerateOptions{
				IncludeAllRecords: opts.All,
				OnlyErrorWarn:     !opts.IncludeInfo,
			})
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(CorrectionsOutput{Path: path, Rows: n})
			}
			r.StatusLine(path, "success", fmt.Sprintf("%d rows", n))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Include records without issues")
	cmd.Flags().BoolVar(&opts.IncludeInfo, "include-info", false, "Include records with only info issues")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Output path (default <output-dir>/corrections.csv)")
	return cmd
}

type correctionsApplyOptions struct {
	SaveBack  bool
	OnlyDirty bool
	NoExport  bool
}

// CorrectionsApplyOutput is the JSON output of corrections apply.
type CorrectionsApplyOutput struct {
	Apply  corrections.Result   `json:"apply"`
	Issues core.IssueCounts     `json:"issues"`
	Export *project.ExportStats `json:"export,omitempty"`
	Save   *project.SaveStats   `json:"save,omitempty"`
}

func newCorrectionsApplyCommand() *cobra.Command {
	opts := &correctionsApplyOptions{}

	cmd := &cobra.Command{
		Use:   "apply <corrections.csv>",
		Short: "Apply a filled-in corrections file",
		Long: `Apply a corrections file to the records of the input folder, re-validate
them and re-export the outputs. With --save-back the changed records are
written to their source RIS files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrectionsApply(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SaveBack, "save-back", false, "Write records back to their source RIS files")
	cmd.Flags().BoolVar(&opts.OnlyDirty, "only-dirty", true, "Save back only files with changed records")
	cmd.Flags().BoolVar(&opts.NoExport, "no-export", false, "Do not re-export outputs")
	return cmd
}

func runCorrectionsApply(cmd *cobra.Command, path string, opts *correctionsApplyOptions) (err error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rec := cmdCtx.StartRun(ctx, "corrections apply")
	var (
		proj *core.Project
		out  CorrectionsApplyOutput
	)
	defer func() { rec.Finish(ctx, proj, out, err) }()

	proj, _, err = cmdCtx.LoadProject(ctx)
	if err != nil {
		return err
	}

	out.Apply, err = corrections.Apply(proj.Records, path)
	if err != nil {
		return err
	}
	cmdCtx.Pipeline.Refresh(proj)
	out.Issues = proj.IssueCounts()

	if !opts.NoExport {
		stats, err := cmdCtx.Pipeline.Export(proj, cmdCtx.Cfg.OutputDir, project.DefaultExportOptions())
		if err != nil {
			return err
		}
		out.Export = &stats
	}
	if opts.SaveBack {
		saved, err := cmdCtx.Pipeline.SaveBack(proj, project.SaveOptions{
			OnlyDirty: opts.OnlyDirty,
			Encoding:  cmdCtx.Cfg.Encoding,
		})
		if err != nil {
			return err
		}
		out.Save = &saved
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(2, "Apply corrections")
	r.KeyValue("rows read", out.Apply.RowsRead)
	r.KeyValue("changes", out.Apply.Changes)
	for i, e := range out.Apply.Errors {
		if i == maxApplyErrors {
			r.Printf(" - ... (%d more)\n", len(out.Apply.Errors)-maxApplyErrors)
			break
		}
		r.Println(" - " + e)
	}
	r.Println("")
	if out.Export != nil {
		renderExport(r, "Export", *out.Export)
	}
	r.Header(2, "Issues")
	r.Println(issueSummary(out.Issues))
	if out.Save != nil {
		r.Println("")
		r.Header(2, "Save back")
		r.KeyValue("files touched", out.Save.FilesTouched)
		r.KeyValue("records written", out.Save.RecordsWritten)
	}
	return nil
}
