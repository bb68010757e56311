package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/output"
	"github.com/autocitation/autocite/internal/project"
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/corrections"
)

// CorrectionsFile is the template written by --make-corrections.
const CorrectionsFile = "corrections.csv"

// maxApplyErrors limits how many corrections row errors are printed.
const maxApplyErrors = 10

// RunOptions holds options for the run command.
type RunOptions struct {
	MakeCorrections        bool
	CorrectionsAll         bool
	CorrectionsIncludeInfo bool
	ApplyCorrections       string
	SaveBack               bool
	OnlyDirty              bool
	NoBackup               bool
	Encoding               string
	NoRecursive            bool
	IncludeHidden          bool
	CSLJSON                bool
}

// RunOutput is the JSON output of the run command.
type RunOutput struct {
	RunID       string               `json:"run_id,omitempty"`
	Folder      string               `json:"folder"`
	Load        project.LoadStats    `json:"load"`
	Export      project.ExportStats  `json:"export"`
	Issues      core.IssueCounts     `json:"issues"`
	Corrections *CorrectionsOutput   `json:"corrections,omitempty"`
	Apply       *corrections.Result  `json:"apply,omitempty"`
	ReExport    *project.ExportStats `json:"re_export,omitempty"`
	Save        *project.SaveStats   `json:"save,omitempty"`
}

// CorrectionsOutput describes a written corrections template.
type CorrectionsOutput struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a RIS folder and export references, records and issues",
		Long: `Run the full pipeline on the input folder.

The folder is scanned for .ris files, every record is normalized and
validated, and references.txt, records.xlsx and issues.xlsx are written to
the output directory.

Corrections round trip:
  1. run --make-corrections writes corrections.csv next to the outputs
  2. fill in the new_value column in a spreadsheet
  3. run --apply-corrections corrections.csv applies it and re-exports
  4. add --save-back to write the corrected records to the source files`,
		Example: `  # Export everything for ./refs
  autocite run -i refs --output-dir out

  # Generate a corrections template including info-level issues
  autocite run -i refs --make-corrections --corrections-include-info

  # Apply corrections and write them back (with .bak backups)
  autocite run -i refs --apply-corrections out/corrections.csv --save-back`,
		Aliases: []string{"build"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.MakeCorrections, "make-corrections", false, "Write a corrections.csv template")
	cmd.Flags().BoolVar(&opts.CorrectionsAll, "corrections-all", false, "Template: include records without issues")
	cmd.Flags().BoolVar(&opts.CorrectionsIncludeInfo, "corrections-include-info", false, "Template: include records with only info issues")
	cmd.Flags().StringVar(&opts.ApplyCorrections, "apply-corrections", "", "Apply a corrections CSV, then re-export")
	cmd.Flags().BoolVar(&opts.SaveBack, "save-back", false, "Write records back to their source RIS files")
	cmd.Flags().BoolVar(&opts.OnlyDirty, "only-dirty", false, "Save back only files with changed records")
	cmd.Flags().BoolVar(&opts.NoBackup, "no-backup", false, "Do not write .bak copies before overwriting")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "Encoding for saved RIS files (utf-8, utf-8-sig, cp949, euc-kr)")
	cmd.Flags().BoolVar(&opts.NoRecursive, "no-recursive", false, "Do not scan subfolders")
	cmd.Flags().BoolVar(&opts.IncludeHidden, "include-hidden", false, "Include hidden files and folders")
	cmd.Flags().BoolVar(&opts.CSLJSON, "csl-json", false, "Also write records.json (CSL-JSON)")

	_ = cmd.RegisterFlagCompletionFunc("encoding", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"utf-8", "utf-8-sig", "cp949", "euc-kr"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) (err error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cmdCtx, opts)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rec := cmdCtx.StartRun(ctx, "run")
	var (
		proj *core.Project
		res  = RunOutput{RunID: rec.ID()}
	)
	defer func() { rec.Finish(ctx, proj, res, err) }()

	proj, res.Load, err = cmdCtx.LoadProject(ctx)
	if err != nil {
		return err
	}
	res.Folder = proj.Folder
	cmdCtx.Logger.Debug("project loaded", "folder", proj.Folder, "records", res.Load.RecordsLoaded)

	exportOpts := project.DefaultExportOptions()
	exportOpts.CSLJSON = opts.CSLJSON

	res.Export, err = cmdCtx.Pipeline.Export(proj, cmdCtx.Cfg.OutputDir, exportOpts)
	if err != nil {
		return err
	}
	res.Issues = proj.IssueCounts()

	if opts.MakeCorrections {
		path := filepath.Join(cmdCtx.Cfg.OutputDir, CorrectionsFile)
		n, err := corrections.Generate(proj.Records, path, corrections.GenerateOptions{
			IncludeAllRecords: opts.CorrectionsAll,
			OnlyErrorWarn:     !opts.CorrectionsIncludeInfo,
		})
		if err != nil {
			return err
		}
		res.Corrections = &CorrectionsOutput{Path: path, Rows: n}
	}

	if opts.ApplyCorrections != "" {
		applied, err := corrections.Apply(proj.Records, opts.ApplyCorrections)
		if err != nil {
			return err
		}
		cmdCtx.Pipeline.Refresh(proj)
		res.Apply = &applied
		res.Issues = proj.IssueCounts()

		again, err := cmdCtx.Pipeline.Export(proj, cmdCtx.Cfg.OutputDir, exportOpts)
		if err != nil {
			return err
		}
		res.ReExport = &again
	}

	if opts.SaveBack {
		saved, err := cmdCtx.Pipeline.SaveBack(proj, project.SaveOptions{
			OnlyDirty: opts.OnlyDirty,
			Encoding:  cmdCtx.Cfg.Encoding,
		})
		if err != nil {
			return err
		}
		res.Save = &saved
	}

	return renderRun(cmdCtx.Renderer, &res, proj.Settings.BackupOnSave)
}

// applyRunFlags lets run-only flags override the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cmdCtx *CommandContext, opts *RunOptions) {
	cfg := *cmdCtx.Cfg
	if cmd.Flags().Changed("encoding") {
		cfg.Encoding = opts.Encoding
	}
	if opts.NoBackup {
		cfg.Settings.BackupOnSave = false
	}
	if opts.NoRecursive {
		cfg.Recursive = false
	}
	if opts.IncludeHidden {
		cfg.IncludeHidden = true
	}
	cmdCtx.Cfg = &cfg
}

func renderRun(r *output.Renderer, res *RunOutput, backup bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	r.Header(2, "Load")
	r.KeyValue("folder", res.Folder)
	r.KeyValue("files found", res.Load.FilesFound)
	r.KeyValue("files loaded", res.Load.FilesLoaded)
	r.KeyValue("records", res.Load.RecordsLoaded)
	r.KeyValue("parse errors", res.Load.ParseErrors)
	r.Println("")

	renderExport(r, "Export", res.Export)

	r.Header(2, "Issues")
	r.Println(issueSummary(res.Issues))
	r.Println("")

	if res.Corrections != nil {
		r.Header(2, "Corrections")
		r.KeyValue(CorrectionsFile, res.Corrections.Path)
		r.KeyValue("rows", res.Corrections.Rows)
		r.Println("Fill in new_value in a spreadsheet, then apply it with --apply-corrections.")
		r.Println("")
	}

	if res.Apply != nil {
		r.Header(2, "Apply corrections")
		r.KeyValue("rows read", res.Apply.RowsRead)
		r.KeyValue("changes", res.Apply.Changes)
		if n := len(res.Apply.Errors); n > 0 {
			r.KeyValue("errors", n)
			for i, e := range res.Apply.Errors {
				if i == maxApplyErrors {
					r.Println(" - ... (" + strconv.Itoa(n-maxApplyErrors) + " more)")
					break
				}
				r.Println(" - " + e)
			}
		}
		r.Println("")
	}

	if res.ReExport != nil {
		renderExport(r, "Re-export after corrections", *res.ReExport)
	}

	if res.Save != nil {
		r.Header(2, "Save back")
		r.KeyValue("files touched", res.Save.FilesTouched)
		r.KeyValue("records written", res.Save.RecordsWritten)
		r.KeyValue("skipped (no source)", res.Save.SkippedNoSource)
		if backup {
			r.Println("Backups were written as .bak files.")
		} else {
			r.Println("Backups are disabled.")
		}
		r.Println("")
	}

	if res.RunID != "" {
		r.Println(fmt.Sprintf("Run %s recorded.", res.RunID))
	}
	return nil
}

func renderExport(r *output.Renderer, title string, stats project.ExportStats) {
	r.Header(2, title)
	r.KeyValue("references.txt", stats.ReferencesTxt)
	r.KeyValue("records.xlsx", stats.RecordsXLSX)
	r.KeyValue("issues.xlsx", stats.IssuesXLSX)
	if stats.RecordsJSON != "" {
		r.KeyValue("records.json", stats.RecordsJSON)
	}
	r.Println("")
}
