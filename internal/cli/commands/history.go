package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/output"
	"github.com/autocitation/autocite/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit    int
	All      bool
	Snapshot bool
}

// SnapshotOutput is the JSON output of history --snapshot.
type SnapshotOutput struct {
	RunID   string              `json:"run_id"`
	Folder  string              `json:"folder"`
	Records []output.RecordInfo `json:"records"`
}

var errStateDisabled = errors.New("state database is disabled (--state off)")

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show the runs recorded in the state database for the input folder.

Every run, check and corrections apply is recorded with its outcome and
statistics. Successful runs also store a snapshot of the records, which
--snapshot prints.`,
		Example: `  # Last 20 runs for ./refs
  autocite history -i refs

  # Runs for every folder
  autocite history --all

  # Records of the latest snapshot
  autocite history -i refs --snapshot`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Show runs for every folder")
	cmd.Flags().BoolVar(&opts.Snapshot, "snapshot", false, "Show the records of the latest snapshot")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx := NewCommandContextWithoutPipeline(cmd)
	if !cmdCtx.Cfg.StateEnabled() {
		return errStateDisabled
	}

	store := state.NewStore(cmdCtx.Logger)
	if err := store.Open(cmdCtx.Cfg.StatePath); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	r := cmdCtx.Renderer

	if opts.Snapshot {
		proj, runID, err := store.LatestSnapshot(ctx, cmdCtx.Cfg.Input)
		if err != nil {
			return err
		}
		if proj == nil {
			return fmt.Errorf("no snapshot recorded for %s", cmdCtx.Cfg.Input)
		}
		if r.EffectiveMode() == output.ModeJSON {
			out := SnapshotOutput{RunID: runID, Folder: proj.Folder, Records: []output.RecordInfo{}}
			for _, rec := range proj.Records {
				out.Records = append(out.Records, output.NewRecordInfo(rec))
			}
			return r.JSON(out)
		}
		r.Header(1, fmt.Sprintf("Snapshot of run %s", runID))
		rows := make([][]string, 0, len(proj.Records))
		for i, rec := range proj.Records {
			rows = append(rows, []string{
				fmt.Sprint(i + 1), string(rec.Type), rec.YearString(), rec.FirstAuthorDisplay(), truncate(rec.Title, maxTitleWidth),
			})
		}
		r.Table([]string{"#", "Type", "Year", "First author", "Title"}, rows)
		r.Println("")
		r.Println(issueSummary(proj.IssueCounts()))
		return nil
	}

	folder := cmdCtx.Cfg.Input
	if opts.All {
		folder = ""
	}
	runs, err := store.ListRuns(ctx, folder, opts.Limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}

	if len(runs) == 0 {
		r.Println("No runs recorded.")
		return nil
	}

	r.Header(1, fmt.Sprintf("Runs (%d)", len(runs)))
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		row := []string{shortID(run.ID), run.Command, string(run.Status), run.StartedAt.Local().Format(time.DateTime), formatDuration(run)}
		if opts.All {
			row = append(row, run.Folder)
		}
		row = append(row, truncate(run.Error, maxTitleWidth))
		rows = append(rows, row)
	}
	header := []string{"ID", "Command", "Status", "Started", "Duration"}
	if opts.All {
		header = append(header, "Folder")
	}
	header = append(header, "Error")
	r.Table(header, rows)
	return nil
}

func formatDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
