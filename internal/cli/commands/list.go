package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/output"
	"github.com/autocitation/autocite/pkg/core"
)

// maxTitleWidth truncates titles in the text table.
const maxTitleWidth = 48

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the records of the input folder",
		Long: `List every record with its type, year, first author and issue counts.

Output adapts to environment:
  - Terminal: table with colored issue badges
  - Piped/Scripted: Markdown table (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List records (auto-detect output format)
  autocite list -i refs

  # List records as JSON
  autocite list -i refs --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	proj, _, err := cmdCtx.LoadProject(cmd.Context())
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return listJSON(r, proj)
	}

	r.Header(1, fmt.Sprintf("Records (%d total)", len(proj.Records)))

	rows := make([][]string, 0, len(proj.Records))
	for i, rec := range proj.Records {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(rec.Type),
			rec.YearString(),
			rec.FirstAuthorDisplay(),
			truncate(rec.Title, maxTitleWidth),
			issueBadges(r, rec.IssueCounts()),
			filepath.Base(rec.SourceFile),
		})
	}
	r.Table([]string{"#", "Type", "Year", "First author", "Title", "Issues", "File"}, rows)
	r.Println("")
	r.Println(issueSummary(proj.IssueCounts()))
	return nil
}

func listJSON(r *output.Renderer, proj *core.Project) error {
	out := output.ListOutput{
		Folder:  proj.Folder,
		Records: make([]output.RecordInfo, 0, len(proj.Records)),
		Total:   len(proj.Records),
		Issues:  proj.IssueCounts(),
	}
	for _, rec := range proj.Records {
		out.Records = append(out.Records, output.NewRecordInfo(rec))
	}
	return r.JSON(out)
}

// issueBadges renders "E2 W1" style counts, colored in text mode.
func issueBadges(r *output.Renderer, c core.IssueCounts) string {
	var parts []string
	text := r.EffectiveMode() == output.ModeText
	styles := r.Styles()
	if c.Errors > 0 {
		b := "E" + strconv.Itoa(c.Errors)
		if text {
			b = styles.Error.Render(b)
		}
		parts = append(parts, b)
	}
	if c.Warns > 0 {
		b := "W" + strconv.Itoa(c.Warns)
		if text {
			b = styles.Warning.Render(b)
		}
		parts = append(parts, b)
	}
	if len(parts) == 0 {
		return "ok"
	}
	return strings.Join(parts, " ")
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes-1]) + "…"
}
