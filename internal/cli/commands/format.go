package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/output"
	intconfig "github.com/autocitation/autocite/internal/config"
)

// FormatOptions holds options for the format command.
type FormatOptions struct {
	SaveChoice bool
}

// FormatOutput is the JSON output of the format command.
type FormatOutput struct {
	Folder     string   `json:"folder"`
	Style      string   `json:"style"`
	Sort       string   `json:"sort"`
	References []string `json:"references"`
}

// NewFormatCommand creates the format command.
func NewFormatCommand() *cobra.Command {
	opts := &FormatOptions{}

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Print the formatted reference list",
		Long: `Format every record of the input folder with the selected style and print
the reference list.

Styles are selected with --style: builtin:<id> for a builtin formatter, or
csl:<path|name> for a CSL file. A bare CSL name is looked up in the user's
CSL folder, the user styles folder and the bundled styles.`,
		Example: `  # Format with the default Korean style
  autocite format -i refs

  # Format with a CSL style sorted by title and remember the choice
  autocite format -i refs --style csl:apa-lite --sort title --save-choice`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFormat(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SaveChoice, "save-choice", false, "Remember the style and sort mode as the user's last choice")

	return cmd
}

func runFormat(cmd *cobra.Command, opts *FormatOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	proj, _, err := cmdCtx.LoadProject(cmd.Context())
	if err != nil {
		return err
	}

	text, err := cmdCtx.Pipeline.FormatReferences(proj)
	if err != nil {
		return err
	}

	if opts.SaveChoice {
		dir := intconfig.UserDataDir()
		app := intconfig.LoadAppConfig(dir)
		app.LastStyle = cmdCtx.Cfg.Settings.StyleID
		app.LastSort = cmdCtx.Cfg.Settings.SortMode
		if err := intconfig.SaveAppConfig(dir, app); err != nil {
			return err
		}
		cmdCtx.Logger.Debug("saved style choice", "style", app.LastStyle, "sort", app.LastSort)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		refs := []string{}
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) != "" {
				refs = append(refs, line)
			}
		}
		return r.JSON(FormatOutput{
			Folder:     proj.Folder,
			Style:      proj.Settings.StyleID,
			Sort:       proj.Settings.SortMode,
			References: refs,
		})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Header(1, fmt.Sprintf("References (%d)", len(proj.Records)))
	}
	r.Println(strings.TrimRight(text, " \t\r\n"))
	return nil
}
