package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/output"
	intconfig "github.com/autocitation/autocite/internal/config"
	"github.com/autocitation/autocite/internal/styles"
	"github.com/autocitation/autocite/pkg/format"
)

// StylesOptions holds options for the styles command.
type StylesOptions struct {
	BuiltinOnly bool
	CSLOnly     bool
}

// StyleInfo is one row of the styles listing.
type StyleInfo struct {
	styles.StyleRef
	Selector string `json:"selector"`
	LastUsed bool   `json:"last_used,omitempty"`
}

// NewStylesCommand creates the styles command.
func NewStylesCommand() *cobra.Command {
	opts := &StylesOptions{}

	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List builtin formatters and CSL styles",
		Long: `List every style that can be passed to --style.

CSL styles are discovered in the user's CSL folder, the user styles folder,
the styles folder next to the executable and the bundled styles. When two
files share a name the first one found wins.`,
		Example: `  # List all styles
  autocite styles

  # Show which record fields a CSL style prints
  autocite styles fields csl:apa-lite`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStyles(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.BuiltinOnly, "builtin", false, "Only list builtin formatters")
	cmd.Flags().BoolVar(&opts.CSLOnly, "csl", false, "Only list CSL styles")
	cmd.MarkFlagsMutuallyExclusive("builtin", "csl")

	cmd.AddCommand(newStylesFieldsCommand())
	return cmd
}

func runStyles(cmd *cobra.Command, opts *StylesOptions) error {
	cmdCtx := NewCommandContextWithoutPipeline(cmd)
	r := cmdCtx.Renderer

	refs := styles.ListStyles(styles.Options{
		IncludeBuiltin: !opts.CSLOnly,
		IncludeCSL:     !opts.BuiltinOnly,
		Dirs:           styleDirs(),
	})
	last := intconfig.LoadAppConfig(intconfig.UserDataDir()).LastStyle
	if kind, value := format.ParseSelector(last); kind == format.KindBuiltin && value != "" {
		last = format.KindBuiltin + ":" + value
	} else {
		last = styles.Resolve(last, styleDirs()...)
	}

	infos := make([]StyleInfo, 0, len(refs))
	for _, ref := range refs {
		sel := ref.Selector()
		infos = append(infos, StyleInfo{StyleRef: ref, Selector: sel, LastUsed: sel == last})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, fmt.Sprintf("Styles (%d)", len(infos)))
	rows := make([][]string, 0, len(infos))
	for _, s := range infos {
		mark := ""
		if s.LastUsed {
			mark = "*"
		}
		rows = append(rows, []string{mark, s.Kind, s.Name, s.Selector})
	}
	r.Table([]string{"", "Kind", "Name", "Selector"}, rows)
	r.Println("")
	r.Println("* last used style")
	return nil
}

// StyleFieldsOutput is the JSON output of styles fields.
type StyleFieldsOutput struct {
	Style     string   `json:"style"`
	Variables []string `json:"variables"`
	Fields    []string `json:"fields"`
}

func newStylesFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <style>",
		Short: "Show the record fields a CSL style prints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutPipeline(cmd)
			r := cmdCtx.Renderer

			sel := styles.Resolve(args[0], styleDirs()...)
			kind, path := format.ParseSelector(sel)
			if kind != styles.KindCSL {
				return fmt.Errorf("%s is not a CSL style", args[0])
			}

			out := StyleFieldsOutput{
				Style:     path,
				Variables: sortedKeys(styles.CSLVariablesUsed(path)),
				Fields:    sortedKeys(styles.EditorFieldsForCSL(path)),
			}
			if len(out.Variables) == 0 {
				return fmt.Errorf("no CSL variables found in %s", path)
			}

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(out)
			}

			r.Header(1, styles.ReadTitle(path))
			r.KeyValue("file", path)
			r.Println("")
			r.Header(2, "Record fields")
			for _, f := range out.Fields {
				r.Println("  " + f)
			}
			r.Println("")
			r.Header(2, "CSL variables")
			for _, v := range out.Variables {
				r.Println("  " + v)
			}
			return nil
		},
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
