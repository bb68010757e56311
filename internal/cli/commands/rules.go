package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/output"
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
	_ "github.com/autocitation/autocite/pkg/validate/rules" // register validation rules
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Group   string // Filter by group
	Verbose bool   // Show descriptions
	Format  string // Output format
}

// RuleInfo is the printable form of a validation rule.
type RuleInfo struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Group           string        `json:"group"`
	Description     string        `json:"description"`
	DefaultSeverity core.Severity `json:"default_severity"`
	// Severity is the effective severity after config overrides.
	Severity core.Severity `json:"severity"`
	Enabled  bool          `json:"enabled"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-id]",
		Short: "List available validation rules",
		Long: `List all validation rules applied to records.

Rules are organized by group (required, type, format, suspicious). The
effective severity and enabled state reflect the validate section of
autocite.yaml.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all rules
  autocite rules

  # Show details for a specific rule
  autocite rules RQ01

  # List the format rules only
  autocite rules --group format

  # Output as JSON
  autocite rules --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0], opts)
			}
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Filter by group")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Show rule descriptions")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

// rulesRenderer honors --format over the global --output flag.
func rulesRenderer(cmd *cobra.Command, opts *RulesOptions) *output.Renderer {
	if opts.Format != "" {
		return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}
	return NewCommandContextWithoutPipeline(cmd).Renderer
}

// effectiveRules returns every rule with the configured overrides applied.
func effectiveRules() ([]RuleInfo, error) {
	analyzerCfg, err := getConfig().Rules.AnalyzerConfig()
	if err != nil {
		return nil, err
	}

	defs := validate.GetAll()
	out := make([]RuleInfo, 0, len(defs))
	for _, d := range defs {
		info := RuleInfo{
			ID:              d.ID,
			Name:            d.Name,
			Group:           d.Group,
			Description:     d.Description,
			DefaultSeverity: d.Severity,
			Severity:        d.Severity,
			Enabled:         !analyzerCfg.DisabledRules[d.ID],
		}
		if sev, ok := analyzerCfg.SeverityOverrides[d.ID]; ok {
			info.Severity = sev
		}
		out = append(out, info)
	}
	return out, nil
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	r := rulesRenderer(cmd, opts)

	rules, err := effectiveRules()
	if err != nil {
		return err
	}
	if opts.Group != "" {
		var filtered []RuleInfo
		for _, rule := range rules {
			if strings.EqualFold(rule.Group, opts.Group) {
				filtered = append(filtered, rule)
			}
		}
		rules = filtered
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return listRulesJSON(r, rules)
	case output.ModeMarkdown:
		return listRulesMarkdown(r, rules, opts.Verbose)
	default:
		return listRulesText(r, rules, opts.Verbose)
	}
}

func showRule(cmd *cobra.Command, ruleID string, opts *RulesOptions) error {
	r := rulesRenderer(cmd, opts)

	rules, err := effectiveRules()
	if err != nil {
		return err
	}
	var rule *RuleInfo
	for i := range rules {
		if strings.EqualFold(rules[i].ID, ruleID) {
			rule = &rules[i]
			break
		}
	}
	if rule == nil {
		return fmt.Errorf("rule %q not found", ruleID)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(rule)
	case output.ModeMarkdown:
		showRuleMarkdown(r, rule)
	default:
		showRuleText(r, rule)
	}
	return nil
}

func listRulesText(r *output.Renderer, rules []RuleInfo, verbose bool) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Validation Rules (%d)", len(rules))))
	r.Println("")

	currentGroup := ""
	for _, rule := range rules {
		if rule.Group != currentGroup {
			currentGroup = rule.Group
			r.Println(styles.Bold.Render("  " + capitalizeFirst(currentGroup)))
		}

		status := getSeverityStyle(styles, rule.Severity).Render(rule.Severity.String())
		if !rule.Enabled {
			status = styles.Muted.Render("disabled")
		}
		r.Printf("    %s  %s - %s\n", styles.Muted.Render(rule.ID), rule.Name, status)

		if verbose {
			r.Println(styles.Muted.Render("        " + rule.Description))
			r.Println("")
		}
	}

	r.Println("")
	r.Println(styles.Muted.Render("Use 'autocite rules <rule-id>' for details"))
	r.Println("")
	return nil
}

func listRulesMarkdown(r *output.Renderer, rules []RuleInfo, verbose bool) error {
	r.Println("# Validation Rules")
	r.Println("")

	currentGroup := ""
	for _, rule := range rules {
		if rule.Group != currentGroup {
			currentGroup = rule.Group
			r.Println("## " + capitalizeFirst(currentGroup))
			r.Println("")
		}

		sev := rule.Severity.String()
		if !rule.Enabled {
			sev = "disabled"
		}
		r.Printf("- **%s** - %s (`%s`)\n", rule.ID, rule.Name, sev)
		if verbose {
			r.Println("  " + rule.Description)
		}
	}

	r.Println("")
	return nil
}

// RulesJSONOutput is the JSON output structure for rules listing.
type RulesJSONOutput struct {
	Rules []RuleInfo `json:"rules"`
	Count struct {
		Enabled int `json:"enabled"`
		Total   int `json:"total"`
	} `json:"count"`
}

func listRulesJSON(r *output.Renderer, rules []RuleInfo) error {
	out := RulesJSONOutput{Rules: rules}
	if out.Rules == nil {
		out.Rules = []RuleInfo{}
	}
	for _, rule := range rules {
		if rule.Enabled {
			out.Count.Enabled++
		}
	}
	out.Count.Total = len(rules)
	return r.JSON(out)
}

func showRuleText(r *output.Renderer, rule *RuleInfo) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("%s - %s", rule.ID, rule.Name)))
	r.Println("")

	r.Printf("  %s: %s\n", styles.Bold.Render("Group"), rule.Group)
	r.Printf("  %s: %s\n", styles.Bold.Render("Severity"), rule.Severity.String())
	if rule.Severity != rule.DefaultSeverity {
		r.Printf("  %s: %s\n", styles.Bold.Render("Default"), rule.DefaultSeverity.String())
	}
	if !rule.Enabled {
		r.Printf("  %s: %s\n", styles.Bold.Render("Status"), styles.Muted.Render("disabled"))
	}
	r.Println("")

	r.Println(styles.Bold.Render("Description"))
	r.Println("  " + rule.Description)
	r.Println("")
}

func showRuleMarkdown(r *output.Renderer, rule *RuleInfo) {
	r.Printf("# %s - %s\n\n", rule.ID, rule.Name)
	status := ""
	if !rule.Enabled {
		status = " | **Status:** disabled"
	}
	r.Printf("**Group:** %s | **Severity:** `%s`%s\n\n", rule.Group, rule.Severity.String(), status)
	r.Println(rule.Description)
	r.Println("")
}

func getSeverityStyle(styles *output.Styles, sev core.Severity) lipgloss.Style {
	switch sev {
	case core.SeverityError:
		return styles.Error
	case core.SeverityWarn:
		return styles.Warning
	case core.SeverityInfo:
		return styles.Info
	default:
		return styles.Muted
	}
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
