package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autocitation/autocite/internal/cli/output"
	intconfig "github.com/autocitation/autocite/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new autocite project",
		Long: `Initialize a new autocite project.

This creates:
  - autocite.yaml configuration file
  - .gitignore for outputs, backups and the state database

Use --example to also add a refs/ folder with a sample RIS file.`,
		Example: `  # Initialize in current directory
  autocite init

  # Initialize a new directory with a sample RIS file
  autocite init my-refs --example

  # Force overwrite existing config
  autocite init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, force, example)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Add a refs/ folder with a sample RIS file")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, example bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	input := "."
	if example {
		input = "refs"
	}
	data, err := renderStarterConfig(input)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", intconfig.ConfigFileName, err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.StatusLine(intconfig.ConfigFileName, "success", "")

	templates := []string{"starter"}
	if example {
		templates = append(templates, "example")
	}
	for _, name := range templates {
		files, err := copyTemplate(name, dir, force)
		if err != nil {
			return fmt.Errorf("failed to initialize project: %w", err)
		}
		for _, f := range files {
			r.StatusLine(f, "success", "")
		}
	}

	r.Println("")
	r.Success("autocite project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  autocite check    Validate the RIS records")
	r.Println("  autocite run      Export references.txt, records.xlsx and issues.xlsx")
	r.Println("  autocite format   Print the reference list")
	return nil
}
