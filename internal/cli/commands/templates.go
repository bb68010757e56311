package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/autocitation/autocite/internal/cli/config"
	"github.com/autocitation/autocite/pkg/core"
)

//go:embed all:templates
var templateFS embed.FS

// copyTemplate copies an embedded template directory to the target path.
// Existing files are kept unless force is set. It returns the written files.
func copyTemplate(templateName, targetDir string, force bool) ([]string, error) {
	root := path.Join("templates", templateName)
	var written []string

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		rel = renameSpecialFiles(rel)
		target := filepath.Join(targetDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if !force {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, content, 0o600); err != nil {
			return err
		}
		written = append(written, filepath.ToSlash(rel))
		return nil
	})
	return written, err
}

// renameSpecialFiles maps embedded names to dotfiles, which embed skips.
func renameSpecialFiles(p string) string {
	base := filepath.Base(p)
	switch base {
	case "gitignore":
		return filepath.Join(filepath.Dir(p), ".gitignore")
	default:
		return p
	}
}

// starterConfig is the document written to autocite.yaml by init.
type starterConfig struct {
	Input     string                `yaml:"input"`
	OutputDir string                `yaml:"output_dir"`
	Encoding  string                `yaml:"encoding"`
	Settings  starterSettings       `yaml:"settings"`
	Validate  config.ValidateConfig `yaml:"validate"`
	Serve     map[string]any        `yaml:"serve"`
}

type starterSettings struct {
	Style        string `yaml:"style"`
	Sort         string `yaml:"sort"`
	LanguagePref string `yaml:"language_pref"`
	BackupOnSave bool   `yaml:"backup_on_save"`
	CSLLocale    string `yaml:"csl_locale"`
}

// starterComments annotate top-level keys of the generated file.
var starterComments = map[string]string{
	"input":      "Folder scanned for .ris files",
	"output_dir": "references.txt, records.xlsx and issues.xlsx are written here",
	"encoding":   "Encoding used when saving RIS files: utf-8, utf-8-sig, cp949, euc-kr",
	"settings":   "Style is builtin:<id> or csl:<path|name>; sort is none, author_year, year_author or title",
	"validate":   "Disable rules or override their severity, e.g. severity: {FM01: info}",
	"serve":      "Preview server (autocite serve)",
}

// renderStarterConfig builds a commented autocite.yaml for input.
func renderStarterConfig(input string) ([]byte, error) {
	def := core.DefaultProjectSettings()
	doc := starterConfig{
		Input:     input,
		OutputDir: config.DefaultOutputDir,
		Encoding:  config.DefaultEncoding,
		Settings: starterSettings{
			Style:        def.StyleID,
			Sort:         def.SortMode,
			LanguagePref: def.LanguagePref,
			BackupOnSave: def.BackupOnSave,
			CSLLocale:    def.CSLLocale,
		},
		Validate: config.ValidateConfig{Disabled: []string{}},
		Serve:    map[string]any{"addr": config.DefaultServeAddr, "watch": false},
	}

	var node yaml.Node
	if err := node.Encode(doc); err != nil {
		return nil, err
	}
	// node is a mapping of alternating key and value nodes.
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if c, ok := starterComments[key.Value]; ok {
			key.HeadComment = c
		}
	}
	node.HeadComment = "autocite project configuration"

	return yaml.Marshal(&node)
}
