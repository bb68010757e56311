package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocitation/autocite/internal/cli/config"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   bool
		wantFiles []string
		noFiles   []string
	}{
		{
			name:      "init empty directory",
			args:      []string{},
			wantFiles: []string{"autocite.yaml", ".gitignore"},
			noFiles:   []string{"refs"},
		},
		{
			name:      "init with example",
			args:      []string{"--example"},
			wantFiles: []string{"autocite.yaml", ".gitignore", "refs/example.ris"},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "autocite.yaml"), []byte("existing"), 0o600)
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "autocite.yaml"), []byte("existing"), 0o600)
			},
			args:      []string{"--force"},
			wantFiles: []string{"autocite.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				assert.FileExists(t, filepath.Join(tmpDir, f))
			}
			for _, f := range tt.noFiles {
				assert.NoFileExists(t, filepath.Join(tmpDir, f))
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
	assert.NotNil(t, cmd.Flags().Lookup("example"), "--example flag should exist")
}

func TestInitCreatesValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--example"})
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile("autocite.yaml")
	require.NoError(t, err, "failed to read autocite.yaml")

	expectedContents := []string{
		"# autocite project configuration",
		"input: refs",
		"output_dir: output",
		"# Folder scanned for .ris files",
		"sort: author_year",
		"addr: 127.0.0.1:8765",
	}
	for _, expected := range expectedContents {
		assert.Contains(t, string(content), expected, "config should contain %q", expected)
	}

	// The generated file loads and validates.
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig(filepath.Join(tmpDir, "autocite.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "refs"), cfg.Input)
	assert.True(t, cfg.Settings.BackupOnSave)
}

func TestCopyTemplate_KeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	gitignore := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(gitignore, []byte("mine\n"), 0o600))

	written, err := copyTemplate("starter", dir, false)
	require.NoError(t, err)
	assert.Empty(t, written)

	data, err := os.ReadFile(gitignore)
	require.NoError(t, err)
	assert.Equal(t, "mine\n", string(data))

	written, err = copyTemplate("starter", dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{".gitignore"}, written)
}

func TestRenameSpecialFiles(t *testing.T) {
	assert.Equal(t, ".gitignore", renameSpecialFiles("gitignore"))
	assert.Equal(t, filepath.Join("refs", "example.ris"), renameSpecialFiles(filepath.Join("refs", "example.ris")))
}
