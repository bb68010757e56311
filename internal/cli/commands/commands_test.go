// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocitation/autocite/internal/cli/output"
	"github.com/autocitation/autocite/internal/cli/testutil"
	"github.com/autocitation/autocite/pkg/core"
)

func TestNewRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	assert.Equal(t, "run", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{
		"make-corrections", "corrections-all", "corrections-include-info", "apply-corrections",
		"save-back", "only-dirty", "no-backup", "encoding", "no-recursive", "include-hidden", "csl-json",
	}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	assert.NotEmpty(t, cmd.Aliases, "run command should have aliases")
	assert.Equal(t, "build", cmd.Aliases[0], "run command should have 'build' alias")
}

func TestNewListCommand(t *testing.T) {
	cmd := NewListCommand()

	assert.Equal(t, "list", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()

	assert.Equal(t, "check", cmd.Use)
	sev := cmd.Flags().Lookup("severity")
	require.NotNil(t, sev)
	assert.Equal(t, "warn", sev.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("disable"))
}

func TestNewFormatCommand(t *testing.T) {
	cmd := NewFormatCommand()

	assert.Equal(t, "format", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("save-choice"))
}

func TestNewCorrectionsCommand(t *testing.T) {
	cmd := NewCorrectionsCommand()

	assert.Equal(t, "corrections", cmd.Use)
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["generate"])
	assert.True(t, names["apply"])

	apply, _, err := cmd.Find([]string{"apply"})
	require.NoError(t, err)
	onlyDirty := apply.Flags().Lookup("only-dirty")
	require.NotNil(t, onlyDirty)
	assert.Equal(t, "true", onlyDirty.DefValue)
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history", cmd.Use)
	for _, flag := range []string{"limit", "all", "snapshot"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.NotNil(t, cmd.Flags().ShorthandLookup("n"))
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("addr"))
	assert.NotNil(t, cmd.Flags().Lookup("watch"))
}

func TestNewStylesCommand(t *testing.T) {
	cmd := NewStylesCommand()

	assert.Equal(t, "styles", cmd.Use)
	fields, _, err := cmd.Find([]string{"fields"})
	require.NoError(t, err)
	assert.Equal(t, "fields", fields.Name())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "한국어…", truncate("한국어 논문", 4))
}

func TestIssueBadges(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeMarkdown, false)

	assert.Equal(t, "ok", issueBadges(tr.Renderer, core.IssueCounts{}))
	assert.Equal(t, "ok", issueBadges(tr.Renderer, core.IssueCounts{Infos: 3}))
	assert.Equal(t, "E2 W1", issueBadges(tr.Renderer, core.IssueCounts{Errors: 2, Warns: 1}))
	assert.Equal(t, "W4", issueBadges(tr.Renderer, core.IssueCounts{Warns: 4}))
}

func TestIssueSummary(t *testing.T) {
	got := issueSummary(core.IssueCounts{Errors: 1, Warns: 2, Infos: 3})
	assert.Equal(t, "errors: 1, warns: 2, infos: 3", got)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "01234567", shortID("0123456789abcdef"))
	assert.Equal(t, "abc", shortID("abc"))
}
