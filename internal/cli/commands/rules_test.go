package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocitation/autocite/internal/cli/config"
	"github.com/autocitation/autocite/pkg/core"
)

func TestNewRulesCommand(t *testing.T) {
	cmd := NewRulesCommand()

	assert.Equal(t, "rules [rule-id]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"group", "verbose", "format"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRulesCommand_ListAll(t *testing.T) {
	cmd := NewRulesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--format", "markdown"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "# Validation Rules")
	assert.Contains(t, output, "## Required")
	assert.Contains(t, output, "## Type")
	assert.Contains(t, output, "## Format")
	assert.Contains(t, output, "## Suspicious")
}

func TestRulesCommand_FilterByGroup(t *testing.T) {
	cmd := NewRulesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--group", "format", "--format", "json"})

	err := cmd.Execute()
	require.NoError(t, err)

	var out RulesJSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.NotEmpty(t, out.Rules)
	for _, rule := range out.Rules {
		assert.Equal(t, "format", rule.Group)
	}
	assert.Equal(t, len(out.Rules), out.Count.Total)
}

func TestRulesCommand_ShowSpecificRule(t *testing.T) {
	cmd := NewRulesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"rq01", "--format", "json"})

	err := cmd.Execute()
	require.NoError(t, err)

	var rule RuleInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rule))
	assert.Equal(t, "RQ01", rule.ID)
	assert.Equal(t, core.SeverityError, rule.Severity)
	assert.True(t, rule.Enabled)
}

func TestRulesCommand_UnknownRule(t *testing.T) {
	cmd := NewRulesCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"XX99"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestEffectiveRules_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autocite.yaml")
	yaml := "validate:\n  disabled: [FM02]\n  severity:\n    FM01: info\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig(path, nil)
	require.NoError(t, err)

	rules, err := effectiveRules()
	require.NoError(t, err)

	byID := map[string]RuleInfo{}
	for _, r := range rules {
		byID[r.ID] = r
	}
	assert.False(t, byID["FM02"].Enabled)
	assert.Equal(t, core.SeverityInfo, byID["FM01"].Severity)
	assert.Equal(t, core.SeverityWarn, byID["FM01"].DefaultSeverity)
	assert.True(t, byID["RQ01"].Enabled)
}

func TestCapitalizeFirst(t *testing.T) {
	assert.Equal(t, "Required", capitalizeFirst("required"))
	assert.Equal(t, "", capitalizeFirst(""))
}
