// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/autocitation/autocite/internal/cli/output"
)

// JournalRIS is a complete journal article.
const JournalRIS = `TY  - JOUR
TI  - Deep learning
AU  - Kim, Minsoo
PY  - 2020
JO  - Journal of AI
VL  - 12
SP  - 1
EP  - 10
DO  - https://doi.org/10.1234/ABC
ER  -
`

// KoreanRIS holds a thesis and a journal article without a title.
const KoreanRIS = `TY  - THES
TI  - 한국어 논문
AU  - 홍길동
PY  - 2019
PB  - 서울대학교
ER  -

TY  - JOUR
AU  - 이영희
PY  - 2018
JO  - 학회지
VL  - 3
SP  - 5
ER  -
`

// SetupTestProject creates a temporary project with a refs/ folder of RIS
// files and isolates the per-user data directory. It returns the project
// directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	IsolateUserData(t)
	tmpDir := t.TempDir()

	refs := filepath.Join(tmpDir, "refs", "korean")
	if err := os.MkdirAll(refs, 0o750); err != nil {
		t.Fatalf("failed to create directory %s: %v", refs, err)
	}
	writeFile(t, filepath.Join(tmpDir, "refs", "journal.ris"), JournalRIS)
	writeFile(t, filepath.Join(refs, "k.ris"), KoreanRIS)
	return tmpDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

// IsolateUserData points the user data directory at a temporary directory.
func IsolateUserData(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("APPDATA", home)
	return home
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
