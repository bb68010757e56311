package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocitation/autocite/internal/scan"
	"github.com/autocitation/autocite/internal/testutil"
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/ris"
)

const fileA = `TY  - JOUR
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

const fileB = `TY  - THES
TI  - 한국어 논문
AU  - 홍길동
PY  - 2019
ER  - 

TY  - JOUR
AU  - 이영희
PY  - 2018
JO  - 학회지
VL  - 3
SP  - 5
ER  - 
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ris"), []byte(fileA), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.ris"), []byte(fileB), 0o600))
	return dir
}

func newPipeline(t *testing.T) *Pipeline {
	return New(Config{Logger: testutil.NewTestLogger(t), Concurrency: 2})
}

func TestLoad(t *testing.T) {
	dir := writeProject(t)
	p := newPipeline(t)

	proj, stats, err := p.Load(context.Background(), dir, core.DefaultProjectSettings(), LoadOptions{Recursive: true})
	require.NoError(t, err)

	assert.Equal(t, LoadStats{FilesFound: 2, FilesLoaded: 2, RecordsLoaded: 3}, stats)
	require.Len(t, proj.Records, 3)
	assert.Empty(t, proj.Issues)

	first := proj.Records[0]
	assert.Equal(t, "Deep learning", first.Title)
	assert.Equal(t, "10.1234/abc", first.DOI, "normalized on load")
	assert.Equal(t, "1-10", first.Pages)
	assert.Equal(t, "Kim", first.Authors[0].Family)
	assert.False(t, first.Dirty, "load normalization does not mark dirty")
	assert.Empty(t, first.Issues)

	thesis := proj.Records[1]
	require.Len(t, thesis.Issues, 1)
	assert.Equal(t, "TY04", thesis.Issues[0].RuleID)

	untitled := proj.Records[2]
	require.NotEmpty(t, untitled.Issues)
	assert.Equal(t, "RQ01", untitled.Issues[0].RuleID)
	assert.Equal(t, core.SeverityError, untitled.Issues[0].Severity)
}

func TestLoad_NonRecursive(t *testing.T) {
	dir := writeProject(t)
	_, stats, err := newPipeline(t).Load(context.Background(), dir, core.DefaultProjectSettings(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFound)
}

func TestLoad_ParseErrorBecomesIssue(t *testing.T) {
	dir := writeProject(t)
	p := newPipeline(t)
	p.parseFile = func(path string) ([]*core.Record, string, error) {
		if filepath.Base(path) == "b.ris" {
			return nil, "", errors.New("boom")
		}
		return ris.ParseFile(path)
	}

	proj, stats, err := p.Load(context.Background(), dir, core.DefaultProjectSettings(), LoadOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ParseErrors)
	assert.Equal(t, 1, stats.FilesLoaded)
	require.Len(t, proj.Issues, 1)
	assert.Equal(t, core.CodeFileParseError, proj.Issues[0].Code)
	assert.Contains(t, proj.Issues[0].Message, "b.ris")
}

func TestLoad_Errors(t *testing.T) {
	p := newPipeline(t)
	_, _, err := p.Load(context.Background(), filepath.Join(t.TempDir(), "missing"), core.DefaultProjectSettings(), LoadOptions{})
	assert.ErrorIs(t, err, scan.ErrFolderNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = p.Load(ctx, writeProject(t), core.DefaultProjectSettings(), LoadOptions{Recursive: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveBack(t *testing.T) {
	dir := writeProject(t)
	p := newPipeline(t)
	proj, _, err := p.Load(context.Background(), dir, core.DefaultProjectSettings(), LoadOptions{Recursive: true})
	require.NoError(t, err)

	proj.Records[1].Institution = "서울대학교"
	proj.Records[1].Dirty = true
	orphan := core.NewRecord(core.NewRecordParams{Title: "no source"})
	proj.AddRecords(orphan)

	stats, err := p.SaveBack(proj, SaveOptions{OnlyDirty: true})
	require.NoError(t, err)
	assert.Equal(t, SaveStats{FilesTouched: 1, RecordsWritten: 2, SkippedNoSource: 1}, stats)
	assert.False(t, proj.Records[1].Dirty)

	bPath := filepath.Join(dir, "sub", "b.ris")
	data, err := os.ReadFile(bPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "IN  - 서울대학교")

	bak, err := os.ReadFile(bPath + ".bak")
	require.NoError(t, err)
	assert.Equal(t, fileB, string(bak))

	_, err = os.Stat(filepath.Join(dir, "a.ris.bak"))
	assert.True(t, os.IsNotExist(err), "clean file is not rewritten")

	reloaded, _, err := p.Load(context.Background(), dir, core.DefaultProjectSettings(), LoadOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, "서울대학교", reloaded.Records[1].Institution)
	assert.Empty(t, reloaded.Records[1].Issues)
}

func TestSaveBack_NoBackup(t *testing.T) {
	dir := writeProject(t)
	settings := core.DefaultProjectSettings()
	settings.BackupOnSave = false
	p := newPipeline(t)
	proj, _, err := p.Load(context.Background(), dir, settings, LoadOptions{Recursive: true})
	require.NoError(t, err)

	stats, err := p.SaveBack(proj, SaveOptions{Encoding: ris.EncodingCP949})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesTouched)

	_, err = os.Stat(filepath.Join(dir, "a.ris.bak"))
	assert.True(t, os.IsNotExist(err))

	_, enc, err := ris.ReadTextGuess(filepath.Join(dir, "sub", "b.ris"))
	require.NoError(t, err)
	assert.Equal(t, ris.EncodingCP949, enc)
}

func TestExport(t *testing.T) {
	dir := writeProject(t)
	p := newPipeline(t)
	proj, _, err := p.Load(context.Background(), dir, core.DefaultProjectSettings(), LoadOptions{Recursive: true})
	require.NoError(t, err)

	out := filepath.Join(dir, "out")
	opts := DefaultExportOptions()
	opts.CSLJSON = true
	stats, err := p.Export(proj, out, opts)
	require.NoError(t, err)

	for _, path := range []string{stats.ReferencesTxt, stats.RecordsXLSX, stats.IssuesXLSX, stats.RecordsJSON} {
		assert.True(t, filepath.IsAbs(path), path)
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	data, err := os.ReadFile(stats.ReferencesTxt)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Kim, Minsoo. (2020). Deep learning. Journal of AI, 12, 1-10. doi:10.1234/abc", lines[0])
}

func TestExport_CSLStyle(t *testing.T) {
	dir := writeProject(t)
	settings := core.DefaultProjectSettings()
	settings.StyleID = "csl:embedded:apa-lite.csl"
	settings.CSLLocale = "en-US"
	p := newPipeline(t)
	proj, _, err := p.Load(context.Background(), dir, settings, LoadOptions{Recursive: true})
	require.NoError(t, err)

	text, err := p.FormatReferences(proj)
	require.NoError(t, err)
	assert.Contains(t, text, "Kim, M. (2020). Deep learning. Journal of AI, 12, 1–10. https://doi.org/10.1234/abc")

	_, err = p.Export(proj, filepath.Join(dir, "out"), ExportOptions{References: true})
	require.NoError(t, err)
}
