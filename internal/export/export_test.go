package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/autocitation/autocite/pkg/core"
)

func sampleRecords() []*core.Record {
	r1 := core.NewRecord(core.NewRecordParams{
		Title:      "제목",
		Year:       2020,
		Authors:    []core.PersonName{{Literal: "홍길동"}, {Literal: "김철수"}},
		SourceFile: "/refs/a.ris",
		Type:       core.RecordTypeJournalArticle,
	})
	r1.DOI = "10.1/x"
	r1.Dirty = true
	r1.Issues = []core.Issue{{
		Severity:    core.SeverityWarn,
		Field:       "pages",
		Message:     "Missing pages",
		RecordID:    r1.ID,
		Suggestions: []string{"add SP", "add EP"},
	}}

	r2 := core.NewRecord(core.NewRecordParams{
		Title:             strings.Repeat("long title ", 20),
		SourceFile:        "/refs/b.ris",
		SourceRecordIndex: 3,
	})
	return []*core.Record{r1, r2}
}

func TestWriteReferencesText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", ReferencesFile)
	require.NoError(t, WriteReferencesText("a\nb\n\n  ", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}

func TestWriteRecordsXLSX(t *testing.T) {
	recs := sampleRecords()
	path := filepath.Join(t.TempDir(), "nested", RecordsFile)
	require.NoError(t, WriteRecordsXLSX(recs, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetRecords}, f.GetSheetList())

	rows, err := f.GetRows(SheetRecords)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, recordHeaders, rows[0])
	assert.Equal(t, recs[0].ID, rows[1][0])
	assert.Equal(t, "journalArticle", rows[1][1])
	assert.Equal(t, "2020", rows[1][3])
	assert.Equal(t, "홍길동; 김철수", rows[1][4])
	assert.Equal(t, "Y", rows[1][15])
	assert.Equal(t, "3", rows[2][14])

	w, err := f.GetColWidth(SheetRecords, "C")
	require.NoError(t, err)
	assert.InDelta(t, float64(maxColWidth), w, 0.01, "long titles are capped")

	w, err = f.GetColWidth(SheetRecords, "P")
	require.NoError(t, err)
	assert.InDelta(t, float64(minColWidth), w, 0.01, "short columns get the minimum")

	panes, err := f.GetPanes(SheetRecords)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, "A2", panes.TopLeftCell)
}

func TestWriteRecordsXLSX_NumericCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), RecordsFile)
	require.NoError(t, WriteRecordsXLSX(sampleRecords(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	textTypes := []excelize.CellType{excelize.CellTypeSharedString, excelize.CellTypeInlineString}
	for _, cell := range []string{"D2", "O2", "O3"} {
		typ, err := f.GetCellType(SheetRecords, cell)
		require.NoError(t, err)
		assert.NotContains(t, textTypes, typ, "%s is stored as a number", cell)
	}
	typ, err := f.GetCellType(SheetRecords, "A2")
	require.NoError(t, err)
	assert.Contains(t, textTypes, typ, "record ids stay text")

	v, err := f.GetCellValue(SheetRecords, "D2")
	require.NoError(t, err)
	assert.Equal(t, "2020", v)
	v, err = f.GetCellValue(SheetRecords, "D3")
	require.NoError(t, err)
	assert.Empty(t, v, "unknown year is left blank")
}

func TestWriteIssuesXLSX(t *testing.T) {
	recs := sampleRecords()
	global := []core.Issue{{Severity: core.SeverityError, Field: "file", Message: "broken.ris", Code: core.CodeFileParseError}}
	path := filepath.Join(t.TempDir(), IssuesFile)
	require.NoError(t, WriteIssuesXLSX(recs, global, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetRecordIssues, SheetGlobalIssues}, f.GetSheetList())

	rows, err := f.GetRows(SheetRecordIssues)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"warn", recs[0].ID, "pages", "Missing pages", "add SP; add EP", "/refs/a.ris", "제목"}, rows[1])

	rows, err = f.GetRows(SheetGlobalIssues)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"error", "file", "broken.ris", "file_parse_error"}, rows[1])
}

func TestWriteCSLJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), CSLJSONFile)
	require.NoError(t, WriteCSLJSON(sampleRecords(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "article-journal", items[0]["type"])
	assert.Equal(t, "10.1/x", items[0]["DOI"])
	assert.Equal(t, "article", items[1]["type"])
}

func TestClampWidth(t *testing.T) {
	assert.Equal(t, 10, clampWidth(0))
	assert.Equal(t, 22, clampWidth(20))
	assert.Equal(t, 70, clampWidth(200))
}
