package corrections

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocitation/autocite/pkg/core"
)

func sampleRecords() []*core.Record {
	withIssue := core.NewRecord(core.NewRecordParams{
		Title:      "Needs fixing",
		Year:       2019,
		Authors:    []core.PersonName{{Literal: "홍길동", Role: core.RoleAuthor}},
		SourceFile: "/refs/a.ris",
		Type:       core.RecordTypeJournalArticle,
	})
	withIssue.Issues = []core.Issue{
		{Severity: core.SeverityWarn, Field: "pages"},
		{Severity: core.SeverityWarn, Field: "volume/issue"},
	}

	infoOnly := core.NewRecord(core.NewRecordParams{Title: "Info only", Type: core.RecordTypeJournalArticle})
	infoOnly.Issues = []core.Issue{{Severity: core.SeverityInfo, Field: "container_title"}}

	clean := core.NewRecord(core.NewRecordParams{Title: "Clean"})
	return []*core.Record{withIssue, infoOnly, clean}
}

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "file starts with a BOM")
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteTemplate_Selection(t *testing.T) {
	recs := sampleRecords()

	tests := []struct {
		name     string
		opts     GenerateOptions
		wantRows int
	}{
		// 5 core fields + pages; "volume/issue" matches no single field
		{"error and warn only", DefaultGenerateOptions(), 6},
		{"any issue", GenerateOptions{}, 6 + 5},
		{"all records", GenerateOptions{IncludeAllRecords: true}, 3 * 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := WriteTemplate(&buf, recs, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, n)

			rows := readRows(t, buf.Bytes())
			assert.Equal(t, Header, rows[0])
			assert.Len(t, rows, tt.wantRows+1)
		})
	}
}

func TestWriteTemplate_RowContent(t *testing.T) {
	recs := sampleRecords()[:1]
	var buf bytes.Buffer
	_, err := WriteTemplate(&buf, recs, DefaultGenerateOptions())
	require.NoError(t, err)

	rows := readRows(t, buf.Bytes())
	fields := make([]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		fields = append(fields, r[2])
	}
	assert.Equal(t, []string{"type", "title", "authors", "year", "container_title", "pages"}, fields)

	year := rows[4]
	assert.Equal(t, recs[0].ID, year[0])
	assert.Equal(t, "/refs/a.ris", year[1])
	assert.Equal(t, "2019", year[3])
	assert.Equal(t, "", year[4])
	assert.Equal(t, "Needs fixing", year[6])
}

func TestGenerate_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "corrections.csv")
	_, err := Generate(sampleRecords(), path, DefaultGenerateOptions())
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func writeCSV(t *testing.T, rows ...[]string) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(Header))
	require.NoError(t, w.WriteAll(rows))

	path := filepath.Join(t.TempDir(), "corrections.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func row(id, field, newValue string) []string {
	return []string{id, "", field, "", newValue, "", ""}
}

func TestApply(t *testing.T) {
	recs := sampleRecords()
	id := recs[0].ID

	path := writeCSV(t,
		row(id, "title", "Fixed title"),
		row(id, "authors", "Kim, A; ; Lee, B"),
		row(id, "year", "20x1"),
		row(id, "type", "thesis"),
		row(id, "pages", ""),
		row(id, "volume", "12"),
		row("missing", "title", "x"),
		row(id, "source_file", "/elsewhere"),
	)

	res, err := Apply(recs, path)
	require.NoError(t, err)

	assert.Equal(t, 8, res.RowsRead)
	assert.Equal(t, 4, res.Changes)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "Row 7: record_id not found: missing", res.Errors[0])
	assert.Equal(t, "Row 8: unsupported field: source_file", res.Errors[1])

	r := recs[0]
	assert.True(t, r.Dirty)
	assert.Equal(t, "Fixed title", r.Title)
	assert.Equal(t, "Kim, A; Lee, B", r.AuthorsString())
	assert.Equal(t, 2019, r.Year, "non-numeric year is ignored")
	assert.Equal(t, core.RecordTypeThesis, r.Type)
	assert.Equal(t, "12", r.Volume)
	assert.False(t, recs[1].Dirty)
}

func TestApply_NoChangeWhenEqual(t *testing.T) {
	recs := sampleRecords()
	path := writeCSV(t,
		row(recs[0].ID, "title", "Needs fixing"),
		row(recs[0].ID, "type", "JournalArticle"),
	)

	res, err := Apply(recs, path)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Changes)
	assert.False(t, recs[0].Dirty)
}

func TestApply_MissingFile(t *testing.T) {
	_, err := Apply(nil, filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, ErrCorrectionsNotFound)
}

func TestGenerateThenApply(t *testing.T) {
	recs := sampleRecords()
	var buf bytes.Buffer
	_, err := WriteTemplate(&buf, recs, DefaultGenerateOptions())
	require.NoError(t, err)

	edited := strings.Replace(buf.String(), "pages,,,", "pages,,99-101,", 1)
	res, err := ApplyReader(recs, strings.NewReader(edited))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changes)
	assert.Equal(t, "99-101", recs[0].Pages)
}

func TestApplyReader_BareQuotes(t *testing.T) {
	recs := sampleRecords()
	id := recs[0].ID

	csvText := strings.Join(Header, ",") + "\n" +
		id + ",,volume,,12,,\n" +
		id + `,,title,,The "Good" Paper,,` + "\n" +
		id + `,,publisher,,"Kim "Press" Ltd",,` + "\n"

	res, err := ApplyReader(recs, strings.NewReader(csvText))
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsRead)
	assert.Equal(t, 3, res.Changes)
	assert.Empty(t, res.Errors)

	assert.Equal(t, "12", recs[0].Volume)
	assert.Equal(t, `The "Good" Paper`, recs[0].Title)
	assert.Equal(t, `Kim "Press" Ltd`, recs[0].Publisher)
}
