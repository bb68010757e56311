package export

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/autocitation/autocite/pkg/core"
)

// Column width bounds, in characters.
const (
	minColWidth = 10
	maxColWidth = 70
)

// Sheet names.
const (
	SheetRecords      = "records"
	SheetRecordIssues = "record_issues"
	SheetGlobalIssues = "global_issues"
)

var recordHeaders = []string{
	"record_id", "type", "title", "year", "authors", "container_title",
	"volume", "issue", "pages", "doi", "url", "publisher", "institution",
	"source_file", "source_index", "dirty",
}

var recordIssueHeaders = []string{"severity", "record_id", "field", "message", "suggestions", "source_file", "title"}

var globalIssueHeaders = []string{"severity", "field", "message", "code"}

// sheet collects rows before they are written so column widths can be
// computed from the content. Cells are strings or ints; ints are stored as
// numbers.
type sheet struct {
	name string
	rows [][]any
}

func textRow(cells ...string) []any {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// WriteRecordsXLSX writes one row per record to the "records" sheet.
func WriteRecordsXLSX(records []*core.Record, path string) error {
	s := &sheet{name: SheetRecords, rows: [][]any{textRow(recordHeaders...)}}
	for _, r := range records {
		dirty := ""
		if r.Dirty {
			dirty = "Y"
		}
		var year any = ""
		if r.Year > 0 {
			year = r.Year
		}
		s.rows = append(s.rows, []any{
			r.ID,
			string(r.Type),
			r.Title,
			year,
			r.AuthorsString(),
			r.ContainerTitle,
			r.Volume,
			r.Issue,
			r.Pages,
			r.DOI,
			r.URL,
			r.Publisher,
			r.Institution,
			r.SourceFile,
			r.SourceRecordIndex,
			dirty,
		})
	}
	return writeWorkbook(path, s)
}

// WriteIssuesXLSX writes record issues and project-wide issues to two sheets.
func WriteIssuesXLSX(records []*core.Record, global []core.Issue, path string) error {
	byID := make(map[string]*core.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	recSheet := &sheet{name: SheetRecordIssues, rows: [][]any{textRow(recordIssueHeaders...)}}
	for _, r := range records {
		for _, it := range r.Issues {
			id := it.RecordID
			if id == "" {
				id = r.ID
			}
			ctx := r
			if other, ok := byID[id]; ok {
				ctx = other
			}
			recSheet.rows = append(recSheet.rows, textRow(
				string(it.Severity),
				id,
				it.Field,
				it.Message,
				strings.Join(it.Suggestions, "; "),
				ctx.SourceFile,
				ctx.Title,
			))
		}
	}

	globalSheet := &sheet{name: SheetGlobalIssues, rows: [][]any{textRow(globalIssueHeaders...)}}
	for _, it := range global {
		globalSheet.rows = append(globalSheet.rows, textRow(string(it.Severity), it.Field, it.Message, it.Code))
	}
	return writeWorkbook(path, recSheet, globalSheet)
}

func writeWorkbook(path string, sheets ...*sheet) (err error) {
	if err := ensureParent(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F2F2F2"}},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	body, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create cell style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", s.name, err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, header, body); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", s.name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, s *sheet, headerStyle, bodyStyle int) error {
	ncols := len(s.rows[0])
	widths := make([]int, ncols)

	for r, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		for c, v := range row {
			if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[c] {
				widths[c] = n
			}
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}

	last, err := excelize.CoordinatesToCellName(ncols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return err
	}
	if len(s.rows) > 1 {
		end, err := excelize.CoordinatesToCellName(ncols, len(s.rows))
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(s.name, "A2", end, bodyStyle); err != nil {
			return err
		}
	}

	for c, w := range widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, col, col, float64(clampWidth(w))); err != nil {
			return err
		}
	}

	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// clampWidth is the content length plus padding, bounded to a readable range.
func clampWidth(maxLen int) int {
	return max(minColWidth, min(maxLen+2, maxColWidth))
}
