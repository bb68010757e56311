// Package corrections implements the spreadsheet round trip for fixing
// records: Generate writes a corrections.csv template with one row per
// record field, the user fills in new_value, and Apply writes the edits back
// onto the loaded records.
package corrections

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/autocitation/autocite/pkg/core"
)

// ErrCorrectionsNotFound is returned by Apply when the CSV does not exist.
var ErrCorrectionsNotFound = errors.New("corrections file not found")

// Header lists the CSV columns in order.
var Header = []string{"record_id", "source_file", "field", "current_value", "new_value", "note", "title_hint"}

// EditableFields are the record fields Apply can change.
var EditableFields = []string{
	"type",
	"title",
	"title_alt",
	"year",
	"authors",
	"container_title",
	"container_title_alt",
	"volume",
	"issue",
	"pages",
	"doi",
	"url",
	"publisher",
	"institution",
}

// candidateFields are emitted by Generate. coreFields always appear, the
// rest only when an issue names them or every field is requested.
var (
	candidateFields = []string{
		"type", "title", "authors", "year", "container_title", "volume", "issue",
		"pages", "doi", "url", "publisher", "institution",
	}
	coreFields = map[string]bool{
		"type": true, "title": true, "authors": true, "year": true, "container_title": true,
	}
)

const rowNote = "Enter a value in new_value to change this field. Leave it blank to keep the current value."

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// GenerateOptions controls which records and fields Generate emits.
type GenerateOptions struct {
	// IncludeAllRecords emits every record and every candidate field.
	IncludeAllRecords bool
	// OnlyErrorWarn selects only records with an error or warn issue.
	// Ignored with IncludeAllRecords.
	OnlyErrorWarn bool
}

// DefaultGenerateOptions selects records with error or warn issues.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{OnlyErrorWarn: true}
}

// Generate writes a corrections template for records to path and returns
// the number of rows written. Parent directories are created.
func Generate(records []*core.Record, path string, opts GenerateOptions) (int, error) {
	var buf bytes.Buffer
	n, err := WriteTemplate(&buf, records, opts)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // output dir is user-facing
		return 0, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // corrections file is meant to be opened in a spreadsheet
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, nil
}

// WriteTemplate writes the template CSV, with a UTF-8 BOM so spreadsheet
// programs detect the encoding.
func WriteTemplate(w io.Writer, records []*core.Record, opts GenerateOptions) (int, error) {
	if _, err := w.Write(utf8BOM); err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}

	rows := 0
	for _, r := range selectRecords(records, opts) {
		issueFields := make(map[string]bool, len(r.Issues))
		for _, it := range r.Issues {
			issueFields[it.Field] = true
		}

		for _, f := range candidateFields {
			if !opts.IncludeAllRecords && !coreFields[f] && !issueFields[f] {
				continue
			}
			row := []string{r.ID, r.SourceFile, f, FieldValue(r, f), "", rowNote, r.Title}
			if err := cw.Write(row); err != nil {
				return rows, err
			}
			rows++
		}
	}

	cw.Flush()
	return rows, cw.Error()
}

func selectRecords(records []*core.Record, opts GenerateOptions) []*core.Record {
	var out []*core.Record
	for _, r := range records {
		switch {
		case opts.IncludeAllRecords:
			out = append(out, r)
		case len(r.Issues) == 0:
		case opts.OnlyErrorWarn:
			c := r.IssueCounts()
			if c.Errors+c.Warns > 0 {
				out = append(out, r)
			}
		default:
			out = append(out, r)
		}
	}
	return out
}

// Result summarizes an Apply run.
type Result struct {
	RowsRead int      `json:"rows_read"`
	Changes  int      `json:"changes"`
	Errors   []string `json:"errors"`
}

// Apply reads corrections from path and applies them to records.
// Row-level problems are collected in Result.Errors and do not stop the run.
func Apply(records []*core.Record, path string) (Result, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied corrections file
	if os.IsNotExist(err) {
		return Result{}, fmt.Errorf("%w: %s", ErrCorrectionsNotFound, path)
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ApplyReader(records, f)
}

// ApplyReader applies corrections read from r.
func ApplyReader(records []*core.Record, r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read corrections: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read corrections header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	byID := make(map[string]*core.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	editable := make(map[string]bool, len(EditableFields))
	for _, f := range EditableFields {
		editable[f] = true
	}

	var res Result
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		res.RowsRead++
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return res, fmt.Errorf("failed to read corrections row %d: %w", res.RowsRead, err)
			}
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", res.RowsRead, perr.Err))
			continue
		}

		id := get(row, "record_id")
		field := get(row, "field")
		newValue := get(row, "new_value")

		rec, ok := byID[id]
		if id == "" || !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: record_id not found: %s", res.RowsRead, id))
			continue
		}
		if !editable[field] {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: unsupported field: %s", res.RowsRead, field))
			continue
		}
		if newValue == "" {
			continue
		}

		if SetFieldValue(rec, field, newValue) {
			rec.Dirty = true
			res.Changes++
		}
	}
	return res, nil
}

// FieldValue returns the current value of an editable field as text.
func FieldValue(r *core.Record, field string) string {
	switch field {
	case "type":
		return string(r.Type)
	case "authors":
		return r.AuthorsString()
	case "year":
		return r.YearString()
	}
	if p := stringField(r, field); p != nil {
		return *p
	}
	return ""
}

// SetFieldValue sets field from text and reports whether the record changed.
// Values that do not parse (a non-numeric year, an unknown type) are ignored.
func SetFieldValue(r *core.Record, field, value string) bool {
	value = strings.TrimSpace(value)

	switch field {
	case "authors":
		if value == "" {
			if len(r.Authors) == 0 {
				return false
			}
			r.Authors = nil
			return true
		}
		if r.AuthorsString() == value {
			return false
		}
		var authors []core.PersonName
		for _, p := range strings.Split(value, ";") {
			if p = strings.TrimSpace(p); p != "" {
				authors = append(authors, core.PersonName{Literal: p, Role: core.RoleAuthor})
			}
		}
		r.Authors = authors
		return true

	case "year":
		if value == "" {
			if r.Year == 0 {
				return false
			}
			r.Year = 0
			return true
		}
		y, err := strconv.Atoi(value)
		if err != nil || r.Year == y {
			return false
		}
		r.Year = y
		return true

	case "type":
		rt, err := core.ParseRecordType(value)
		if err != nil || r.Type == rt {
			return false
		}
		r.Type = rt
		return true
	}

	p := stringField(r, field)
	if p == nil || strings.TrimSpace(*p) == value {
		return false
	}
	*p = value
	return true
}

func stringField(r *core.Record, field string) *string {
	switch field {
	case "title":
		return &r.Title
	case "title_alt":
		return &r.TitleAlt
	case "container_title":
		return &r.ContainerTitle
	case "container_title_alt":
		return &r.ContainerTitleAlt
	case "volume":
		return &r.Volume
	case "issue":
		return &r.Issue
	case "pages":
		return &r.Pages
	case "doi":
		return &r.DOI
	case "url":
		return &r.URL
	case "publisher":
		return &r.Publisher
	case "institution":
		return &r.Institution
	}
	return nil
}
