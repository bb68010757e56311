package ris

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/autocitation/autocite/pkg/core"
)

var pageRangeRe = regexp.MustCompile(`^\s*(\d+)\s*[-–]\s*(\d+)\s*$`)

// canonicalTags are written from the record's fields. They are dropped from
// the raw fields on output so edited values are not shadowed by stale ones.
var canonicalTags = map[string]bool{
	"TY": true, "TI": true, "T1": true, "AU": true, "A1": true,
	"PY": true, "Y1": true, "DA": true, "JO": true, "JF": true, "T2": true,
	"VL": true, "IS": true, "SP": true, "EP": true, "PB": true, "IN": true,
	"LA": true, "DO": true, "UR": true, "ER": true,
}

func formatLine(tag, value string) string {
	return tag + "  - " + value
}

// RecordToLines converts one record to RIS lines, TY first and ER last.
//
// Canonical fields are written from the record; any remaining raw tags are
// appended in tag order so unknown data survives a round trip.
func RecordToLines(rec *core.Record) []string {
	lines := []string{formatLine("TY", TYFromRecordType(rec.Type))}
	add := func(tag, value string) {
		if value != "" {
			lines = append(lines, formatLine(tag, value))
		}
	}

	add("TI", rec.Title)
	add("T1", rec.TitleAlt)
	for _, a := range rec.Authors {
		add("AU", a.Display())
	}
	if rec.Year != 0 {
		add("PY", strconv.Itoa(rec.Year))
	}
	add("JO", rec.ContainerTitle)
	add("VL", rec.Volume)
	add("IS", rec.Issue)
	if rec.Pages != "" {
		if m := pageRangeRe.FindStringSubmatch(rec.Pages); m != nil {
			add("SP", m[1])
			add("EP", m[2])
		} else {
			add("SP", rec.Pages)
		}
	}
	add("PB", rec.Publisher)
	add("IN", rec.Institution)
	add("LA", rec.Language)
	add("DO", rec.DOI)
	add("UR", rec.URL)

	tags := make([]string, 0, len(rec.RawFields))
	for tag := range rec.RawFields {
		if !canonicalTags[tag] {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	for _, tag := range tags {
		for _, v := range rec.RawFields[tag] {
			add(tag, strings.TrimSpace(v))
		}
	}

	lines = append(lines, formatLine("ER", ""))
	return lines
}

// Render renders records as RIS text with a blank line between records and
// a single trailing newline.
func Render(records []*core.Record) string {
	var out []string
	for _, rec := range records {
		out = append(out, RecordToLines(rec)...)
		out = append(out, "")
	}
	return strings.TrimRight(strings.Join(out, "\n"), " \t\r\n") + "\n"
}

// Encode writes records to w in the given encoding.
func Encode(w io.Writer, records []*core.Record, encoding string) error {
	data, err := encodeText(Render(records), encoding)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteOptions controls WriteFile.
type WriteOptions struct {
	// Backup copies an existing file to <path>.bak before overwriting it.
	Backup bool
	// Encoding is the output encoding; empty means UTF-8.
	Encoding string
}

// WriteFile writes records to path, replacing its contents.
func WriteFile(path string, records []*core.Record, opts WriteOptions) error {
	data, err := encodeText(Render(records), opts.Encoding)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if opts.Backup {
		if err := backupFile(path); err != nil {
			return err
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // bibliography files are user documents
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// backupFile copies path to path+".bak", keeping the modification time.
// A missing source is not an error.
func backupFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s for backup: %w", path, err)
	}
	bak := path + ".bak"
	if err := os.WriteFile(bak, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", bak, err)
	}
	if err := os.Chtimes(bak, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to preserve backup time %s: %w", bak, err)
	}
	return nil
}
