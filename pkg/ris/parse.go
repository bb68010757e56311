// Package ris reads and writes RIS bibliography files.
//
// Parsing is lossless: every tag of a record is kept in Record.RawFields so
// that writing a record back preserves tags the application does not model.
package ris

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/autocitation/autocite/pkg/core"
)

var (
	// "TY  - JOUR": two-character tag, two spaces, dash.
	lineRe = regexp.MustCompile(`^([A-Z0-9]{2})\s{2}-\s?(.*)$`)
	// Continuation lines are indented by six spaces.
	continuationRe = regexp.MustCompile(`^\s{6}(.*)$`)
	yearRe         = regexp.MustCompile(`(19\d{2}|20\d{2})`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

var tyToRecordType = map[string]core.RecordType{
	"JOUR":   core.RecordTypeJournalArticle,
	"JFULL":  core.RecordTypeJournalArticle,
	"THES":   core.RecordTypeThesis,
	"DISS":   core.RecordTypeThesis,
	"BOOK":   core.RecordTypeBook,
	"CHAP":   core.RecordTypeBookChapter,
	"CPAPER": core.RecordTypeConferencePaper,
	"CONF":   core.RecordTypeConferencePaper,
	"RPRT":   core.RecordTypeReport,
	"WEB":    core.RecordTypeWebpage,
}

var recordTypeToTY = map[core.RecordType]string{
	core.RecordTypeJournalArticle:  "JOUR",
	core.RecordTypeThesis:          "THES",
	core.RecordTypeBook:            "BOOK",
	core.RecordTypeBookChapter:     "CHAP",
	core.RecordTypeConferencePaper: "CPAPER",
	core.RecordTypeReport:          "RPRT",
	core.RecordTypeWebpage:         "WEB",
	core.RecordTypeOther:           "GEN",
}

// RecordTypeFromTY maps an RIS TY value to a record type.
func RecordTypeFromTY(ty string) core.RecordType {
	if rt, ok := tyToRecordType[strings.ToUpper(ty)]; ok {
		return rt
	}
	return core.RecordTypeOther
}

// TYFromRecordType maps a record type to its RIS TY value.
func TYFromRecordType(rt core.RecordType) string {
	if ty, ok := recordTypeToTY[rt]; ok {
		return ty
	}
	return "GEN"
}

var languageAliases = map[string]string{
	"korean": "ko", "kor": "ko", "ko": "ko", "한국어": "ko",
	"english": "en", "eng": "en", "en": "en",
	"chinese": "zh", "chi": "zh", "zho": "zh", "zh": "zh",
	"japanese": "ja", "jpn": "ja", "ja": "ja",
}

// ParseFile reads and parses an RIS file.
// It returns the records and the encoding that was used to decode the file.
func ParseFile(path string) ([]*core.Record, string, error) {
	text, enc, err := ReadTextGuess(path)
	if err != nil {
		return nil, "", err
	}
	return ParseText(text, path), enc, nil
}

// ParseText parses RIS text into records. sourceFile is recorded as
// provenance on every record and may be empty.
func ParseText(text, sourceFile string) []*core.Record {
	raws := splitRecords(text)

	records := make([]*core.Record, 0, len(raws))
	for idx, raw := range raws {
		records = append(records, buildRecord(raw, sourceFile, idx))
	}
	return records
}

// splitRecords groups the tag lines of text into raw records.
func splitRecords(text string) []core.RawFields {
	var (
		out      []core.RawFields
		cur      core.RawFields
		inRecord bool
		lastTag  string
	)

	for _, line := range splitLines(text) {
		if m := lineRe.FindStringSubmatch(line); m != nil {
			tag, value := m[1], strings.TrimRight(m[2], " \t\r\n\v\f")

			if tag == "TY" {
				if inRecord && len(cur) > 0 {
					out = append(out, cur)
				}
				cur = core.RawFields{}
				inRecord = true
				lastTag = "TY"
				cur.Add("TY", value)
				continue
			}

			// Garbage before the first TY is ignored.
			if !inRecord {
				continue
			}

			cur.Add(tag, value)
			lastTag = tag

			if tag == "ER" {
				out = append(out, cur)
				cur = nil
				inRecord = false
				lastTag = ""
			}
			continue
		}

		if m := continuationRe.FindStringSubmatch(line); m != nil && inRecord && lastTag != "" {
			extra := strings.TrimRight(m[1], " \t")
			vals := cur[lastTag]
			if len(vals) == 0 {
				cur.Add(lastTag, extra)
			} else {
				vals[len(vals)-1] = strings.TrimSpace(vals[len(vals)-1] + " " + extra)
			}
		}
	}

	// File ended mid-record without ER.
	if inRecord && len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func buildRecord(raw core.RawFields, sourceFile string, idx int) *core.Record {
	ty := first(raw, "TY")
	if ty == "" {
		ty = "GEN"
	}

	rec := core.NewRecord(core.NewRecordParams{
		Title:             first(raw, "TI", "T1"),
		Year:              parseYear(raw),
		Authors:           parseAuthors(raw),
		ContainerTitle:    first(raw, "JO", "JF", "T2", "BT", "B1"),
		SourceFile:        sourceFile,
		SourceFormat:      core.SourceFormatRIS,
		SourceRecordIndex: idx,
		Type:              RecordTypeFromTY(ty),
		RawFields:         raw.Clone(),
	})

	// T2 is sometimes the container; it is kept as the alternate title as well.
	rec.TitleAlt = first(raw, "T2")
	rec.Volume = first(raw, "VL")
	rec.Issue = first(raw, "IS")
	rec.Pages = parsePages(raw)
	rec.DOI = first(raw, "DO")
	rec.URL = first(raw, "UR")
	rec.Publisher = first(raw, "PB")
	// IN is not standard RIS but several exporters use it.
	rec.Institution = first(raw, "IN")
	rec.Language = parseLanguage(raw)
	return rec
}

// clean replaces NBSP, trims and collapses whitespace.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// first returns the first non-empty cleaned value among tags, in tag order.
func first(raw core.RawFields, tags ...string) string {
	for _, t := range tags {
		for _, v := range raw[t] {
			if c := clean(v); c != "" {
				return c
			}
		}
	}
	return ""
}

// all returns every non-blank value of tag.
func all(raw core.RawFields, tag string) []string {
	var out []string
	for _, v := range raw[tag] {
		if clean(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseYear reads the first 19xx/20xx year from PY, Y1 or DA.
func parseYear(raw core.RawFields) int {
	for _, tag := range []string{"PY", "Y1", "DA"} {
		v := first(raw, tag)
		if v == "" {
			continue
		}
		if m := yearRe.FindString(v); m != "" {
			if y, err := strconv.Atoi(m); err == nil {
				return y
			}
		}
	}
	return 0
}

func parseLanguage(raw core.RawFields) string {
	v := first(raw, "LA")
	if v == "" {
		return ""
	}
	key := strings.ToLower(strings.TrimSpace(v))
	if code, ok := languageAliases[key]; ok {
		return code
	}
	if r := []rune(key); len(r) > 10 {
		return string(r[:10])
	}
	return key
}

func parsePages(raw core.RawFields) string {
	sp := first(raw, "SP")
	ep := first(raw, "EP")
	switch {
	case sp != "" && ep != "":
		return sp + "-" + ep
	case sp != "":
		return sp
	default:
		return ep
	}
}

// parseAuthors reads AU then A1 as authors.
func parseAuthors(raw core.RawFields) []core.PersonName {
	names := append(all(raw, "AU"), all(raw, "A1")...)
	out := make([]core.PersonName, 0, len(names))
	for _, n := range names {
		if n = clean(n); n == "" {
			continue
		}
		out = append(out, core.PersonName{Literal: n, Role: core.RoleAuthor})
	}
	return out
}
