package core

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
)

// SourceFormat identifies the file format a record was read from.
type SourceFormat string

// Supported source formats. Only RIS is parsed today; the others exist so
// provenance survives a project snapshot written by a newer version.
const (
	SourceFormatRIS     SourceFormat = "ris"
	SourceFormatBibTeX  SourceFormat = "bibtex"
	SourceFormatEndNote SourceFormat = "endnote"
	SourceFormatUnknown SourceFormat = "unknown"
)

// RecordType is the bibliographic kind of a record.
type RecordType string

// Record types.
const (
	RecordTypeJournalArticle  RecordType = "journalArticle"
	RecordTypeThesis          RecordType = "thesis"
	RecordTypeBook            RecordType = "book"
	RecordTypeBookChapter     RecordType = "bookChapter"
	RecordTypeConferencePaper RecordType = "conferencePaper"
	RecordTypeReport          RecordType = "report"
	RecordTypeWebpage         RecordType = "webpage"
	RecordTypeOther           RecordType = "other"
)

// AllRecordTypes lists every record type in declaration order.
var AllRecordTypes = []RecordType{
	RecordTypeJournalArticle,
	RecordTypeThesis,
	RecordTypeBook,
	RecordTypeBookChapter,
	RecordTypeConferencePaper,
	RecordTypeReport,
	RecordTypeWebpage,
	RecordTypeOther,
}

// ParseRecordType converts the exact string value of a record type.
func ParseRecordType(s string) (RecordType, error) {
	for _, t := range AllRecordTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return RecordTypeOther, fmt.Errorf("unknown record type %q", s)
}

// PersonName is one author, editor or other contributor.
// Both the literal and the structured form are kept because real data is messy.
type PersonName struct {
	Literal string `json:"literal"`
	Family  string `json:"family,omitempty"`
	Given   string `json:"given,omitempty"`
	Role    string `json:"role"`
	Lang    string `json:"lang,omitempty"`
}

// Person roles.
const (
	RoleAuthor     = "author"
	RoleEditor     = "editor"
	RoleTranslator = "translator"
	RoleAdvisor    = "advisor"
	RoleOther      = "other"
)

// Display returns the name for output: the literal when present,
// otherwise "family given".
func (p PersonName) Display() string {
	if lit := strings.TrimSpace(p.Literal); lit != "" {
		return lit
	}
	var parts []string
	for _, s := range []string{p.Family, p.Given} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// RawFields stores every tag of the source record losslessly.
// A tag that appears more than once keeps all its values in order.
type RawFields map[string][]string

// Add appends a value for tag.
func (r RawFields) Add(tag, value string) {
	r[tag] = append(r[tag], value)
}

// Clone returns a deep copy.
func (r RawFields) Clone() RawFields {
	out := make(RawFields, len(r))
	for k, v := range r {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Record is a neutral, app-level bibliographic record.
//
// Zero values mean "absent": an empty string field was not provided and a
// zero Year, Month or Day is unknown.
type Record struct {
	ID string `json:"id"`

	// Provenance
	SourceFile        string       `json:"source_file,omitempty"`
	SourceFormat      SourceFormat `json:"source_format"`
	SourceRecordIndex int          `json:"source_record_index"`

	Type RecordType `json:"type"`

	Title    string `json:"title,omitempty"`
	TitleAlt string `json:"title_alt,omitempty"`
	Year     int    `json:"year,omitempty"`
	Month    int    `json:"month,omitempty"`
	Day      int    `json:"day,omitempty"`

	Authors []PersonName `json:"authors"`

	ContainerTitle    string `json:"container_title,omitempty"`
	ContainerTitleAlt string `json:"container_title_alt,omitempty"`

	Volume      string `json:"volume,omitempty"`
	Issue       string `json:"issue,omitempty"`
	Pages       string `json:"pages,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Institution string `json:"institution,omitempty"`
	Language    string `json:"language,omitempty"`

	DOI string `json:"doi,omitempty"`
	URL string `json:"url,omitempty"`

	RawFields RawFields `json:"raw_fields"`

	Dirty  bool    `json:"dirty"`
	Issues []Issue `json:"issues"`
}

// NewRecordParams carries the fields that determine a record's identity.
type NewRecordParams struct {
	Title             string
	Year              int
	Authors           []PersonName
	ContainerTitle    string
	SourceFile        string
	SourceFormat      SourceFormat
	SourceRecordIndex int
	Type              RecordType
	RawFields         RawFields
}

// NewRecord builds a record and computes its stable id.
func NewRecord(p NewRecordParams) *Record {
	var firstAuthor string
	if len(p.Authors) > 0 {
		firstAuthor = p.Authors[0].Display()
	}
	raw := p.RawFields
	if raw == nil {
		raw = RawFields{}
	}
	format := p.SourceFormat
	if format == "" {
		format = SourceFormatUnknown
	}
	typ := p.Type
	if typ == "" {
		typ = RecordTypeOther
	}
	return &Record{
		ID:                MakeRecordID(p.Title, p.Year, firstAuthor, p.ContainerTitle),
		Title:             p.Title,
		Year:              p.Year,
		Authors:           p.Authors,
		ContainerTitle:    p.ContainerTitle,
		SourceFile:        p.SourceFile,
		SourceFormat:      format,
		SourceRecordIndex: p.SourceRecordIndex,
		Type:              typ,
		RawFields:         raw,
	}
}

// FirstAuthorDisplay returns the display name of the first author, or "".
func (r *Record) FirstAuthorDisplay() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0].Display()
}

// AuthorsString joins the non-blank author display names with "; ".
func (r *Record) AuthorsString() string {
	names := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		if d := a.Display(); strings.TrimSpace(d) != "" {
			names = append(names, d)
		}
	}
	return strings.Join(names, "; ")
}

// IssueCounts tallies the record's issues.
func (r *Record) IssueCounts() IssueCounts {
	return CountIssues(r.Issues)
}

// YearString renders the year or "" when unknown.
func (r *Record) YearString() string {
	if r.Year == 0 {
		return ""
	}
	return strconv.Itoa(r.Year)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Authors = append([]PersonName(nil), r.Authors...)
	c.RawFields = r.RawFields.Clone()
	c.Issues = make([]Issue, len(r.Issues))
	for i, it := range r.Issues {
		it.Suggestions = append([]string(nil), it.Suggestions...)
		c.Issues[i] = it
	}
	return &c
}

// MakeRecordID derives a stable id from the identifying fields.
//
// The id is stable across runs, independent of file paths, and tolerant of
// whitespace, case and punctuation noise.
func MakeRecordID(title string, year int, firstAuthor, container string) string {
	yearStr := ""
	if year != 0 {
		yearStr = strconv.Itoa(year)
	}
	key := strings.Join([]string{
		NormKey(title),
		yearStr,
		NormKey(firstAuthor),
		NormKey(container),
	}, "|")

	h, err := blake2b.New(16, nil)
	if err != nil {
		// blake2b only fails for sizes outside 1..64 or oversized keys.
		panic(err)
	}
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// NormKey lowercases s, collapses whitespace and drops every rune that is
// not an ASCII letter, an ASCII digit or a Hangul syllable. It is the
// matching key used for record ids and sorting.
func NormKey(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isKeyRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isKeyRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '가' && r <= '힣':
		return true
	}
	return false
}

// ContainsDigit reports whether s contains any Unicode decimal digit.
func ContainsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
