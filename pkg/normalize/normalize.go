// Package normalize cleans up parsed records in place.
//
// Normalization is conservative: it trims noise such as stray whitespace,
// quote marks and URL punctuation, and canonicalizes DOIs and page ranges.
// It never guesses at structure it cannot see, so Korean names are not split.
package normalize

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/autocitation/autocite/pkg/core"
)

var (
	spaceRe      = regexp.MustCompile(`\s+`)
	pagesRangeRe = regexp.MustCompile(`^\s*(\d+)\s*[-–—]\s*(\d+)\s*$`)
	pagesPrefix  = regexp.MustCompile(`(?i)^(pp\.?|p\.)`)
	doiPrefixRe  = regexp.MustCompile(`(?i)^doi\s*:\s*`)
	doiURLRe     = regexp.MustCompile(`(?i)^https?://(dx\.)?doi\.org/`)
	doiRe        = regexp.MustCompile(`(?i)(10\.\d{4,9}/[-._;()/:A-Z0-9]+)`)
	commaRe      = regexp.MustCompile(`\s*,\s*`)
)

// CleanSpaces replaces NBSP with a space, trims, and collapses whitespace runs.
func CleanSpaces(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Title cleans s and strips surrounding quote marks.
func Title(s string) string {
	return strings.Trim(CleanSpaces(s), " '\"“”‘’")
}

// Container cleans a journal or book title.
func Container(s string) string {
	return CleanSpaces(s)
}

// Pages unifies dashes, removes spaces and strips "pp." style prefixes.
func Pages(s string) string {
	s = CleanSpaces(s)
	if s == "" {
		return ""
	}
	s = strings.NewReplacer("–", "-", "—", "-", " ", "").Replace(s)
	if m := pagesRangeRe.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2]
	}
	return strings.TrimSpace(pagesPrefix.ReplaceAllString(s, ""))
}

// URL cleans s and drops trailing punctuation picked up from prose.
func URL(s string) string {
	return strings.TrimRight(CleanSpaces(s), ").,;")
}

// DOI strips "doi:" and resolver prefixes and lowercases the bare DOI.
// Input with no recognizable DOI is only lowercased.
func DOI(s string) string {
	s = CleanSpaces(s)
	if s == "" {
		return ""
	}
	s = doiPrefixRe.ReplaceAllString(s, "")
	s = doiURLRe.ReplaceAllString(s, "")
	if m := doiRe.FindStringSubmatch(s); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	return strings.ToLower(s)
}

// AuthorLiteral cleans a name and normalizes spacing around commas.
func AuthorLiteral(s string) string {
	s = commaRe.ReplaceAllString(CleanSpaces(s), ", ")
	return CleanSpaces(s)
}

// SplitFamilyGiven splits "Family, Given". Names without a comma are left alone.
func SplitFamilyGiven(lit string) (family, given string, ok bool) {
	f, g, found := strings.Cut(lit, ",")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(f), strings.TrimSpace(g), true
}

// Authors normalizes literals, drops empty names and removes duplicates
// (case-insensitive on the literal).
func Authors(authors []core.PersonName) []core.PersonName {
	out := make([]core.PersonName, 0, len(authors))
	seen := make(map[string]bool, len(authors))

	for _, a := range authors {
		lit := AuthorLiteral(a.Literal)
		if lit == "" {
			continue
		}
		key := strings.ToLower(lit)
		if seen[key] {
			continue
		}
		seen[key] = true

		family, given := a.Family, a.Given
		if family == "" && given == "" {
			family, given, _ = SplitFamilyGiven(lit)
		}
		out = append(out, core.PersonName{
			Literal: lit,
			Family:  family,
			Given:   given,
			Role:    a.Role,
			Lang:    a.Lang,
		})
	}
	return out
}

// Record normalizes rec in place and reports whether anything changed.
// With markDirty a changed record is flagged for save-back.
func Record(rec *core.Record, markDirty bool) bool {
	before := rec.Clone()

	rec.Title = Title(rec.Title)
	rec.TitleAlt = Title(rec.TitleAlt)
	rec.ContainerTitle = Container(rec.ContainerTitle)
	rec.ContainerTitleAlt = Container(rec.ContainerTitleAlt)
	rec.Pages = Pages(rec.Pages)
	rec.URL = URL(rec.URL)
	rec.DOI = DOI(rec.DOI)
	rec.Publisher = CleanSpaces(rec.Publisher)
	rec.Institution = CleanSpaces(rec.Institution)
	rec.Volume = CleanSpaces(rec.Volume)
	rec.Issue = CleanSpaces(rec.Issue)
	rec.Authors = Authors(rec.Authors)

	for tag, vals := range rec.RawFields {
		for i, v := range vals {
			vals[i] = CleanSpaces(v)
		}
		rec.RawFields[tag] = vals
	}

	changed := !sameContent(before, rec)
	if markDirty && changed {
		rec.Dirty = true
	}
	return changed
}

// Records normalizes every record.
func Records(records []*core.Record, markDirty bool) {
	for _, r := range records {
		Record(r, markDirty)
	}
}

// sameContent compares the normalized fields, ignoring derived state.
func sameContent(a, b *core.Record) bool {
	a, b = a.Clone(), b.Clone()
	a.Issues, b.Issues = nil, nil
	a.Dirty, b.Dirty = false, false
	if len(a.Authors) == 0 {
		a.Authors = nil
	}
	if len(b.Authors) == 0 {
		b.Authors = nil
	}
	return reflect.DeepEqual(a, b)
}
