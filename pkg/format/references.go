package format

import (
	"strings"

	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/csl"
)

// Selector kinds.
const (
	KindBuiltin = "builtin"
	KindCSL     = "csl"
)

// ParseSelector splits a style selector into its kind and value.
// "builtin:<id>" and a bare id select a builtin formatter, "csl:<path>" a
// CSL style file.
func ParseSelector(selector string) (kind, value string) {
	selector = strings.TrimSpace(selector)
	if v, ok := strings.CutPrefix(selector, KindCSL+":"); ok {
		return KindCSL, strings.TrimSpace(v)
	}
	if v, ok := strings.CutPrefix(selector, KindBuiltin+":"); ok {
		return KindBuiltin, strings.TrimSpace(v)
	}
	return KindBuiltin, selector
}

// ReferenceOptions configures FormatReferences.
type ReferenceOptions struct {
	// Style is a selector; empty means KRDefaultID.
	Style string
	// SortMode is applied before formatting; empty means author_year. CSL
	// styles with their own <sort> re-sort the result.
	SortMode string
	Options  Options
	// Locale is the CSL locale tag; empty uses the style default.
	Locale string
}

// FormatReferences renders records as a reference list, one entry per line.
func FormatReferences(records []*core.Record, opts ReferenceOptions) (string, error) {
	mode := opts.SortMode
	if mode == "" {
		mode = core.SortAuthorYear
	}
	sorted, err := SortRecords(records, mode)
	if err != nil {
		return "", err
	}

	kind, value := ParseSelector(opts.Style)
	if kind == KindCSL {
		return csl.RenderBibliography(value, csl.RecordsToItems(sorted), opts.Locale)
	}

	if value == "" {
		value = KRDefaultID
	}
	f, err := Get(value)
	if err != nil {
		return "", err
	}
	return f.FormatList(sorted, opts.Options), nil
}
