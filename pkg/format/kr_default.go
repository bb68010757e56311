package format

import (
	"strconv"
	"strings"

	"github.com/autocitation/autocite/pkg/core"
)

// KRDefaultID is the id of the default Korean style.
const KRDefaultID = "kr_default"

func init() {
	Register(krDefault{})
}

// eastAsian language codes. An empty language also uses the East Asian layout.
var eastAsian = map[string]bool{
	"ko": true, "zh": true, "ja": true,
	"ko-kr": true, "zh-cn": true, "zh-tw": true, "zh-hk": true, "ja-jp": true,
}

// krDefault is the Korean default style. Records in Korean, Chinese or
// Japanese (or with no language) use the domestic layout
//
//	저자. (연도). 제목. 출처, 권(호), 쪽. doi:xxx
//
// and everything else an APA-like layout
//
//	Author, A., & Author, B. (Year). Title. Container, vol(issue), pages. https://doi.org/xxx
type krDefault struct{}

func (krDefault) ID() string          { return KRDefaultID }
func (krDefault) DisplayName() string { return "국문 기본" }

func (f krDefault) FormatOne(rec *core.Record, opts Options) string {
	if isWestern(rec.Language) {
		return formatWestern(rec, opts)
	}
	return formatEastAsian(rec, opts)
}

func (f krDefault) FormatList(records []*core.Record, opts Options) string {
	return formatLines(f, records, opts)
}

func isWestern(language string) bool {
	if language == "" {
		return false
	}
	return !eastAsian[strings.ToLower(strings.TrimSpace(language))]
}

func clean(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}

func missing(label string, opts Options) string {
	if !opts.ShowMissingMarkers {
		return ""
	}
	return "[" + label + "?]"
}

func joinNonEmpty(parts []string, sep string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func authorNames(rec *core.Record) []string {
	var names []string
	for _, a := range rec.Authors {
		if d := strings.TrimSpace(a.Display()); d != "" {
			names = append(names, d)
		}
	}
	return names
}

func formatYear(rec *core.Record, opts Options) string {
	if rec.Year == 0 {
		return missing("연도", opts)
	}
	return strconv.Itoa(rec.Year)
}

func formatTitle(rec *core.Record, opts Options) string {
	if t := strings.TrimSpace(rec.Title); t != "" {
		return t
	}
	return missing("제목", opts)
}

func formatVolIssue(rec *core.Record) string {
	v, i := clean(rec.Volume), clean(rec.Issue)
	switch {
	case v != "" && i != "":
		return v + "(" + i + ")"
	case v != "":
		return v
	case i != "":
		return "(" + i + ")"
	}
	return ""
}

// assemble joins "head tail." and the trailing link text.
func assemble(head string, tail []string, extra []string) string {
	out := head
	if t := joinNonEmpty(tail, ", "); t != "" {
		out += " " + t + "."
	}
	if e := strings.Join(extra, " "); e != "" {
		out += " " + e
	}
	return clean(out)
}

// --- East Asian layout ---

func eaAuthors(rec *core.Record, opts Options) string {
	names := authorNames(rec)
	if len(names) == 0 {
		return missing("저자", opts)
	}
	if opts.AuthorMode == AuthorModeEtAl3 && len(names) >= 3 {
		return names[0] + " 외"
	}
	return strings.Join(names, ", ")
}

func eaContainer(rec *core.Record, opts Options) string {
	if c := strings.TrimSpace(rec.ContainerTitle); c != "" {
		return c
	}
	switch rec.Type {
	case core.RecordTypeThesis:
		return missing("학위수여기관/출처", opts)
	case core.RecordTypeBook, core.RecordTypeBookChapter:
		return missing("도서명/출처", opts)
	case core.RecordTypeReport:
		return missing("기관/출처", opts)
	}
	return missing("출처", opts)
}

func eaPages(rec *core.Record, opts Options) string {
	if p := clean(rec.Pages); p != "" {
		return p
	}
	if rec.Type == core.RecordTypeJournalArticle {
		return missing("쪽", opts)
	}
	return ""
}

func formatEastAsian(rec *core.Record, opts Options) string {
	head := eaAuthors(rec, opts) + ". (" + formatYear(rec, opts) + "). " + formatTitle(rec, opts) + "."

	container := eaContainer(rec, opts)
	pages := eaPages(rec, opts)

	var tail []string
	switch rec.Type {
	case core.RecordTypeThesis, core.RecordTypeReport:
		tail = []string{container, clean(rec.Institution), clean(rec.Publisher)}
	case core.RecordTypeBook, core.RecordTypeBookChapter:
		tail = []string{container, clean(rec.Publisher)}
		if rec.Type == core.RecordTypeBookChapter && rec.Pages != "" {
			tail = append(tail, pages)
		}
	default:
		tail = []string{container, formatVolIssue(rec), pages}
	}

	var extra []string
	if opts.IncludeDOI && rec.DOI != "" {
		extra = append(extra, "doi:"+rec.DOI)
	}
	if opts.IncludeURL && rec.URL != "" {
		extra = append(extra, rec.URL)
	}
	return assemble(head, tail, extra)
}

// --- Western (APA-like) layout ---

func westAuthors(rec *core.Record, opts Options) string {
	names := authorNames(rec)
	switch {
	case len(names) == 0:
		return missing("Author", opts)
	case opts.AuthorMode == AuthorModeEtAl3 && len(names) >= 3:
		return names[0] + " et al."
	case len(names) == 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", & " + names[len(names)-1]
}

func formatWestern(rec *core.Record, opts Options) string {
	head := westAuthors(rec, opts) + " (" + formatYear(rec, opts) + "). " + formatTitle(rec, opts) + "."

	var tail []string
	switch rec.Type {
	case core.RecordTypeThesis:
		const genre = "[Doctoral dissertation]"
		switch {
		case rec.Institution != "":
			tail = append(tail, genre+" "+clean(rec.Institution))
		case rec.Publisher != "":
			tail = append(tail, genre+" "+clean(rec.Publisher))
		default:
			tail = append(tail, genre)
		}
	case core.RecordTypeBook, core.RecordTypeBookChapter:
		if rec.Type == core.RecordTypeBookChapter && rec.ContainerTitle != "" {
			tail = append(tail, "In "+strings.TrimSpace(rec.ContainerTitle))
			if rec.Pages != "" {
				tail = append(tail, "(pp. "+clean(rec.Pages)+")")
			}
		}
		tail = append(tail, clean(rec.Publisher))
	case core.RecordTypeReport:
		if rec.Institution != "" {
			tail = append(tail, clean(rec.Institution))
		} else {
			tail = append(tail, clean(rec.Publisher))
		}
	default:
		tail = []string{strings.TrimSpace(rec.ContainerTitle), formatVolIssue(rec), clean(rec.Pages)}
	}

	var extra []string
	if opts.IncludeDOI && rec.DOI != "" {
		extra = append(extra, "https://doi.org/"+rec.DOI)
	}
	if opts.IncludeURL && rec.URL != "" {
		extra = append(extra, rec.URL)
	}
	return assemble(head, tail, extra)
}
