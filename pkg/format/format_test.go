package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocitation/autocite/pkg/core"
)

func authors(names ...string) []core.PersonName {
	out := make([]core.PersonName, len(names))
	for i, n := range names {
		out[i] = core.PersonName{Literal: n, Role: core.RoleAuthor}
	}
	return out
}

func newRecord(title string, year int, typ core.RecordType, lang string, names ...string) *core.Record {
	r := core.NewRecord(core.NewRecordParams{Title: title, Year: year, Authors: authors(names...), Type: typ})
	r.Language = lang
	return r
}

func TestKRDefault_EastAsian(t *testing.T) {
	r := newRecord("논문 제목", 2020, core.RecordTypeJournalArticle, "ko", "홍길동", "김철수")
	r.ContainerTitle = "한국학회지"
	r.Volume = "12"
	r.Issue = "3"
	r.Pages = "10-20"
	r.DOI = "10.1/x"

	f, err := Get(KRDefaultID)
	require.NoError(t, err)
	assert.Equal(t, "국문 기본", f.DisplayName())
	assert.Equal(t, "홍길동, 김철수. (2020). 논문 제목. 한국학회지, 12(3), 10-20. doi:10.1/x", f.FormatOne(r, DefaultOptions()))

	opts := DefaultOptions()
	opts.IncludeDOI = false
	opts.IncludeURL = true
	r.URL = "https://example.org"
	assert.Equal(t, "홍길동, 김철수. (2020). 논문 제목. 한국학회지, 12(3), 10-20. https://example.org", f.FormatOne(r, opts))
}

func TestKRDefault_MissingMarkers(t *testing.T) {
	r := newRecord("", 0, core.RecordTypeJournalArticle, "")
	f, err := Get(KRDefaultID)
	require.NoError(t, err)
	assert.Equal(t, "[저자?]. ([연도?]). [제목?]. [출처?], [쪽?].", f.FormatOne(r, DefaultOptions()))

	th := newRecord("제목", 2019, core.RecordTypeThesis, "ko", "홍길동")
	th.Institution = "서울대학교"
	assert.Equal(t, "홍길동. (2019). 제목. [학위수여기관/출처?], 서울대학교.", f.FormatOne(th, DefaultOptions()))
}

func TestKRDefault_Western(t *testing.T) {
	r := newRecord("Title", 2021, core.RecordTypeJournalArticle, "en", "Kim, M.", "Lee, J.", "Park, H.")
	r.ContainerTitle = "Journal"
	r.Volume = "5"
	r.DOI = "10.2/y"

	f, err := Get(KRDefaultID)
	require.NoError(t, err)
	assert.Equal(t, "Kim, M., Lee, J., & Park, H. (2021). Title. Journal, 5. https://doi.org/10.2/y", f.FormatOne(r, DefaultOptions()))

	opts := DefaultOptions()
	opts.AuthorMode = AuthorModeEtAl3
	assert.Equal(t, "Kim, M. et al. (2021). Title. Journal, 5. https://doi.org/10.2/y", f.FormatOne(r, opts))

	th := newRecord("T", 2000, core.RecordTypeThesis, "english", "Doe, J.")
	th.Institution = "MIT"
	assert.Equal(t, "Doe, J. (2000). T. [Doctoral dissertation] MIT.", f.FormatOne(th, DefaultOptions()))
}

func TestKRDefault_EtAlEastAsian(t *testing.T) {
	r := newRecord("제목", 2020, core.RecordTypeBook, "", "가", "나", "다")
	r.Publisher = "출판사"
	opts := DefaultOptions()
	opts.AuthorMode = AuthorModeEtAl3

	f, err := Get(KRDefaultID)
	require.NoError(t, err)
	assert.Equal(t, "가 외. (2020). 제목. [도서명/출처?], 출판사.", f.FormatOne(r, opts))
}

func TestSortRecords(t *testing.T) {
	a := newRecord("B title", 2020, core.RecordTypeBook, "", "Kim")
	b := newRecord("A title", 0, core.RecordTypeBook, "", "Kim")
	c := newRecord("C title", 2010, core.RecordTypeBook, "", "Lee")
	in := []*core.Record{a, b, c}

	tests := []struct {
		mode string
		want []*core.Record
	}{
		{core.SortNone, []*core.Record{a, b, c}},
		{core.SortAuthorYear, []*core.Record{a, b, c}},
		{core.SortYearAuthor, []*core.Record{c, a, b}},
		{core.SortTitle, []*core.Record{b, a, c}},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := SortRecords(in, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, []*core.Record{a, b, c}, in, "input is not reordered")

	_, err := SortRecords(in, "random")
	assert.ErrorIs(t, err, ErrUnknownSortMode)
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in, kind, value string
	}{
		{"kr_default", KindBuiltin, "kr_default"},
		{"builtin:kr_default", KindBuiltin, "kr_default"},
		{"csl:/styles/apa.csl", KindCSL, "/styles/apa.csl"},
		{" csl: embedded:apa-lite.csl ", KindCSL, "embedded:apa-lite.csl"},
		{"", KindBuiltin, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			kind, value := ParseSelector(tt.in)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestFormatReferences(t *testing.T) {
	r1 := newRecord("Second", 2021, core.RecordTypeJournalArticle, "ko", "나")
	r1.ContainerTitle = "학회지"
	r1.Pages = "1-2"
	r2 := newRecord("First", 2020, core.RecordTypeJournalArticle, "ko", "가")
	r2.ContainerTitle = "학회지"
	r2.Pages = "3-4"

	out, err := FormatReferences([]*core.Record{r1, r2}, ReferenceOptions{
		SortMode: core.SortAuthorYear,
		Options:  DefaultOptions(),
	})
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "가. (2020)"))

	out, err = FormatReferences([]*core.Record{r1, r2}, ReferenceOptions{Style: "csl:embedded:kci-lite.csl", Locale: "ko-KR"})
	require.NoError(t, err)
	assert.Equal(t, "가. (2020). “First”. 학회지, 3–4.\n나. (2021). “Second”. 학회지, 1–2.", out)

	_, err = FormatReferences(nil, ReferenceOptions{Style: "nope"})
	assert.ErrorIs(t, err, ErrUnknownStyle)

	_, err = FormatReferences(nil, ReferenceOptions{SortMode: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownSortMode)
}

func TestFormatReferences_DefaultSort(t *testing.T) {
	late := newRecord("Later", 2021, core.RecordTypeBook, "ko", "하")
	early := newRecord("Earlier", 2019, core.RecordTypeBook, "ko", "가")

	out, err := FormatReferences([]*core.Record{late, early}, ReferenceOptions{Options: DefaultOptions()})
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "가."), "empty sort mode sorts by author and year: %q", out)

	out, err = FormatReferences([]*core.Record{late, early}, ReferenceOptions{SortMode: core.SortNone, Options: DefaultOptions()})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "하."), "none keeps input order: %q", out)
}

func TestList(t *testing.T) {
	styles := List()
	require.NotEmpty(t, styles)
	assert.Equal(t, BuiltinStyle{ID: KRDefaultID, DisplayName: "국문 기본"}, styles[0])
}
