package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
	_ "github.com/autocitation/autocite/pkg/validate/rules" // register rules
)

func ruleIDs(issues []core.Issue) []string {
	ids := make([]string, len(issues))
	for i, is := range issues {
		ids[i] = is.RuleID
	}
	return ids
}

func journal(mod func(r *core.Record)) *core.Record {
	r := core.NewRecord(core.NewRecordParams{
		Title:          "A study",
		Year:           2020,
		Authors:        []core.PersonName{{Literal: "Kim, Minsoo", Role: core.RoleAuthor}},
		ContainerTitle: "Journal of Things",
		Type:           core.RecordTypeJournalArticle,
	})
	r.Volume = "3"
	r.Pages = "1-10"
	if mod != nil {
		mod(r)
	}
	return r
}

func TestAllRulesRegistered(t *testing.T) {
	assert.Equal(t, 14, validate.Count())
	for _, id := range []string{"RQ01", "RQ04", "TY05", "FM03", "SU02"} {
		_, ok := validate.GetByID(id)
		assert.True(t, ok, id)
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  *core.Record
		want []string
	}{
		{"clean journal", journal(nil), nil},
		{"missing title", journal(func(r *core.Record) { r.Title = "" }), []string{"RQ01"}},
		{"blank authors", journal(func(r *core.Record) { r.Authors = []core.PersonName{{Literal: " "}} }), []string{"RQ02"}},
		{"no year", journal(func(r *core.Record) { r.Year = 0 }), []string{"RQ03"}},
		{"old year", journal(func(r *core.Record) { r.Year = 1850 }), []string{"RQ04"}},
		{"no container", journal(func(r *core.Record) { r.ContainerTitle = "" }), []string{"TY01"}},
		{"no volume or issue", journal(func(r *core.Record) { r.Volume = "" }), []string{"TY02"}},
		{"issue only", journal(func(r *core.Record) { r.Volume, r.Issue = "", "2" }), nil},
		{"no pages", journal(func(r *core.Record) { r.Pages = "" }), []string{"TY03"}},
		{"thesis", journal(func(r *core.Record) { r.Type = core.RecordTypeThesis }), []string{"TY04"}},
		{"chapter", journal(func(r *core.Record) { r.Type = core.RecordTypeBookChapter }), []string{"TY05"}},
		{"bad doi", journal(func(r *core.Record) { r.DOI = "doi.org/abc" }), []string{"FM01"}},
		{"good doi", journal(func(r *core.Record) { r.DOI = "10.1234/ABC(1)" }), nil},
		{"bad url", journal(func(r *core.Record) { r.URL = "www.example.com" }), []string{"FM02"}},
		{"en dash pages", journal(func(r *core.Record) { r.Pages = "10 – 20" }), nil},
		{"bad pages", journal(func(r *core.Record) { r.Pages = "e12" }), []string{"FM03"}},
		{"digit author", journal(func(r *core.Record) {
			r.Authors = []core.PersonName{{Literal: "Kim1"}, {Literal: "Lee2"}}
		}), []string{"SU01"}},
		{"institution container", journal(func(r *core.Record) { r.ContainerTitle = "서울대학교 논문집" }), []string{"SU02"}},
		{"multiple", journal(func(r *core.Record) { r.Title, r.URL, r.Year = "", "ftp://x", 0 }), []string{"RQ01", "RQ03", "FM02"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := validate.ValidateRecord(tt.rec)
			if tt.want == nil {
				assert.Empty(t, issues)
				return
			}
			assert.Equal(t, tt.want, ruleIDs(issues))
		})
	}
}

func TestIssueFields(t *testing.T) {
	r := journal(func(r *core.Record) { r.ContainerTitle = "한국학회지" })
	issues := validate.ValidateRecord(r)
	require.Len(t, issues, 1)

	is := issues[0]
	assert.Equal(t, core.SeverityInfo, is.Severity)
	assert.Equal(t, "container_title", is.Field)
	assert.Equal(t, core.CodeSuspicious, is.Code)
	assert.Equal(t, r.ID, is.RecordID)
	assert.Contains(t, is.Message, "한국학회지")
}

func TestValidateRecords_Flattens(t *testing.T) {
	a := journal(func(r *core.Record) { r.Title = "" })
	b := journal(func(r *core.Record) { r.Year = 3000 })

	issues := validate.ValidateRecords([]*core.Record{a, b})
	assert.Equal(t, []string{"RQ01", "RQ04"}, ruleIDs(issues))
	assert.Equal(t, core.SeverityError, issues[1].Severity)
}
