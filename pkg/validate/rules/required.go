package rules

import (
	"fmt"
	"strings"

	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
)

// Plausible publication years.
const (
	yearMin = 1900
	yearMax = 2099
)

func init() {
	validate.Register(validate.RuleDef{
		ID:          "RQ01",
		Name:        "title-required",
		Group:       validate.GroupRequired,
		Description: "Record has no title",
		Severity:    core.SeverityError,
		Check:       checkTitle,
	})
	validate.Register(validate.RuleDef{
		ID:          "RQ02",
		Name:        "authors-required",
		Group:       validate.GroupRequired,
		Description: "Record has no named author",
		Severity:    core.SeverityError,
		Check:       checkAuthors,
	})
	validate.Register(validate.RuleDef{
		ID:          "RQ03",
		Name:        "year-recommended",
		Group:       validate.GroupRequired,
		Description: "Record has no publication year",
		Severity:    core.SeverityWarn,
		Check:       checkYearPresent,
	})
	validate.Register(validate.RuleDef{
		ID:          "RQ04",
		Name:        "year-range",
		Group:       validate.GroupRequired,
		Description: "Publication year outside 1900-2099",
		Severity:    core.SeverityError,
		Check:       checkYearRange,
	})
}

func checkTitle(rec *core.Record) []core.Issue {
	if rec.Title != "" {
		return nil
	}
	return []core.Issue{{
		Field:   "title",
		Message: "Title is empty.",
		Code:    core.CodeMissingRequired,
	}}
}

func checkAuthors(rec *core.Record) []core.Issue {
	for _, a := range rec.Authors {
		if strings.TrimSpace(a.Display()) != "" {
			return nil
		}
	}
	return []core.Issue{{
		Field:   "authors",
		Message: "Author information is empty.",
		Code:    core.CodeMissingRequired,
	}}
}

func checkYearPresent(rec *core.Record) []core.Issue {
	if rec.Year != 0 {
		return nil
	}
	return []core.Issue{{
		Field:   "year",
		Message: "Publication year is missing (recommended).",
		Code:    core.CodeMissingRecommended,
	}}
}

func checkYearRange(rec *core.Record) []core.Issue {
	if rec.Year == 0 || (rec.Year >= yearMin && rec.Year <= yearMax) {
		return nil
	}
	return []core.Issue{{
		Field:   "year",
		Message: fmt.Sprintf("Publication year is out of range: %d", rec.Year),
		Code:    core.CodeBadValue,
	}}
}
