package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
)

var (
	doiFullRe = regexp.MustCompile(`(?i)^10\.\d{4,9}/[-._;()/:a-z0-9]+$`)
	pagesOKRe = regexp.MustCompile(`^\d+(-\d+)?$`)
)

func init() {
	validate.Register(validate.RuleDef{
		ID:          "FM01",
		Name:        "doi-format",
		Group:       validate.GroupFormat,
		Description: "DOI does not look like 10.NNNN/suffix",
		Severity:    core.SeverityWarn,
		Check:       checkDOI,
	})
	validate.Register(validate.RuleDef{
		ID:          "FM02",
		Name:        "url-scheme",
		Group:       validate.GroupFormat,
		Description: "URL does not start with http:// or https://",
		Severity:    core.SeverityWarn,
		Check:       checkURL,
	})
	validate.Register(validate.RuleDef{
		ID:          "FM03",
		Name:        "pages-format",
		Group:       validate.GroupFormat,
		Description: "Pages are not a number or a numeric range",
		Severity:    core.SeverityWarn,
		Check:       checkPages,
	})
}

func checkDOI(rec *core.Record) []core.Issue {
	if rec.DOI == "" || doiFullRe.MatchString(strings.TrimSpace(rec.DOI)) {
		return nil
	}
	return []core.Issue{{
		Field:   "doi",
		Message: fmt.Sprintf("DOI format is ambiguous: %s", rec.DOI),
		Code:    core.CodeBadFormat,
	}}
}

func checkURL(rec *core.Record) []core.Issue {
	if rec.URL == "" || strings.HasPrefix(rec.URL, "http://") || strings.HasPrefix(rec.URL, "https://") {
		return nil
	}
	return []core.Issue{{
		Field:   "url",
		Message: fmt.Sprintf("URL does not start with http(s): %s", rec.URL),
		Code:    core.CodeBadFormat,
	}}
}

func checkPages(rec *core.Record) []core.Issue {
	if rec.Pages == "" {
		return nil
	}
	p := strings.NewReplacer("–", "-", "—", "-", " ", "").Replace(strings.TrimSpace(rec.Pages))
	if pagesOKRe.MatchString(p) {
		return nil
	}
	return []core.Issue{{
		Field:   "pages",
		Message: fmt.Sprintf("Page format is ambiguous: %s", rec.Pages),
		Code:    core.CodeBadFormat,
	}}
}
