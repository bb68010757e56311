package rules

import (
	"fmt"
	"strings"

	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
)

// institutionMarkers suggest an organization name rather than a journal:
// university, academic society, research institute.
var institutionMarkers = []string{"대학교", "학회", "연구소"}

func init() {
	validate.Register(validate.RuleDef{
		ID:          "SU01",
		Name:        "author-digits",
		Group:       validate.GroupSuspicious,
		Description: "Author name contains digits, likely a parse error",
		Severity:    core.SeverityWarn,
		Check:       checkAuthorDigits,
	})
	validate.Register(validate.RuleDef{
		ID:          "SU02",
		Name:        "container-institution",
		Group:       validate.GroupSuspicious,
		Description: "Journal title looks like an institution name",
		Severity:    core.SeverityInfo,
		Check:       checkContainerInstitution,
	})
}

// checkAuthorDigits reports the first author name containing a digit.
func checkAuthorDigits(rec *core.Record) []core.Issue {
	for _, a := range rec.Authors {
		if lit := a.Display(); core.ContainsDigit(lit) {
			return []core.Issue{{
				Field:   "authors",
				Message: fmt.Sprintf("Author name contains digits (possible parse error): %s", lit),
				Code:    core.CodeSuspicious,
			}}
		}
	}
	return nil
}

func checkContainerInstitution(rec *core.Record) []core.Issue {
	if rec.Type != core.RecordTypeJournalArticle || rec.ContainerTitle == "" {
		return nil
	}
	for _, m := range institutionMarkers {
		if strings.Contains(rec.ContainerTitle, m) {
			return []core.Issue{{
				Field:   "container_title",
				Message: fmt.Sprintf("Journal title looks like an institution (fields may be swapped): %s", rec.ContainerTitle),
				Code:    core.CodeSuspicious,
			}}
		}
	}
	return nil
}
