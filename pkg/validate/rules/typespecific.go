package rules

import (
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/validate"
)

func init() {
	validate.Register(validate.RuleDef{
		ID:          "TY01",
		Name:        "journal-container",
		Group:       validate.GroupType,
		Description: "Journal article has no journal title",
		Severity:    core.SeverityError,
		Check:       checkJournalContainer,
	})
	validate.Register(validate.RuleDef{
		ID:          "TY02",
		Name:        "journal-volume-issue",
		Group:       validate.GroupType,
		Description: "Journal article has neither volume nor issue",
		Severity:    core.SeverityWarn,
		Check:       checkJournalVolumeIssue,
	})
	validate.Register(validate.RuleDef{
		ID:          "TY03",
		Name:        "journal-pages",
		Group:       validate.GroupType,
		Description: "Journal article has no pages",
		Severity:    core.SeverityWarn,
		Check:       checkJournalPages,
	})
	validate.Register(validate.RuleDef{
		ID:          "TY04",
		Name:        "thesis-institution",
		Group:       validate.GroupType,
		Description: "Thesis has no degree-granting institution",
		Severity:    core.SeverityWarn,
		Check:       checkThesisInstitution,
	})
	validate.Register(validate.RuleDef{
		ID:          "TY05",
		Name:        "book-publisher",
		Group:       validate.GroupType,
		Description: "Book or chapter has no publisher",
		Severity:    core.SeverityWarn,
		Check:       checkBookPublisher,
	})
}

func missing(field, msg, code string) []core.Issue {
	return []core.Issue{{Field: field, Message: msg, Code: code}}
}

func checkJournalContainer(rec *core.Record) []core.Issue {
	if rec.Type != core.RecordTypeJournalArticle || rec.ContainerTitle != "" {
		return nil
	}
	return missing("container_title", "Journal title is empty.", core.CodeMissingRequired)
}

func checkJournalVolumeIssue(rec *core.Record) []core.Issue {
	if rec.Type != core.RecordTypeJournalArticle || rec.Volume != "" || rec.Issue != "" {
		return nil
	}
	return missing(validate.FieldVolumeIssue,
		"Volume/issue is missing (adding it greatly improves accuracy).", core.CodeMissingRecommended)
}

func checkJournalPages(rec *core.Record) []core.Issue {
	if rec.Type != core.RecordTypeJournalArticle || rec.Pages != "" {
		return nil
	}
	return missing("pages", "Pages are missing (recommended).", core.CodeMissingRecommended)
}

func checkThesisInstitution(rec *core.Record) []core.Issue {
	if rec.Type != core.RecordTypeThesis || rec.Institution != "" {
		return nil
	}
	return missing("institution", "Degree-granting institution is missing.", core.CodeMissingRecommended)
}

func checkBookPublisher(rec *core.Record) []core.Issue {
	if rec.Type != core.RecordTypeBook && rec.Type != core.RecordTypeBookChapter {
		return nil
	}
	if rec.Publisher != "" {
		return nil
	}
	return missing("publisher", "Publisher is missing.", core.CodeMissingRecommended)
}
