package validate

import (
	"github.com/autocitation/autocite/pkg/core"
)

// ValidateRecord validates rec with the default analyzer.
func ValidateRecord(rec *core.Record) []core.Issue {
	return NewAnalyzer(nil).ValidateRecord(rec)
}

// ValidateRecords validates records with the default analyzer.
func ValidateRecords(records []*core.Record) []core.Issue {
	return NewAnalyzer(nil).ValidateRecords(records)
}

// FieldVolumeIssue is the combined field name used when both volume and
// issue are missing.
const FieldVolumeIssue = "volume/issue"

// FilterIssuesForFields keeps the issues whose field is in fields.
// A "volume/issue" issue matches when either volume or issue is listed.
func FilterIssuesForFields(issues []core.Issue, fields map[string]bool) []core.Issue {
	var out []core.Issue
	for _, issue := range issues {
		if issue.Field == FieldVolumeIssue {
			if fields["volume"] || fields["issue"] {
				out = append(out, issue)
			}
			continue
		}
		if fields[issue.Field] {
			out = append(out, issue)
		}
	}
	return out
}

// FilterBySeverity keeps issues at or above min.
func FilterBySeverity(issues []core.Issue, minSeverity core.Severity) []core.Issue {
	var out []core.Issue
	for _, issue := range issues {
		if issue.Severity.AtLeast(minSeverity) {
			out = append(out, issue)
		}
	}
	return out
}
