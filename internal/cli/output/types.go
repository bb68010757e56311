package output

import "github.com/autocitation/autocite/pkg/core"

// RecordInfo is the JSON shape of one record in listings.
type RecordInfo struct {
	ID          string           `json:"id"`
	Type        core.RecordType  `json:"type"`
	Title       string           `json:"title"`
	Year        int              `json:"year,omitempty"`
	Authors     []string         `json:"authors"`
	Container   string           `json:"container_title,omitempty"`
	SourceFile  string           `json:"source_file,omitempty"`
	SourceIndex int              `json:"source_index"`
	Dirty       bool             `json:"dirty"`
	Issues      core.IssueCounts `json:"issues"`
}

// NewRecordInfo summarizes rec.
func NewRecordInfo(rec *core.Record) RecordInfo {
	authors := make([]string, 0, len(rec.Authors))
	for _, a := range rec.Authors {
		if d := a.Display(); d != "" {
			authors = append(authors, d)
		}
	}
	return RecordInfo{
		ID:          rec.ID,
		Type:        rec.Type,
		Title:       rec.Title,
		Year:        rec.Year,
		Authors:     authors,
		Container:   rec.ContainerTitle,
		SourceFile:  rec.SourceFile,
		SourceIndex: rec.SourceRecordIndex,
		Dirty:       rec.Dirty,
		Issues:      rec.IssueCounts(),
	}
}

// ListOutput is the JSON output of the list command.
type ListOutput struct {
	Folder  string           `json:"folder"`
	Records []RecordInfo     `json:"records"`
	Total   int              `json:"total"`
	Issues  core.IssueCounts `json:"issues"`
}

// CheckOutput is the JSON output of the check command.
type CheckOutput struct {
	Folder      string           `json:"folder"`
	MinSeverity core.Severity    `json:"min_severity"`
	Issues      []core.Issue     `json:"issues"`
	Global      []core.Issue     `json:"global_issues"`
	Counts      core.IssueCounts `json:"counts"`
	Passed      bool             `json:"passed"`
}
