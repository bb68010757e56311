package core

import (
	"encoding/json"
	"fmt"
)

// Sort modes for reference lists.
const (
	SortNone       = "none"
	SortAuthorYear = "author_year"
	SortYearAuthor = "year_author"
	SortTitle      = "title"
)

// SortModes lists every supported sort mode.
var SortModes = []string{SortNone, SortAuthorYear, SortYearAuthor, SortTitle}

// ProjectSettings holds the settings that affect formatting and saving.
type ProjectSettings struct {
	StyleID      string `json:"style_id" koanf:"style"`
	SortMode     string `json:"sort_mode" koanf:"sort"`
	LanguagePref string `json:"language_pref" koanf:"language_pref"`
	// BackupOnSave writes a .bak copy before overwriting a source file.
	BackupOnSave bool   `json:"backup_on_save" koanf:"backup_on_save"`
	CSLLocale    string `json:"csl_locale" koanf:"csl_locale"`
}

// DefaultProjectSettings returns the settings used when nothing is configured.
func DefaultProjectSettings() ProjectSettings {
	return ProjectSettings{
		StyleID:      "kr_default",
		SortMode:     SortAuthorYear,
		LanguagePref: "auto",
		BackupOnSave: true,
		CSLLocale:    "ko-KR",
	}
}

// Project is a loaded folder and its records.
type Project struct {
	Folder   string          `json:"folder"`
	Settings ProjectSettings `json:"settings"`
	Records  []*Record       `json:"records"`
	// Issues holds project-wide findings such as unreadable files.
	Issues []Issue `json:"issues"`
}

// NewProject creates an empty project for folder.
func NewProject(folder string, settings ProjectSettings) *Project {
	return &Project{
		Folder:   folder,
		Settings: settings,
		Records:  []*Record{},
		Issues:   []Issue{},
	}
}

// AddRecords appends records to the project.
func (p *Project) AddRecords(records ...*Record) {
	p.Records = append(p.Records, records...)
}

// GetRecord returns the record with the given id.
func (p *Project) GetRecord(id string) (*Record, bool) {
	for _, r := range p.Records {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// DirtyRecords returns the records with unsaved changes.
func (p *Project) DirtyRecords() []*Record {
	var out []*Record
	for _, r := range p.Records {
		if r.Dirty {
			out = append(out, r)
		}
	}
	return out
}

// AllIssues flattens the issues of every record.
func (p *Project) AllIssues() []Issue {
	var out []Issue
	for _, r := range p.Records {
		out = append(out, r.Issues...)
	}
	return out
}

// IssueCounts tallies record issues across the project.
func (p *Project) IssueCounts() IssueCounts {
	return CountIssues(p.AllIssues())
}

// ToJSON serializes the project with two-space indentation.
func (p *Project) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// ProjectFromJSON restores a project written by ToJSON.
func ProjectFromJSON(data []byte) (*Project, error) {
	p := &Project{Settings: DefaultProjectSettings()}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	if p.Folder == "" {
		return nil, fmt.Errorf("failed to decode project: missing folder")
	}
	for _, r := range p.Records {
		if r.RawFields == nil {
			r.RawFields = RawFields{}
		}
		if r.SourceFormat == "" {
			r.SourceFormat = SourceFormatUnknown
		}
		if r.Type == "" {
			r.Type = RecordTypeOther
		}
	}
	return p, nil
}
