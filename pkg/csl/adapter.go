package csl

import (
	"strings"

	"github.com/autocitation/autocite/pkg/core"
)

// Name is a CSL-JSON name object. Structured names carry Family/Given,
// everything else Literal.
type Name struct {
	Family  string `json:"family,omitempty"`
	Given   string `json:"given,omitempty"`
	Literal string `json:"literal,omitempty"`
}

// Date is a CSL-JSON date: {"date-parts": [[year, month?, day?]]}.
type Date struct {
	DateParts [][]int `json:"date-parts"`
}

func (d *Date) part(i int) int {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) <= i {
		return 0
	}
	return d.DateParts[0][i]
}

// Year returns the year or 0.
func (d *Date) Year() int { return d.part(0) }

// Month returns the month (1-12) or 0.
func (d *Date) Month() int { return d.part(1) }

// Day returns the day or 0.
func (d *Date) Day() int { return d.part(2) }

// Item is a CSL-JSON bibliography item.
type Item struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Title          string `json:"title,omitempty"`
	Author         []Name `json:"author,omitempty"`
	Issued         *Date  `json:"issued,omitempty"`
	ContainerTitle string `json:"container-title,omitempty"`
	Volume         string `json:"volume,omitempty"`
	Issue          string `json:"issue,omitempty"`
	Page           string `json:"page,omitempty"`
	DOI            string `json:"DOI,omitempty"`
	URL            string `json:"URL,omitempty"`
	Publisher      string `json:"publisher,omitempty"`
	Institution    string `json:"institution,omitempty"`
	Language       string `json:"language,omitempty"`
}

var recordTypeToCSL = map[core.RecordType]string{
	core.RecordTypeJournalArticle:  "article-journal",
	core.RecordTypeBook:            "book",
	core.RecordTypeBookChapter:     "chapter",
	core.RecordTypeConferencePaper: "paper-conference",
	core.RecordTypeThesis:          "thesis",
	core.RecordTypeReport:          "report",
	core.RecordTypeWebpage:         "webpage",
	core.RecordTypeOther:           "article",
}

// TypeFor returns the CSL item type for a record type.
func TypeFor(rt core.RecordType) string {
	if t, ok := recordTypeToCSL[rt]; ok {
		return t
	}
	return "article"
}

// RecordToItem converts a record to a CSL-JSON item.
// Institution doubles as publisher when no publisher is set, since many
// styles print the publisher for theses and reports.
func RecordToItem(rec *core.Record) Item {
	item := Item{
		ID:             rec.ID,
		Type:           TypeFor(rec.Type),
		Title:          strings.TrimSpace(rec.Title),
		Author:         names(rec.Authors),
		Issued:         issued(rec),
		ContainerTitle: strings.TrimSpace(rec.ContainerTitle),
		Volume:         strings.TrimSpace(rec.Volume),
		Issue:          strings.TrimSpace(rec.Issue),
		Page:           strings.TrimSpace(rec.Pages),
		DOI:            strings.TrimSpace(rec.DOI),
		URL:            strings.TrimSpace(rec.URL),
		Publisher:      strings.TrimSpace(rec.Publisher),
		Institution:    strings.TrimSpace(rec.Institution),
		Language:       strings.TrimSpace(rec.Language),
	}
	if item.Publisher == "" {
		item.Publisher = item.Institution
	}
	return item
}

// RecordsToItems converts records in order.
func RecordsToItems(records []*core.Record) []Item {
	out := make([]Item, len(records))
	for i, r := range records {
		out[i] = RecordToItem(r)
	}
	return out
}

func names(people []core.PersonName) []Name {
	var out []Name
	for _, p := range people {
		family, given := strings.TrimSpace(p.Family), strings.TrimSpace(p.Given)
		switch {
		case family != "" || given != "":
			out = append(out, Name{Family: family, Given: given})
		case strings.TrimSpace(p.Literal) != "":
			out = append(out, Name{Literal: strings.TrimSpace(p.Literal)})
		}
	}
	return out
}

// issued builds the date parts. Month is kept only when valid, and day only
// when a valid month is present.
func issued(rec *core.Record) *Date {
	if rec.Year == 0 {
		return nil
	}
	parts := []int{rec.Year}
	if rec.Month >= 1 && rec.Month <= 12 {
		parts = append(parts, rec.Month)
		if rec.Day >= 1 && rec.Day <= 31 {
			parts = append(parts, rec.Day)
		}
	}
	return &Date{DateParts: [][]int{parts}}
}

// ordinary (string) variables, keyed by CSL variable name.
func (it *Item) variable(name string) string {
	switch name {
	case "id":
		return it.ID
	case "type":
		return it.Type
	case "title":
		return it.Title
	case "container-title":
		return it.ContainerTitle
	case "volume":
		return it.Volume
	case "issue":
		return it.Issue
	case "page":
		return it.Page
	case "page-first":
		first, _, _ := strings.Cut(strings.ReplaceAll(it.Page, "–", "-"), "-")
		return strings.TrimSpace(first)
	case "DOI":
		return it.DOI
	case "URL":
		return it.URL
	case "publisher":
		return it.Publisher
	case "institution", "authority":
		return it.Institution
	case "language":
		return it.Language
	}
	return ""
}

func (it *Item) names(variable string) []Name {
	if variable == "author" {
		return it.Author
	}
	return nil
}

func (it *Item) date(variable string) *Date {
	if variable == "issued" {
		return it.Issued
	}
	return nil
}

// has reports whether the variable of any kind is set.
func (it *Item) has(variable string) bool {
	if len(it.names(variable)) > 0 {
		return true
	}
	if it.date(variable) != nil {
		return true
	}
	return it.variable(variable) != ""
}
