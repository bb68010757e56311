// Package rules registers the record validation rules.
//
// Import this package for its side effect:
//
//   - RQ01..RQ04: title, authors and year
//   - TY01..TY05: per-type requirements (journal, thesis, book)
//   - FM01..FM03: DOI, URL and page formats
//   - SU01..SU02: parse-error and swapped-field hints
package rules
