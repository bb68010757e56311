// Package format renders records as a plain-text reference list.
//
// Builtin styles are Go formatters registered by id. A style selector of the
// form "csl:<path>" routes rendering through the CSL processor instead.
package format

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/autocitation/autocite/pkg/core"
)

// ErrUnknownStyle is returned for a builtin style id that is not registered.
var ErrUnknownStyle = errors.New("unknown style")

// Author display policies.
const (
	AuthorModeAll   = "all"
	AuthorModeEtAl3 = "et_al_3"
)

// Options are shared by all builtin styles.
type Options struct {
	// ShowMissingMarkers prints placeholders such as "[연도?]" for missing fields.
	ShowMissingMarkers bool `json:"show_missing_markers"`
	IncludeDOI         bool `json:"include_doi"`
	IncludeURL         bool `json:"include_url"`
	// AuthorMode is AuthorModeAll or AuthorModeEtAl3 (first author plus
	// "외"/"et al." when there are three or more).
	AuthorMode string `json:"author_mode"`
}

// DefaultOptions shows missing markers and DOIs, and lists every author.
func DefaultOptions() Options {
	return Options{
		ShowMissingMarkers: true,
		IncludeDOI:         true,
		AuthorMode:         AuthorModeAll,
	}
}

// Formatter is a builtin reference style.
type Formatter interface {
	ID() string
	DisplayName() string
	FormatOne(rec *core.Record, opts Options) string
	FormatList(records []*core.Record, opts Options) string
}

var (
	formattersMu sync.RWMutex
	formatters   = map[string]Formatter{}
)

// Register adds a builtin formatter. Call this from init().
func Register(f Formatter) {
	formattersMu.Lock()
	defer formattersMu.Unlock()
	formatters[f.ID()] = f
}

// Get returns the builtin formatter with the given id.
func Get(id string) (Formatter, error) {
	formattersMu.RLock()
	defer formattersMu.RUnlock()
	f, ok := formatters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStyle, id)
	}
	return f, nil
}

// BuiltinStyle describes a registered formatter.
type BuiltinStyle struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// List returns the registered formatters sorted by id.
func List() []BuiltinStyle {
	formattersMu.RLock()
	defer formattersMu.RUnlock()

	out := make([]BuiltinStyle, 0, len(formatters))
	for id, f := range formatters {
		out = append(out, BuiltinStyle{ID: id, DisplayName: f.DisplayName()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func formatLines(f Formatter, records []*core.Record, opts Options) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = f.FormatOne(r, opts)
	}
	return strings.Join(lines, "\n")
}
