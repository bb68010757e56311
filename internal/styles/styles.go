// Package styles discovers the reference styles available to the user:
// builtin formatters and CSL style files.
package styles

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/autocitation/autocite/pkg/csl"
	"github.com/autocitation/autocite/pkg/format"
)

// Style kinds.
const (
	KindBuiltin = format.KindBuiltin
	KindCSL     = format.KindCSL
)

// StyleRef identifies one selectable style.
type StyleRef struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// Selector returns the value accepted by format.ParseSelector.
func (s StyleRef) Selector() string {
	if s.Kind == KindBuiltin {
		return KindBuiltin + ":" + s.Key
	}
	if s.Path != "" {
		return KindCSL + ":" + s.Path
	}
	return KindCSL + ":" + s.Key
}

// ReadTitle returns the <info><title> of a CSL style, or the file stem when
// the file cannot be read or has no title.
func ReadTitle(stylePath string) string {
	fallback := strings.TrimSuffix(filepath.Base(strings.TrimPrefix(stylePath, csl.EmbeddedPrefix)), ".csl")

	data, err := csl.ReadStyleFile(stylePath)
	if err != nil {
		return fallback
	}
	info, err := csl.ReadInfo(bytes.NewReader(data))
	if err != nil || info.Title == "" {
		return fallback
	}
	return info.Title
}

var (
	varsMu    sync.Mutex
	varsCache = map[string]map[string]bool{}
)

// CSLVariablesUsed returns the variable names referenced by a CSL style.
// Results are cached per path; unreadable styles give an empty set.
func CSLVariablesUsed(stylePath string) map[string]bool {
	key := stylePath
	if !csl.IsEmbedded(stylePath) {
		if abs, err := filepath.Abs(stylePath); err == nil {
			key = abs
		}
	}

	varsMu.Lock()
	defer varsMu.Unlock()
	if used, ok := varsCache[key]; ok {
		return used
	}

	used := map[string]bool{}
	if data, err := csl.ReadStyleFile(key); err == nil {
		if info, err := csl.ReadInfo(bytes.NewReader(data)); err == nil {
			for _, v := range info.Variables {
				used[v] = true
			}
		}
	}
	varsCache[key] = used
	return used
}

// cslVarToFields maps CSL variables to the record fields that feed them.
var cslVarToFields = map[string][]string{
	"title":            {"title"},
	"title-short":      {"title_alt"},
	"author":           {"authors"},
	"issued":           {"year"},
	"container-title":  {"container_title"},
	"collection-title": {"container_title"},
	"volume":           {"volume"},
	"issue":            {"issue"},
	"page":             {"pages"},
	"DOI":              {"doi"},
	"URL":              {"url"},
	"publisher":        {"publisher"},
	"institution":      {"institution"},
}

// EditorFieldsForCSL returns the record fields a CSL style actually prints.
func EditorFieldsForCSL(stylePath string) map[string]bool {
	fields := map[string]bool{}
	for v := range CSLVariablesUsed(stylePath) {
		for _, f := range cslVarToFields[v] {
			fields[f] = true
		}
	}
	return fields
}

// DiscoverDir lists the *.csl files in dir sorted case-insensitively.
// A missing directory yields nothing.
func DiscoverDir(dir string) []StyleRef {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []StyleRef
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csl") {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out = append(out, StyleRef{Kind: KindCSL, Key: p, Name: ReadTitle(p), Path: p})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(filepath.Base(out[i].Path)) < strings.ToLower(filepath.Base(out[j].Path))
	})
	return out
}

// DiscoverEmbedded lists the bundled CSL styles.
func DiscoverEmbedded() []StyleRef {
	var out []StyleRef
	for _, name := range csl.EmbeddedStyles() {
		p := csl.EmbeddedPrefix + name
		out = append(out, StyleRef{Kind: KindCSL, Key: p, Name: ReadTitle(p), Path: p})
	}
	return out
}

func stem(s StyleRef) string {
	p := s.Path
	if p == "" {
		p = s.Key
	}
	p = strings.TrimPrefix(p, csl.EmbeddedPrefix)
	return strings.ToLower(strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)))
}

// DiscoverCSL merges the styles of dirs and the bundled styles. When two
// files share a stem the first one wins, so earlier dirs take precedence.
func DiscoverCSL(dirs ...string) []StyleRef {
	seen := map[string]bool{}
	var out []StyleRef
	add := func(list []StyleRef) {
		for _, s := range list {
			k := stem(s)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, s)
		}
	}
	for _, d := range dirs {
		add(DiscoverDir(d))
	}
	add(DiscoverEmbedded())
	return out
}

// DiscoverBuiltin lists the registered builtin formatters.
func DiscoverBuiltin() []StyleRef {
	var out []StyleRef
	for _, b := range format.List() {
		out = append(out, StyleRef{Kind: KindBuiltin, Key: b.ID, Name: b.DisplayName})
	}
	return out
}

// Options selects what ListStyles returns.
type Options struct {
	IncludeBuiltin bool
	IncludeCSL     bool
	// Dirs are searched for CSL files in order, before the bundled styles.
	Dirs []string
}

// ListStyles returns the available styles sorted by kind, then name.
func ListStyles(opts Options) []StyleRef {
	var out []StyleRef
	if opts.IncludeBuiltin {
		out = append(out, DiscoverBuiltin()...)
	}
	if opts.IncludeCSL {
		out = append(out, DiscoverCSL(opts.Dirs...)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Resolve expands a "csl:<name>" selector naming a style by its stem (for
// example "csl:apa-lite") into the selector of the matching discovered
// file. Selectors that already point at a file, builtin selectors and
// unknown names are returned unchanged.
func Resolve(selector string, dirs ...string) string {
	kind, value := format.ParseSelector(selector)
	if kind != KindCSL || value == "" || csl.IsEmbedded(value) {
		return selector
	}
	if _, err := os.Stat(value); err == nil {
		return selector
	}

	want := strings.ToLower(strings.TrimSuffix(filepath.Base(value), filepath.Ext(value)))
	for _, s := range DiscoverCSL(dirs...) {
		if stem(s) == want {
			return s.Selector()
		}
	}
	return selector
}
