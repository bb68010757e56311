package csl

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
)

//go:embed data/locales/*.xml
var localeFS embed.FS

// DefaultLocale is used when the requested locale has no term table.
const DefaultLocale = "en-US"

// term holds the singular and plural text of one term form.
type term struct {
	single   string
	multiple string
}

func (t term) text(plural bool) string {
	if plural && t.multiple != "" {
		return t.multiple
	}
	return t.single
}

// locale is a merged term table plus localized date formats.
type locale struct {
	lang  string
	terms map[string]term  // name + "|" + form
	dates map[string]*node // form -> <date>
}

func newLocale(lang string) *locale {
	return &locale{lang: lang, terms: map[string]term{}, dates: map[string]*node{}}
}

// merge overlays the terms and dates of a <locale> element.
func (l *locale) merge(n *node) {
	for _, d := range n.childrenNamed("date") {
		l.dates[d.attr("form")] = d
	}
	terms := n.child("terms")
	if terms == nil {
		return
	}
	for _, t := range terms.childrenNamed("term") {
		form := t.attr("form")
		if form == "" {
			form = "long"
		}
		var tm term
		if s := t.child("single"); s != nil {
			tm.single = s.text
			if m := t.child("multiple"); m != nil {
				tm.multiple = m.text
			}
		} else {
			tm.single = t.text
		}
		l.terms[t.attr("name")+"|"+form] = tm
	}
}

// formFallback lists the forms tried for a requested term form.
var formFallback = map[string][]string{
	"long":       {"long"},
	"short":      {"short", "long"},
	"verb":       {"verb", "long"},
	"verb-short": {"verb-short", "verb", "short", "long"},
	"symbol":     {"symbol", "short", "long"},
}

// term looks up a term, falling back to longer forms.
func (l *locale) term(name, form string, plural bool) (string, bool) {
	if form == "" {
		form = "long"
	}
	forms, ok := formFallback[form]
	if !ok {
		forms = []string{form, "long"}
	}
	for _, f := range forms {
		if t, ok := l.terms[name+"|"+f]; ok {
			return t.text(plural), true
		}
	}
	return "", false
}

var (
	baseLocalesOnce sync.Once
	baseLocales     map[string]*node
	baseLocalesErr  error
)

// loadBaseLocales parses the embedded locale files once.
func loadBaseLocales() (map[string]*node, error) {
	baseLocalesOnce.Do(func() {
		baseLocales = map[string]*node{}
		entries, err := localeFS.ReadDir("data/locales")
		if err != nil {
			baseLocalesErr = err
			return
		}
		for _, e := range entries {
			data, err := localeFS.ReadFile("data/locales/" + e.Name())
			if err != nil {
				baseLocalesErr = err
				return
			}
			n, err := parseTree(bytes.NewReader(data))
			if err != nil {
				baseLocalesErr = fmt.Errorf("embedded locale %s: %w", e.Name(), err)
				return
			}
			baseLocales[n.attr("lang")] = n
		}
	})
	return baseLocales, baseLocalesErr
}

// AvailableLocales lists the embedded locale tags.
func AvailableLocales() []string {
	locs, err := loadBaseLocales()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(locs))
	for tag := range locs {
		out = append(out, tag)
	}
	return out
}

// matchLocale finds the embedded locale for tag: exact match, then the same
// primary language, then DefaultLocale.
func matchLocale(tag string, locs map[string]*node) string {
	if _, ok := locs[tag]; ok {
		return tag
	}
	primary := primaryLanguage(tag)
	for t := range locs {
		if primaryLanguage(t) == primary {
			return t
		}
	}
	return DefaultLocale
}

func primaryLanguage(tag string) string {
	tag = strings.ReplaceAll(tag, "_", "-")
	p, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(p)
}

// buildLocale merges the default locale, the requested locale and the
// style's own <locale> overrides, in that order.
func buildLocale(tag string, style *Style) (*locale, error) {
	locs, err := loadBaseLocales()
	if err != nil {
		return nil, err
	}
	if tag == "" {
		tag = style.DefaultLocale
	}
	matched := matchLocale(tag, locs)

	l := newLocale(matched)
	if base, ok := locs[DefaultLocale]; ok {
		l.merge(base)
	}
	if matched != DefaultLocale {
		l.merge(locs[matched])
	}

	// Overrides without a language apply first, then language-specific ones.
	for _, n := range style.locales {
		if n.attr("lang") == "" {
			l.merge(n)
		}
	}
	for _, n := range style.locales {
		lang := n.attr("lang")
		if lang != "" && (lang == matched || lang == primaryLanguage(matched)) {
			l.merge(n)
		}
	}
	return l, nil
}
