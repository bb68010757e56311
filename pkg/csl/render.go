package csl

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrNoBibliography is returned for styles without a <bibliography> layout.
var ErrNoBibliography = errors.New("style has no bibliography")

// maxMacroDepth bounds macro recursion in malformed styles.
const maxMacroDepth = 32

var (
	numericRe   = regexp.MustCompile(`^\s*[A-Za-z]?\d+[A-Za-z]?(\s*[-–&,]\s*[A-Za-z]?\d+[A-Za-z]?)*\s*$`)
	pageRangeRe = regexp.MustCompile(`(\d)\s*[-–]\s*(\d)`)

	spacesRe      = regexp.MustCompile(`\s+`)
	spaceBeforeRe = regexp.MustCompile(`\s+([.,;:])`)
	doublePunctRe = regexp.MustCompile(`([.?!])\.+`)
	doubleCommaRe = regexp.MustCompile(`,\s*,`)
)

// Processor renders items with one style in one locale.
// A Processor is safe for concurrent use.
type Processor struct {
	style  *Style
	locale *locale
}

// NewProcessor prepares style for rendering in the given locale tag.
// An empty tag uses the style's default locale.
func NewProcessor(style *Style, localeTag string) (*Processor, error) {
	loc, err := buildLocale(localeTag, style)
	if err != nil {
		return nil, fmt.Errorf("failed to load locale %q: %w", localeTag, err)
	}
	return &Processor{style: style, locale: loc}, nil
}

// Style returns the parsed style.
func (p *Processor) Style() *Style { return p.style }

// Locale returns the tag of the locale in use.
func (p *Processor) Locale() string { return p.locale.lang }

// Bibliography renders one plain-text entry per item, sorted by the style's
// sort keys (input order when the style has none). Empty entries are dropped.
func (p *Processor) Bibliography(items []Item) ([]string, error) {
	if !p.style.HasBibliography() {
		return nil, ErrNoBibliography
	}

	ordered := p.sortItems(items)
	layout := p.style.bibliography.child("layout")

	out := make([]string, 0, len(ordered))
	for i := range ordered {
		r := p.newRenderer(&ordered[i], i)
		entry := r.renderChildren(layout.children, layout.attr("delimiter"))
		entry = r.format(layout, entry)
		if entry = cleanup(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Text renders the bibliography as newline-separated lines.
func (p *Processor) Text(items []Item) (string, error) {
	lines, err := p.Bibliography(items)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// cleanup normalizes spacing and duplicate punctuation left by empty
// elements in plain-text output.
func cleanup(s string) string {
	s = spacesRe.ReplaceAllString(s, " ")
	s = spaceBeforeRe.ReplaceAllString(s, "$1")
	s = doubleCommaRe.ReplaceAllString(s, ",")
	s = doublePunctRe.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "...") {
			return m
		}
		return m[:1]
	})
	return strings.TrimSpace(s)
}

// --- sorting ---

func (p *Processor) sortItems(items []Item) []Item {
	out := append([]Item(nil), items...)
	sortNode := p.style.bibliography.child("sort")
	if sortNode == nil {
		return out
	}
	keys := sortNode.childrenNamed("key")
	if len(keys) == 0 {
		return out
	}

	values := make([][]string, len(out))
	for i := range out {
		values[i] = make([]string, len(keys))
		for k, key := range keys {
			values[i][k] = p.sortValue(&out[i], i, key)
		}
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	col := collate.New(language.Make(p.locale.lang), collate.IgnoreCase)
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := values[idx[a]], values[idx[b]]
		for k, key := range keys {
			x, y := va[k], vb[k]
			if x == y {
				continue
			}
			// Empty values sort last in either direction.
			if x == "" {
				return false
			}
			if y == "" {
				return true
			}
			c := col.CompareString(x, y)
			if c == 0 {
				continue
			}
			if key.attr("sort") == "descending" {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	sorted := make([]Item, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

func (p *Processor) sortValue(item *Item, index int, key *node) string {
	if m := key.attr("macro"); m != "" {
		r := p.newRenderer(item, index)
		r.sorting = true
		return cleanup(r.renderMacro(m))
	}

	v := key.attr("variable")
	if names := item.names(v); len(names) > 0 {
		parts := make([]string, len(names))
		for i, n := range names {
			if n.Literal != "" {
				parts[i] = n.Literal
			} else {
				parts[i] = strings.TrimSpace(n.Family + " " + n.Given)
			}
		}
		return strings.Join(parts, " ")
	}
	if d := item.date(v); d != nil {
		return fmt.Sprintf("%04d%02d%02d", d.Year(), d.Month(), d.Day())
	}
	val := item.variable(v)
	if numericRe.MatchString(val) {
		if n, err := strconv.Atoi(leadingDigits(val)); err == nil {
			return fmt.Sprintf("%010d", n)
		}
	}
	return val
}

func leadingDigits(s string) string {
	s = strings.TrimLeftFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end < 0 {
		return s
	}
	return s[:end]
}

// --- rendering ---

// renderer renders one item. called and rendered count variable lookups so
// that groups can be suppressed when every variable they call is empty.
type renderer struct {
	p        *Processor
	item     *Item
	index    int
	called   int
	rendered int
	depth    int
	sorting  bool
}

func (p *Processor) newRenderer(item *Item, index int) *renderer {
	return &renderer{p: p, item: item, index: index}
}

func (r *renderer) renderChildren(nodes []*node, delimiter string) string {
	var parts []string
	for _, n := range nodes {
		if s := r.render(n); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, delimiter)
}

func (r *renderer) render(n *node) string {
	switch n.name {
	case "text":
		return r.format(n, r.renderText(n))
	case "names":
		return r.format(n, r.renderNames(n, nil, nil))
	case "date":
		return r.format(n, r.renderDate(n))
	case "number":
		return r.format(n, r.renderNumber(n))
	case "label":
		return r.format(n, r.renderLabel(n, 0))
	case "group":
		return r.format(n, r.renderGroup(n))
	case "choose":
		return r.renderChoose(n)
	}
	return ""
}

// format applies text-case, strip-periods, quotes and affixes to non-empty s.
func (r *renderer) format(n *node, s string) string {
	if s == "" {
		return ""
	}
	if tc := n.attr("text-case"); tc != "" {
		s = r.textCase(tc, s)
	}
	if n.attr("strip-periods") == "true" {
		s = strings.ReplaceAll(s, ".", "")
	}
	if n.attr("quotes") == "true" {
		open, _ := r.p.locale.term("open-quote", "long", false)
		closing, _ := r.p.locale.term("close-quote", "long", false)
		s = open + s + closing
	}
	return n.attr("prefix") + s + n.attr("suffix")
}

func (r *renderer) textCase(mode, s string) string {
	tag := language.Make(r.p.locale.lang)
	switch mode {
	case "lowercase":
		return cases.Lower(tag).String(s)
	case "uppercase":
		return cases.Upper(tag).String(s)
	case "capitalize-first", "sentence":
		return upperFirst(s)
	case "capitalize-all", "title":
		return cases.Title(tag, cases.NoLower).String(s)
	}
	return s
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// variable fetches a string variable and records the lookup.
func (r *renderer) variable(name, form string) string {
	r.called++
	var val string
	switch {
	case name == "citation-number":
		val = strconv.Itoa(r.index + 1)
	case form == "short":
		if val = r.item.variable(name + "-short"); val == "" {
			val = r.item.variable(name)
		}
	default:
		val = r.item.variable(name)
	}
	if name == "page" {
		val = r.pageRange(val)
	}
	if val != "" {
		r.rendered++
	}
	return val
}

func (r *renderer) pageRange(s string) string {
	delim, ok := r.p.locale.term("page-range-delimiter", "long", false)
	if !ok {
		delim = "–"
	}
	return pageRangeRe.ReplaceAllString(s, "${1}"+delim+"${2}")
}

func (r *renderer) renderText(n *node) string {
	switch {
	case n.attr("variable") != "":
		return r.variable(n.attr("variable"), n.attr("form"))
	case n.attr("macro") != "":
		return r.renderMacro(n.attr("macro"))
	case n.attr("term") != "":
		t, _ := r.p.locale.term(n.attr("term"), n.attr("form"), n.attr("plural") == "true")
		return t
	default:
		return n.attr("value")
	}
}

func (r *renderer) renderMacro(name string) string {
	m, ok := r.p.style.macros[name]
	if !ok || r.depth >= maxMacroDepth {
		return ""
	}
	r.depth++
	defer func() { r.depth-- }()
	return r.renderChildren(m.children, "")
}

func (r *renderer) renderNumber(n *node) string {
	return r.variable(n.attr("variable"), "")
}

// renderLabel renders the term for a variable. count is the number of names
// for name variables and 0 otherwise.
func (r *renderer) renderLabel(n *node, count int) string {
	v := n.attr("variable")
	var plural bool
	switch n.attr("plural") {
	case "always":
		plural = true
	case "never":
		plural = false
	default:
		if count > 0 {
			plural = count > 1
		} else {
			val := r.item.variable(v)
			if val == "" {
				return ""
			}
			plural = strings.ContainsAny(val, "-–&,")
		}
	}
	form := n.attr("form")
	if form == "" {
		form = "long"
	}
	t, _ := r.p.locale.term(v, form, plural)
	return t
}

func (r *renderer) renderGroup(n *node) string {
	called, rendered := r.called, r.rendered
	s := r.renderChildren(n.children, n.attr("delimiter"))
	if r.called > called && r.rendered == rendered {
		return ""
	}
	return s
}

func (r *renderer) renderChoose(n *node) string {
	for _, branch := range n.children {
		switch branch.name {
		case "if", "else-if":
			if r.test(branch) {
				return r.renderChildren(branch.children, "")
			}
		case "else":
			return r.renderChildren(branch.children, "")
		}
	}
	return ""
}

// test evaluates the conditions of an if/else-if branch.
func (r *renderer) test(n *node) bool {
	var results []bool
	for _, t := range strings.Fields(n.attr("type")) {
		results = append(results, r.item.Type == t)
	}
	for _, v := range strings.Fields(n.attr("variable")) {
		results = append(results, v == "citation-number" || r.item.has(v))
	}
	for _, v := range strings.Fields(n.attr("is-numeric")) {
		results = append(results, numericRe.MatchString(r.item.variable(v)))
	}
	for _, attr := range []string{"is-uncertain-date", "locator", "position", "disambiguate"} {
		for range strings.Fields(n.attr(attr)) {
			results = append(results, false)
		}
	}
	if len(results) == 0 {
		return false
	}

	switch n.attr("match") {
	case "any":
		for _, ok := range results {
			if ok {
				return true
			}
		}
		return false
	case "none":
		for _, ok := range results {
			if ok {
				return false
			}
		}
		return true
	default:
		for _, ok := range results {
			if !ok {
				return false
			}
		}
		return true
	}
}

// --- dates ---

func (r *renderer) renderDate(n *node) string {
	r.called++
	d := r.item.date(n.attr("variable"))
	if d == nil || d.Year() == 0 {
		return ""
	}
	r.rendered++

	wanted := map[string]bool{"year": true, "month": true, "day": true}
	switch n.attr("date-parts") {
	case "year":
		wanted = map[string]bool{"year": true}
	case "year-month":
		wanted = map[string]bool{"year": true, "month": true}
	}

	parts := n.childrenNamed("date-part")
	delimiter := n.attr("delimiter")
	if form := n.attr("form"); form != "" {
		if loc, ok := r.p.locale.dates[form]; ok {
			parts = mergeDateParts(loc.childrenNamed("date-part"), parts)
			delimiter = loc.attr("delimiter")
		}
	}
	if len(parts) == 0 {
		parts = []*node{{name: "date-part", attrs: map[string]string{"name": "year"}}}
	}

	var out []string
	for _, dp := range parts {
		name := dp.attr("name")
		if !wanted[name] {
			continue
		}
		if s := r.format(dp, r.datePart(dp, d)); s != "" {
			out = append(out, s)
		}
	}
	return strings.TrimSpace(strings.Join(out, delimiter))
}

// mergeDateParts applies the style's date-part attributes (other than
// affixes) over the locale's date-parts.
func mergeDateParts(locParts, styleParts []*node) []*node {
	out := make([]*node, len(locParts))
	for i, lp := range locParts {
		merged := &node{name: lp.name, attrs: make(map[string]string, len(lp.attrs))}
		for k, v := range lp.attrs {
			merged.attrs[k] = v
		}
		for _, sp := range styleParts {
			if sp.attr("name") != lp.attr("name") {
				continue
			}
			for k, v := range sp.attrs {
				if k != "prefix" && k != "suffix" {
					merged.attrs[k] = v
				}
			}
		}
		out[i] = merged
	}
	return out
}

func (r *renderer) datePart(dp *node, d *Date) string {
	form := dp.attr("form")
	switch dp.attr("name") {
	case "year":
		y := strconv.Itoa(d.Year())
		if form == "short" && len(y) == 4 {
			return y[2:]
		}
		return y
	case "month":
		m := d.Month()
		if m == 0 {
			return ""
		}
		switch form {
		case "numeric":
			return strconv.Itoa(m)
		case "numeric-leading-zeros":
			return fmt.Sprintf("%02d", m)
		}
		if form == "" {
			form = "long"
		}
		t, ok := r.p.locale.term(fmt.Sprintf("month-%02d", m), form, false)
		if !ok {
			return strconv.Itoa(m)
		}
		return t
	case "day":
		day := d.Day()
		if day == 0 || d.Month() == 0 {
			return ""
		}
		if form == "numeric-leading-zeros" {
			return fmt.Sprintf("%02d", day)
		}
		return strconv.Itoa(day)
	}
	return ""
}

// --- names ---

// nameOptions are the inheritable name attributes, resolved from the
// <name> element, then <bibliography>, then <style>.
type nameOptions struct {
	and                   string
	delimiter             string
	delimiterPrecedesLast string
	delimiterPrecedesEtAl string
	etAlMin               int
	etAlUseFirst          int
	initializeWith        string
	initialize            bool
	nameAsSortOrder       string
	sortSeparator         string
	form                  string
}

func (r *renderer) nameOptions(name *node) nameOptions {
	lookup := func(key, inheritedKey string) string {
		if v := name.attr(key); v != "" {
			return v
		}
		if v := r.p.style.bibliography.attr(inheritedKey); v != "" {
			return v
		}
		return r.p.style.root.attr(inheritedKey)
	}
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}

	o := nameOptions{
		and:                   lookup("and", "and"),
		delimiter:             lookup("delimiter", "name-delimiter"),
		delimiterPrecedesLast: lookup("delimiter-precedes-last", "delimiter-precedes-last"),
		delimiterPrecedesEtAl: lookup("delimiter-precedes-et-al", "delimiter-precedes-et-al"),
		etAlMin:               atoi(lookup("et-al-min", "et-al-min")),
		etAlUseFirst:          atoi(lookup("et-al-use-first", "et-al-use-first")),
		initializeWith:        lookup("initialize-with", "initialize-with"),
		initialize:            lookup("initialize", "initialize") != "false",
		nameAsSortOrder:       lookup("name-as-sort-order", "name-as-sort-order"),
		sortSeparator:         lookup("sort-separator", "sort-separator"),
		form:                  lookup("form", "name-form"),
	}
	if o.delimiter == "" {
		o.delimiter = ", "
	}
	if o.sortSeparator == "" {
		o.sortSeparator = ", "
	}
	if o.delimiterPrecedesLast == "" {
		o.delimiterPrecedesLast = "contextual"
	}
	if o.delimiterPrecedesEtAl == "" {
		o.delimiterPrecedesEtAl = "contextual"
	}
	if r.sorting {
		o.etAlMin = 0
		o.nameAsSortOrder = "all"
	}
	return o
}

// renderNames renders a <names> element. inherited supplies the <name> and
// <et-al> children of the enclosing element when n is a substitute.
func (r *renderer) renderNames(n *node, inheritedName, inheritedEtAl *node) string {
	nameNode := n.child("name")
	if nameNode == nil {
		nameNode = inheritedName
	}
	etAlNode := n.child("et-al")
	if etAlNode == nil {
		etAlNode = inheritedEtAl
	}
	labelNode := n.child("label")
	labelFirst := labelNode != nil && indexOf(n.children, labelNode) < indexOf(n.children, nameNode)

	var parts []string
	for _, v := range strings.Fields(n.attr("variable")) {
		r.called++
		list := r.item.names(v)
		if len(list) == 0 {
			continue
		}
		r.rendered++

		s := r.formatNames(list, nameNode, etAlNode)
		if labelNode != nil {
			lbl := &node{name: "label", attrs: map[string]string{"variable": v}}
			for k, val := range labelNode.attrs {
				if k != "variable" {
					lbl.attrs[k] = val
				}
			}
			if l := r.format(labelNode, r.renderLabel(lbl, len(list))); l != "" {
				if labelFirst {
					s = l + s
				} else {
					s += l
				}
			}
		}
		parts = append(parts, s)
	}
	if out := strings.Join(parts, n.attr("delimiter")); out != "" {
		return out
	}

	sub := n.child("substitute")
	if sub == nil {
		return ""
	}
	for _, c := range sub.children {
		var s string
		if c.name == "names" {
			s = r.format(c, r.renderNames(c, nameNode, etAlNode))
		} else {
			s = r.render(c)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func indexOf(nodes []*node, target *node) int {
	for i, n := range nodes {
		if n == target {
			return i
		}
	}
	return len(nodes)
}

func (r *renderer) formatNames(list []Name, nameNode, etAlNode *node) string {
	o := r.nameOptions(nameNode)

	shown := list
	truncated := false
	if o.etAlMin > 0 && o.etAlUseFirst > 0 && len(list) >= o.etAlMin && o.etAlUseFirst < len(list) {
		shown = list[:o.etAlUseFirst]
		truncated = true
	}

	if o.form == "count" {
		return strconv.Itoa(len(shown))
	}

	formatted := make([]string, len(shown))
	inverted := make([]bool, len(shown))
	for i, nm := range shown {
		inverted[i] = o.nameAsSortOrder == "all" || (o.nameAsSortOrder == "first" && i == 0)
		formatted[i] = r.formatName(nm, inverted[i], o, nameNode)
	}

	var out string
	switch {
	case len(formatted) == 1:
		out = formatted[0]
	case truncated || o.and == "":
		out = strings.Join(formatted, o.delimiter)
	default:
		last := len(formatted) - 1
		andWord := "&"
		if o.and == "text" {
			andWord, _ = r.p.locale.term("and", "long", false)
		}
		precedes := false
		switch o.delimiterPrecedesLast {
		case "always":
			precedes = true
		case "never":
			precedes = false
		case "after-inverted-name":
			precedes = inverted[last-1]
		default:
			precedes = len(formatted) > 2
		}
		sep := " "
		if precedes {
			sep = o.delimiter
		}
		out = strings.Join(formatted[:last], o.delimiter) + sep + andWord + " " + formatted[last]
	}

	if truncated {
		termName := "et-al"
		if etAlNode != nil && etAlNode.attr("term") != "" {
			termName = etAlNode.attr("term")
		}
		etAl, _ := r.p.locale.term(termName, "long", false)
		precedes := o.delimiterPrecedesEtAl == "always" ||
			(o.delimiterPrecedesEtAl == "contextual" && len(shown) > 1) ||
			(o.delimiterPrecedesEtAl == "after-inverted-name" && inverted[len(inverted)-1])
		sep := " "
		if precedes {
			sep = o.delimiter
		}
		if etAlNode != nil {
			etAl = r.format(etAlNode, etAl)
		}
		out += sep + etAl
	}
	return out
}

func (r *renderer) formatName(nm Name, inverted bool, o nameOptions, nameNode *node) string {
	if nm.Literal != "" {
		return nm.Literal
	}

	family, given := nm.Family, nm.Given
	if o.initializeWith != "" && o.initialize {
		given = initials(given, o.initializeWith)
	}
	for _, part := range nameNode.childrenForName() {
		switch part.attr("name") {
		case "family":
			family = r.format(part, family)
		case "given":
			given = r.format(part, given)
		}
	}

	switch {
	case given == "":
		return family
	case family == "":
		return given
	case o.form == "short":
		return family
	case isCJK(nm.Family):
		return family + given
	case inverted:
		return family + o.sortSeparator + given
	}
	return given + " " + family
}

// childrenForName returns the <name-part> children of a <name> element.
func (n *node) childrenForName() []*node {
	if n == nil {
		return nil
	}
	return n.childrenNamed("name-part")
}

// initials turns "Min Soo" into "M. S." with initialize-with ". ".
// Hyphenated given names keep the hyphen: "Min-Soo" becomes "M.-S.".
func initials(given, with string) string {
	mark := strings.TrimRight(with, " ")
	var words []string
	for _, word := range strings.Fields(given) {
		var pieces []string
		for _, piece := range strings.Split(word, "-") {
			r, _ := utf8.DecodeRuneInString(piece)
			if r == utf8.RuneError {
				continue
			}
			pieces = append(pieces, string(unicode.ToUpper(r))+mark)
		}
		if len(pieces) > 0 {
			words = append(words, strings.Join(pieces, "-"))
		}
	}
	sep := ""
	if strings.HasSuffix(with, " ") {
		sep = " "
	}
	return strings.Join(words, sep)
}

func isCJK(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hangul, unicode.Han, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}
