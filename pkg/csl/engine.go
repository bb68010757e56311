package csl

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

//go:embed data/styles/*.csl
var styleFS embed.FS

// EmbeddedPrefix marks a style path that refers to a bundled style,
// e.g. "embedded:apa-lite.csl".
const EmbeddedPrefix = "embedded:"

// DefaultCacheSize is the number of (style, locale) processors kept.
const DefaultCacheSize = 32

// ErrStyleNotFound is returned when a style file does not exist.
var ErrStyleNotFound = errors.New("CSL style not found")

// EmbeddedStyles lists the file names of the bundled styles, sorted.
func EmbeddedStyles() []string {
	entries, err := styleFS.ReadDir("data/styles")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// IsEmbedded reports whether stylePath names a bundled style.
func IsEmbedded(stylePath string) bool {
	return strings.HasPrefix(stylePath, EmbeddedPrefix)
}

// ReadStyleFile returns the raw bytes of a style, either a bundled one or
// a file on disk.
func ReadStyleFile(stylePath string) ([]byte, error) {
	if IsEmbedded(stylePath) {
		name := path.Base(strings.TrimPrefix(stylePath, EmbeddedPrefix))
		data, err := styleFS.ReadFile("data/styles/" + name)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStyleNotFound, stylePath)
		}
		return data, err
	}

	data, err := os.ReadFile(stylePath) //nolint:gosec // style path is chosen by the user
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStyleNotFound, stylePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read style %s: %w", stylePath, err)
	}
	return data, nil
}

// LoadStyle reads and parses a style.
func LoadStyle(stylePath string) (*Style, error) {
	data, err := ReadStyleFile(stylePath)
	if err != nil {
		return nil, err
	}
	s, err := ParseStyle(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stylePath, err)
	}
	return s, nil
}

type cacheKey struct {
	path   string
	locale string
}

// Engine loads styles and keeps recently used processors in an LRU cache
// keyed by (style path, locale).
type Engine struct {
	cache *lru.Cache
}

// NewEngine creates an engine caching up to size processors.
func NewEngine(size int) *Engine {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &Engine{cache: cache}
}

// Processor returns the cached processor for stylePath in locale, loading
// it on first use. Paths on disk are made absolute so that equivalent
// paths share a cache entry.
func (e *Engine) Processor(stylePath, locale string) (*Processor, error) {
	key := cacheKey{path: stylePath, locale: locale}
	if !IsEmbedded(stylePath) {
		if abs, err := filepath.Abs(stylePath); err == nil {
			key.path = abs
		}
	}

	if v, ok := e.cache.Get(key); ok {
		return v.(*Processor), nil
	}

	style, err := LoadStyle(key.path)
	if err != nil {
		return nil, err
	}
	p, err := NewProcessor(style, locale)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, p)
	return p, nil
}

// Len returns the number of cached processors.
func (e *Engine) Len() int {
	return e.cache.Len()
}

// Purge drops every cached processor.
func (e *Engine) Purge() {
	e.cache.Purge()
}

// RenderBibliography renders items with the style at stylePath and returns
// the entries joined by newlines.
func (e *Engine) RenderBibliography(stylePath string, items []Item, locale string) (string, error) {
	p, err := e.Processor(stylePath, locale)
	if err != nil {
		return "", err
	}
	return p.Text(items)
}

var defaultEngine = NewEngine(DefaultCacheSize)

// RenderBibliography renders with the shared default engine.
func RenderBibliography(stylePath string, items []Item, locale string) (string, error) {
	return defaultEngine.RenderBibliography(stylePath, items, locale)
}
