package csl

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// node is a namespace-free CSL XML element.
type node struct {
	name     string
	attrs    map[string]string
	children []*node
	text     string
}

func (n *node) attr(key string) string {
	if n == nil {
		return ""
	}
	return n.attrs[key]
}

func (n *node) child(name string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) childrenNamed(name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// walk visits n and its descendants depth first.
func (n *node) walk(fn func(*node)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

// parseTree reads an XML document into a node tree. Namespaces are dropped,
// except that xml:lang is kept as "lang".
func parseTree(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		stack []*node
		root  *node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("empty document")
	}
	return root, nil
}

// Style is a parsed CSL style.
type Style struct {
	Title         string
	DefaultLocale string

	root         *node
	macros       map[string]*node
	bibliography *node
	locales      []*node
}

// ParseStyle parses a CSL style document.
func ParseStyle(r io.Reader) (*Style, error) {
	root, err := parseTree(r)
	if err != nil {
		return nil, fmt.Errorf("invalid CSL style: %w", err)
	}
	if root.name != "style" {
		return nil, fmt.Errorf("invalid CSL style: root element is <%s>, want <style>", root.name)
	}

	s := &Style{
		DefaultLocale: root.attr("default-locale"),
		root:          root,
		macros:        make(map[string]*node),
	}
	if info := root.child("info"); info != nil {
		if t := info.child("title"); t != nil {
			s.Title = strings.TrimSpace(t.text)
		}
	}
	for _, c := range root.children {
		switch c.name {
		case "macro":
			s.macros[c.attr("name")] = c
		case "bibliography":
			s.bibliography = c
		case "locale":
			s.locales = append(s.locales, c)
		}
	}
	return s, nil
}

// HasBibliography reports whether the style defines a bibliography.
func (s *Style) HasBibliography() bool {
	return s.bibliography != nil && s.bibliography.child("layout") != nil
}

// Variables returns every variable name referenced by the style, in order
// of first appearance. Space-separated lists such as "author editor" are split.
func (s *Style) Variables() []string {
	seen := map[string]bool{}
	var out []string
	s.root.walk(func(n *node) {
		for _, v := range strings.Fields(n.attr("variable")) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	})
	return out
}

// Info is the metadata the style registry needs about a style file.
type Info struct {
	Title     string
	Variables []string
}

// ReadInfo reads the title and the variables used from a style document
// without requiring a bibliography.
func ReadInfo(r io.Reader) (Info, error) {
	s, err := ParseStyle(r)
	if err != nil {
		return Info{}, err
	}
	return Info{Title: s.Title, Variables: s.Variables()}, nil
}
