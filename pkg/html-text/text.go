// Package htmltext extracts the text content of elements from an HTML document.
package htmltext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNoMatch = errors.New("no element matches selector")

// Extractor implements text extraction with golang.org/x/net/html.
// The zero value is ready to use.
type Extractor struct{}

// Extract parses raw as an HTML document and returns the text content of the
// first element (in document order) matching selector.
//
// The selector is a whitespace-separated list of tag names, each one a
// descendant of the previous one, e.g. "body code".
func (Extractor) Extract(raw []byte, selector string) (string, error) {
	path, err := parseSelector(selector)
	if err != nil {
		return "", err
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	n := find(doc, path)
	if n == nil {
		return "", fmt.Errorf("%w %q", ErrNoMatch, selector)
	}
	var b strings.Builder
	textContent(n, &b)
	return b.String(), nil
}

func parseSelector(selector string) ([]atom.Atom, error) {
	names := strings.Fields(selector)
	if len(names) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	path := make([]atom.Atom, 0, len(names))
	for _, name := range names {
		a := atom.Lookup([]byte(strings.ToLower(name)))
		if a == 0 {
			return nil, fmt.Errorf("unknown element %q in selector", name)
		}
		path = append(path, a)
	}
	return path, nil
}

// find returns the first element in document order whose ancestors match
// path[:len(path)-1] (in order, not necessarily directly) and that is itself
// a path[len(path)-1] element.
func find(n *html.Node, path []atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == path[0] {
			if len(path) == 1 {
				return c
			}
			if m := find(c, path[1:]); m != nil {
				return m
			}
		}
		if m := find(c, path); m != nil {
			return m
		}
	}
	return nil
}

func textContent(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		textContent(c, b)
	}
}
