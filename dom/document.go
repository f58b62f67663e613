// Package dom is the read-only query surface over a rendered page snapshot.
//
// A snapshot is the outer HTML of a live page, taken after form state has
// been copied into attributes (see internal/browser). It is parsed once with
// golang.org/x/net/html and queried with a CSS subset (see Selector).
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page snapshot.
type Document struct {
	root *html.Node
	url  string
}

// Parse reads HTML from r. pageURL is kept for resolving relative links.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse HTML: %w", err)
	}
	return &Document{root: n, url: pageURL}, nil
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(b []byte, pageURL string) (*Document, error) {
	return Parse(bytes.NewReader(b), pageURL)
}

// MustParseString parses s and panics on error. For tests and fixtures.
func MustParseString(s, pageURL string) *Document {
	d, err := Parse(strings.NewReader(s), pageURL)
	if err != nil {
		panic(err)
	}
	return d
}

// URL returns the page URL the snapshot was taken from.
func (d *Document) URL() string { return d.url }

// Root returns the document node wrapped as an Element. Queries from the
// root search the whole page.
func (d *Document) Root() *Element { return &Element{n: d.root} }

// Query is shorthand for d.Root().Query(sel).
func (d *Document) Query(sel string) *Element { return d.Root().Query(sel) }

// QueryAll is shorthand for d.Root().QueryAll(sel).
func (d *Document) QueryAll(sel string) []*Element { return d.Root().QueryAll(sel) }

// Title returns the <title> text.
func (d *Document) Title() string {
	if t := d.Query("title"); t != nil {
		return t.Text()
	}
	return ""
}

// Element wraps an element (or the document) node.
type Element struct {
	n *html.Node
}

// Wrap returns an Element for n, or nil for a nil node.
func Wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{n: n}
}

// Node exposes the underlying html node.
func (e *Element) Node() *html.Node { return e.n }

// Tag returns the lower-case tag name ("" for the document node).
func (e *Element) Tag() string {
	if e.n.Type != html.ElementNode {
		return ""
	}
	return e.n.Data
}

// Attr returns the value of an attribute, "" if absent.
func (e *Element) Attr(key string) string { return getAttr(e.n, key) }

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(key string) bool {
	_, ok := lookupAttr(e.n, key)
	return ok
}

// HasClass reports whether class is in the element's class list.
func (e *Element) HasClass(class string) bool {
	return contains(strings.Fields(getAttr(e.n, "class")), class)
}

// Text approximates innerText: visible text nodes, whitespace collapsed.
// Script, style and noscript content is skipped.
func (e *Element) Text() string {
	return collapse(collectText(e.n))
}

// Value returns the form value of input, textarea and select elements and
// falls back to Text for anything else. Textarea content keeps its line
// breaks; only the outer whitespace is trimmed.
func (e *Element) Value() string {
	switch e.n.DataAtom {
	case atom.Input:
		return strings.TrimSpace(getAttr(e.n, "value"))
	case atom.Textarea:
		return strings.TrimSpace(rawText(e.n))
	case atom.Select:
		for _, opt := range e.QueryAll("option") {
			if opt.HasAttr("selected") {
				if v, ok := lookupAttr(opt.n, "value"); ok {
					return strings.TrimSpace(v)
				}
				return opt.Text()
			}
		}
		return ""
	}
	return e.Text()
}

// Query returns the first descendant matching sel, nil if none or if sel
// does not compile.
func (e *Element) Query(sel string) *Element {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	var found *html.Node
	walkElements(e.n, func(n *html.Node) bool {
		if s.Match(n) {
			found = n
			return false
		}
		return true
	})
	return Wrap(found)
}

// QueryAll returns all descendants matching sel in document order.
func (e *Element) QueryAll(sel string) []*Element {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	var out []*Element
	walkElements(e.n, func(n *html.Node) bool {
		if s.Match(n) {
			out = append(out, &Element{n: n})
		}
		return true
	})
	return out
}

// Matches reports whether the element itself matches sel.
func (e *Element) Matches(sel string) bool {
	s, err := Compile(sel)
	if err != nil {
		return false
	}
	return s.Match(e.n)
}

// Closest returns the nearest ancestor-or-self matching sel.
func (e *Element) Closest(sel string) *Element {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	for n := e.n; n != nil; n = n.Parent {
		if s.Match(n) {
			return &Element{n: n}
		}
	}
	return nil
}

// Parent returns the parent element, nil at the top.
func (e *Element) Parent() *Element { return Wrap(parentElement(e.n)) }

// NextElement returns the next element sibling (nextElementSibling).
func (e *Element) NextElement() *Element {
	for s := e.n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return &Element{n: s}
		}
	}
	return nil
}

// Children returns the element children.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{n: c})
		}
	}
	return out
}

// walkElements visits element descendants of root (excluding root) in
// document order until fn returns false.
func walkElements(root *html.Node, fn func(*html.Node) bool) {
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				if !fn(c) {
					return false
				}
			}
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(root)
}

func parentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// collectText gathers visible text nodes separated by spaces.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// rawText concatenates text node data verbatim.
func rawText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
