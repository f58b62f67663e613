// CLAUDE:SUMMARY CSS selector subset compiled once and matched right-to-left against x/net/html element trees.
package dom

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector. Supported subset:
//   - tag, *, #id, .class (repeatable), combinations such as "td.val"
//   - [attr], [attr=v], [attr*=v], [attr^=v], [attr$=v], [attr~=v]; values may be quoted
//   - descendant (space) and child (>) combinators
//   - selector groups separated by commas
type Selector struct {
	src    string
	groups []complexSelector
}

// complexSelector is a chain of compounds, stored left to right.
// combinators[i] joins compounds[i] and compounds[i+1].
type complexSelector struct {
	compounds   []compound
	combinators []byte // ' ' descendant, '>' child
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	key string
	op  string // "", "=", "*=", "^=", "$=", "~="
	val string
}

var cache sync.Map // string -> *Selector

// Compile parses a selector string.
func Compile(src string) (*Selector, error) {
	if v, ok := cache.Load(src); ok {
		return v.(*Selector), nil
	}
	s := &Selector{src: src}
	for _, part := range splitTopLevel(src, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("dom: empty selector group in %q", src)
		}
		cs, err := parseComplex(part)
		if err != nil {
			return nil, fmt.Errorf("dom: selector %q: %w", src, err)
		}
		s.groups = append(s.groups, cs)
	}
	if len(s.groups) == 0 {
		return nil, fmt.Errorf("dom: empty selector")
	}
	cache.Store(src, s)
	return s, nil
}

// MustCompile is Compile that panics on error. For package-level selectors.
func MustCompile(src string) *Selector {
	s, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the source text.
func (s *Selector) String() string { return s.src }

// Match reports whether n matches any group of the selector.
func (s *Selector) Match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for i := range s.groups {
		g := &s.groups[i]
		if matchChain(n, g, len(g.compounds)-1) {
			return true
		}
	}
	return false
}

// matchChain matches compounds[0..i] with n matching compounds[i].
func matchChain(n *html.Node, g *complexSelector, i int) bool {
	if !g.compounds[i].matches(n) {
		return false
	}
	if i == 0 {
		return true
	}
	switch g.combinators[i-1] {
	case '>':
		p := parentElement(n)
		return p != nil && matchChain(p, g, i-1)
	default:
		for p := parentElement(n); p != nil; p = parentElement(p) {
			if matchChain(p, g, i-1) {
				return true
			}
		}
		return false
	}
}

func (c *compound) matches(n *html.Node) bool {
	if c.tag != "" && c.tag != "*" && n.Data != c.tag {
		return false
	}
	if c.id != "" && getAttr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		val, ok := lookupAttr(n, a.key)
		if !ok {
			return false
		}
		switch a.op {
		case "":
		case "=":
			if val != a.val {
				return false
			}
		case "*=":
			if a.val == "" || !strings.Contains(val, a.val) {
				return false
			}
		case "^=":
			if a.val == "" || !strings.HasPrefix(val, a.val) {
				return false
			}
		case "$=":
			if a.val == "" || !strings.HasSuffix(val, a.val) {
				return false
			}
		case "~=":
			if !contains(strings.Fields(val), a.val) {
				return false
			}
		}
	}
	return true
}

func parseComplex(src string) (complexSelector, error) {
	var cs complexSelector
	var cur strings.Builder
	pendingComb := byte(0)
	depth := 0
	quote := byte(0)

	flush := func() error {
		if cur.Len() == 0 {
			return nil
		}
		c, err := parseCompound(cur.String())
		if err != nil {
			return err
		}
		if len(cs.compounds) > 0 {
			comb := pendingComb
			if comb == 0 {
				comb = ' '
			}
			cs.combinators = append(cs.combinators, comb)
		} else if pendingComb == '>' {
			return fmt.Errorf("leading combinator")
		}
		cs.compounds = append(cs.compounds, c)
		cur.Reset()
		pendingComb = 0
		return nil
	}

	for i := 0; i < len(src); i++ {
		ch := src[i]
		switch {
		case quote != 0:
			cur.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
			cur.WriteByte(ch)
		case ch == '[':
			depth++
			cur.WriteByte(ch)
		case ch == ']':
			depth--
			cur.WriteByte(ch)
		case depth == 0 && (ch == ' ' || ch == '\t' || ch == '\n'):
			if err := flush(); err != nil {
				return cs, err
			}
		case depth == 0 && ch == '>':
			if err := flush(); err != nil {
				return cs, err
			}
			pendingComb = '>'
		default:
			cur.WriteByte(ch)
		}
	}
	if quote != 0 || depth != 0 {
		return cs, fmt.Errorf("unbalanced brackets or quotes")
	}
	if err := flush(); err != nil {
		return cs, err
	}
	if pendingComb != 0 {
		return cs, fmt.Errorf("trailing combinator")
	}
	if len(cs.compounds) == 0 {
		return cs, fmt.Errorf("empty selector")
	}
	return cs, nil
}

// parseCompound parses "tag#id.class[attr=val]" style compounds.
func parseCompound(src string) (compound, error) {
	var c compound
	i := 0
	readIdent := func() string {
		start := i
		for i < len(src) && src[i] != '#' && src[i] != '.' && src[i] != '[' {
			i++
		}
		return src[start:i]
	}

	c.tag = strings.ToLower(readIdent())
	for i < len(src) {
		switch src[i] {
		case '#':
			i++
			c.id = readIdent()
			if c.id == "" {
				return c, fmt.Errorf("empty id in %q", src)
			}
		case '.':
			i++
			cls := readIdent()
			if cls == "" {
				return c, fmt.Errorf("empty class in %q", src)
			}
			c.classes = append(c.classes, cls)
		case '[':
			end := closingBracket(src, i)
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute in %q", src)
			}
			a, err := parseAttr(src[i+1 : end])
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, a)
			i = end + 1
		default:
			return c, fmt.Errorf("unexpected %q in %q", src[i], src)
		}
	}
	return c, nil
}

func parseAttr(body string) (attrMatch, error) {
	for _, op := range []string{"*=", "^=", "$=", "~=", "="} {
		if idx := strings.Index(body, op); idx >= 0 {
			key := strings.TrimSpace(body[:idx])
			val := strings.TrimSpace(body[idx+len(op):])
			val = strings.Trim(val, `"'`)
			if key == "" {
				return attrMatch{}, fmt.Errorf("empty attribute name in [%s]", body)
			}
			return attrMatch{key: strings.ToLower(key), op: op, val: val}, nil
		}
	}
	key := strings.TrimSpace(body)
	if key == "" {
		return attrMatch{}, fmt.Errorf("empty attribute selector")
	}
	return attrMatch{key: strings.ToLower(key)}, nil
}

func closingBracket(s string, open int) int {
	quote := byte(0)
	for i := open + 1; i < len(s); i++ {
		switch {
		case quote != 0:
			if s[i] == quote {
				quote = 0
			}
		case s[i] == '"' || s[i] == '\'':
			quote = s[i]
		case s[i] == ']':
			return i
		}
	}
	return -1
}

// splitTopLevel splits on sep outside brackets and quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	quote := byte(0)
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
