// Package resolve turns logical field names into values by walking the
// registry's strategies in declared order. The first strategy that yields a
// non-empty value wins; exhausting every strategy is not an error.
package resolve

import (
	"strings"

	"github.com/hazyhaar/sonodraft/dom"
	"github.com/hazyhaar/sonodraft/selectors"
)

// Resolver resolves fields against a registry.
type Resolver struct {
	reg *selectors.Registry
}

// New creates a Resolver. A nil registry means selectors.Default().
func New(reg *selectors.Registry) *Resolver {
	if reg == nil {
		reg = selectors.Default()
	}
	return &Resolver{reg: reg}
}

// Registry returns the table in use.
func (r *Resolver) Registry() *selectors.Registry { return r.reg }

// Resolve returns the first non-empty value for field under root.
func (r *Resolver) Resolve(field string, root *dom.Element) (string, bool) {
	for _, s := range r.reg.Lookup(field).Strategies {
		if v := resolveStrategy(s, root); v != "" {
			return v, true
		}
	}
	return "", false
}

// ResolveOr is Resolve with a fallback for the absent case.
func (r *Resolver) ResolveOr(field string, root *dom.Element, fallback string) string {
	if v, ok := r.Resolve(field, root); ok {
		return v
	}
	return fallback
}

// First resolves fields in the given order and returns the first value.
func (r *Resolver) First(root *dom.Element, fields ...string) (string, bool) {
	for _, f := range fields {
		if v, ok := r.Resolve(f, root); ok {
			return v, true
		}
	}
	return "", false
}

// Elements returns the candidates of the first strategy that matches at
// least one element.
func (r *Resolver) Elements(field string, root *dom.Element) []*dom.Element {
	return r.ElementsWhere(field, root, nil)
}

// ElementsWhere is Elements with a filter: a strategy counts only if at
// least one candidate passes keep.
func (r *Resolver) ElementsWhere(field string, root *dom.Element, keep func(*dom.Element) bool) []*dom.Element {
	for _, s := range r.reg.Lookup(field).Strategies {
		scope := scopeOf(s, root)
		if scope == nil {
			continue
		}
		var out []*dom.Element
		for _, el := range scope.QueryAll(s.Element) {
			if keep == nil || keep(el) {
				out = append(out, el)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// Present reports whether any strategy of field matches an element.
func (r *Resolver) Present(field string, root *dom.Element) bool {
	for _, s := range r.reg.Lookup(field).Strategies {
		if scope := scopeOf(s, root); scope != nil && scope.Query(s.Element) != nil {
			return true
		}
	}
	return false
}

// Matches reports whether el itself matches any strategy element selector
// of field. Scopes are ignored.
func (r *Resolver) Matches(field string, el *dom.Element) bool {
	if el == nil {
		return false
	}
	for _, s := range r.reg.Lookup(field).Strategies {
		if el.Matches(s.Element) {
			return true
		}
	}
	return false
}

// Closest returns the nearest ancestor-or-self of el matching field's
// strategies, tried in order.
func (r *Resolver) Closest(field string, el *dom.Element) *dom.Element {
	if el == nil {
		return nil
	}
	for _, s := range r.reg.Lookup(field).Strategies {
		if c := el.Closest(s.Element); c != nil {
			return c
		}
	}
	return nil
}

func scopeOf(s selectors.Strategy, root *dom.Element) *dom.Element {
	if s.Scope == "" {
		return root
	}
	return root.Query(s.Scope)
}

func resolveStrategy(s selectors.Strategy, root *dom.Element) string {
	scope := scopeOf(s, root)
	if scope == nil {
		return ""
	}
	candidates := scope.QueryAll(s.Element)
	if s.Label == "" {
		if len(candidates) == 0 {
			return ""
		}
		return candidates[0].Value()
	}
	for _, c := range candidates {
		if !strings.HasPrefix(c.Text(), s.Label) {
			continue
		}
		next := c.NextElement()
		if next == nil {
			continue
		}
		if v := next.Value(); v != "" {
			return v
		}
	}
	return ""
}
