// Package selectors is the versioned table of lookup strategies for every
// logical field the scraper reads. The table is data only: resolution order
// and fallback policy live in package resolve.
package selectors

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/sonodraft/dom"
)

// Strategy is one way of locating a field.
//
// Scope narrows the search to the first element matching it (empty = whole
// document). Element selects candidates inside the scope. When Label is set,
// only candidates whose text begins with Label are kept and the value is read
// from the candidate's next element sibling.
type Strategy struct {
	Scope   string `yaml:"scope,omitempty" json:"scope,omitempty"`
	Element string `yaml:"element" json:"element"`
	Label   string `yaml:"label,omitempty" json:"label,omitempty"`
}

// Rule is the ordered strategy list for one logical field.
type Rule struct {
	Field      string     `yaml:"field" json:"field"`
	Strategies []Strategy `yaml:"strategies" json:"strategies"`
}

// Registry is an immutable field → rule table.
type Registry struct {
	version string
	rules   map[string]Rule
}

// New builds a registry. Every rule needs at least one strategy and every
// selector must compile. Rules are copied; later mutation of the arguments
// has no effect.
func New(version string, rules ...Rule) (*Registry, error) {
	r := &Registry{version: version, rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		if rule.Field == "" {
			return nil, fmt.Errorf("selectors: rule without field name")
		}
		if len(rule.Strategies) == 0 {
			return nil, fmt.Errorf("selectors: field %q has no strategies", rule.Field)
		}
		if _, dup := r.rules[rule.Field]; dup {
			return nil, fmt.Errorf("selectors: field %q declared twice", rule.Field)
		}
		for i, s := range rule.Strategies {
			if s.Element == "" {
				return nil, fmt.Errorf("selectors: field %q strategy %d: empty element selector", rule.Field, i)
			}
			if _, err := dom.Compile(s.Element); err != nil {
				return nil, fmt.Errorf("selectors: field %q strategy %d: %w", rule.Field, i, err)
			}
			if s.Scope != "" {
				if _, err := dom.Compile(s.Scope); err != nil {
					return nil, fmt.Errorf("selectors: field %q strategy %d scope: %w", rule.Field, i, err)
				}
			}
		}
		cp := Rule{Field: rule.Field, Strategies: append([]Strategy(nil), rule.Strategies...)}
		r.rules[rule.Field] = cp
	}
	return r, nil
}

// MustNew is New that panics. For the built-in table.
func MustNew(version string, rules ...Rule) *Registry {
	r, err := New(version, rules...)
	if err != nil {
		panic(err)
	}
	return r
}

// Version identifies the table revision.
func (r *Registry) Version() string { return r.version }

// Lookup returns the rule for field. An unknown field is a programming
// error and panics.
func (r *Registry) Lookup(field string) Rule {
	rule, ok := r.rules[field]
	if !ok {
		panic(fmt.Sprintf("selectors: unknown field %q (registry %s)", field, r.version))
	}
	return Rule{Field: rule.Field, Strategies: append([]Strategy(nil), rule.Strategies...)}
}

// Has reports whether field is declared.
func (r *Registry) Has(field string) bool {
	_, ok := r.rules[field]
	return ok
}

// Fields returns the declared field names, sorted.
func (r *Registry) Fields() []string {
	out := make([]string, 0, len(r.rules))
	for f := range r.rules {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// rulesInOrder returns all rules sorted by field name.
func (r *Registry) rulesInOrder() []Rule {
	out := make([]Rule, 0, len(r.rules))
	for _, f := range r.Fields() {
		out = append(out, r.Lookup(f))
	}
	return out
}
