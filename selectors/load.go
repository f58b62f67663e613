// CLAUDE:SUMMARY Reads YAML selector overrides and merges them over the built-in table.
package selectors

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML shape of a selector override file:
//
//	version: ultralinq/2-site-a
//	rules:
//	  - field: header.dob
//	    strategies:
//	      - {scope: "#studyinfo", element: "td.lab", label: "DOB:"}
type File struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Load reads overrides from r and merges them over base: a rule in the file
// replaces the base rule of the same field, other base rules are kept.
func Load(r io.Reader, base *Registry) (*Registry, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("selectors: decode: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("selectors: override file has no version")
	}

	merged := make(map[string]Rule)
	if base != nil {
		for _, rule := range base.rulesInOrder() {
			merged[rule.Field] = rule
		}
	}
	seen := make(map[string]bool, len(f.Rules))
	for _, rule := range f.Rules {
		if seen[rule.Field] {
			return nil, fmt.Errorf("selectors: field %q declared twice", rule.Field)
		}
		seen[rule.Field] = true
		merged[rule.Field] = rule
	}

	rules := make([]Rule, 0, len(merged))
	for _, rule := range merged {
		rules = append(rules, rule)
	}
	return New(f.Version, rules...)
}

// LoadFile is Load from a file path.
func LoadFile(path string, base *Registry) (*Registry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Load(fh, base)
}
