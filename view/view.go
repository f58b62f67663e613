// Package view classifies the active UltraLinq tab.
package view

import (
	"fmt"
	"strings"
)

// Kind is one of the mutually exclusive study layouts.
type Kind int

const (
	Unrecognized Kind = iota
	Report
	Worksheet
	ClipsAndStills
)

var names = [...]string{
	Unrecognized:   "unrecognized",
	Report:         "report",
	Worksheet:      "worksheet",
	ClipsAndStills: "clips_and_stills",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(names) {
		return fmt.Sprintf("view.Kind(%d)", int(k))
	}
	return names[k]
}

// MarshalText renders the kind as its snake_case name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText accepts the names produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, n := range names {
		if n == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("view: unknown kind %q", b)
}

// Classify maps a selected-tab label to a Kind. "Clips & Stills" is tested
// first since its label may also mention the report.
func Classify(label string) Kind {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "":
		return Unrecognized
	case strings.Contains(l, "clips & stills"), strings.Contains(l, "clips &amp; stills"):
		return ClipsAndStills
	case strings.Contains(l, "report"):
		return Report
	case strings.Contains(l, "worksheet"):
		return Worksheet
	}
	return Unrecognized
}
