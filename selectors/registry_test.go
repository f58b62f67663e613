package selectors

import (
	"strings"
	"testing"
)

func TestDefault_EveryFieldHasStrategies(t *testing.T) {
	reg := Default()
	if reg.Version() != DefaultVersion {
		t.Errorf("version: got %q", reg.Version())
	}
	for _, f := range reg.Fields() {
		if len(reg.Lookup(f).Strategies) == 0 {
			t.Errorf("field %s has no strategies", f)
		}
	}
	for _, f := range []string{FieldHeaderDOB, FieldWorksheetRow, FieldStudyLink, FieldPageMarker} {
		if !reg.Has(f) {
			t.Errorf("missing field %s", f)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	cases := []struct {
		name  string
		rules []Rule
	}{
		{"no strategies", []Rule{{Field: "a"}}},
		{"empty element", []Rule{{Field: "a", Strategies: []Strategy{{Scope: "#x"}}}}},
		{"bad selector", []Rule{{Field: "a", Strategies: []Strategy{{Element: "a["}}}}},
		{"bad scope", []Rule{{Field: "a", Strategies: []Strategy{{Scope: "> x", Element: "td"}}}}},
		{"duplicate", []Rule{one("a", "td"), one("a", "th")}},
		{"no name", []Rule{{Strategies: []Strategy{{Element: "td"}}}}},
	}
	for _, tc := range cases {
		if _, err := New("v", tc.rules...); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestRegistry_IsImmutable(t *testing.T) {
	rules := []Rule{{Field: "a", Strategies: []Strategy{{Element: "td"}}}}
	reg := MustNew("v", rules...)
	rules[0].Strategies[0].Element = "th"

	got := reg.Lookup("a")
	if got.Strategies[0].Element != "td" {
		t.Fatal("registry picked up caller mutation")
	}
	got.Strategies[0].Element = "div"
	if reg.Lookup("a").Strategies[0].Element != "td" {
		t.Fatal("registry picked up mutation of a returned rule")
	}
}

func TestLookup_UnknownFieldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown field")
		}
	}()
	Default().Lookup("no.such.field")
}

func TestLoad_MergesOverBase(t *testing.T) {
	src := `
version: ultralinq/2-site-a
rules:
  - field: header.dob
    strategies:
      - scope: "#patientbar"
        element: "span.lbl"
        label: "Born:"
  - field: site.extra
    strategies:
      - element: "#extra"
`
	reg, err := Load(strings.NewReader(src), Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.Version() != "ultralinq/2-site-a" {
		t.Errorf("version: got %q", reg.Version())
	}
	dob := reg.Lookup(FieldHeaderDOB)
	if len(dob.Strategies) != 1 || dob.Strategies[0].Label != "Born:" {
		t.Errorf("override not applied: %+v", dob)
	}
	if !reg.Has("site.extra") {
		t.Error("new field missing")
	}
	if len(reg.Lookup(FieldStudyTitle).Strategies) != 3 {
		t.Error("base rule lost")
	}
	if Default().Lookup(FieldHeaderDOB).Strategies[0].Label != "DOB:" {
		t.Error("Load mutated the base registry")
	}
}

func TestLoad_Errors(t *testing.T) {
	for name, src := range map[string]string{
		"no version":    "rules: []",
		"unknown key":   "version: v\nrulez: []",
		"bad selector":  "version: v\nrules:\n  - field: x\n    strategies:\n      - element: 'a['",
		"duplicate key": "version: v\nrules:\n  - field: x\n    strategies: [{element: td}]\n  - field: x\n    strategies: [{element: th}]",
	} {
		if _, err := Load(strings.NewReader(src), Default()); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
