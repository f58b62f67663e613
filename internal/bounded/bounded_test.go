package bounded

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadAll(t *testing.T) {
	data, err := ReadAll(strings.NewReader("hello"), 5)
	if err != nil || string(data) != "hello" {
		t.Fatalf("at limit: %q, %v", data, err)
	}
	if _, err := ReadAll(strings.NewReader("hello!"), 5); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("over limit: expected ErrTooLarge, got %v", err)
	}
}

func TestSafePath(t *testing.T) {
	base := t.TempDir()
	got, err := SafePath(base, "report_DOE_carotid_1.txt")
	if err != nil {
		t.Fatalf("SafePath: %v", err)
	}
	if got != filepath.Join(base, "report_DOE_carotid_1.txt") {
		t.Errorf("got %s", got)
	}
	for _, bad := range []string{"", "../x", "a/../../x", ".."} {
		if _, err := SafePath(base, bad); !errors.Is(err, ErrPathTraversal) {
			t.Errorf("SafePath(%q): expected ErrPathTraversal, got %v", bad, err)
		}
	}
}

func TestFileComponent(t *testing.T) {
	cases := map[string]string{
		"DOE, JANE":      "DOE_JANE",
		"  Mary  Ann  ":  "Mary_Ann",
		"../../etc":      "etc",
		"":               "unknown",
		"O'Brien Pat":    "OBrien_Pat",
		"N/A":            "NA",
		"DOE, J.. A":     "DOE_J._A",
		"a...b":          "a.b",
	}
	for in, want := range cases {
		if got := FileComponent(in); got != want {
			t.Errorf("FileComponent(%q) = %q, want %q", in, got, want)
		}
	}
}
