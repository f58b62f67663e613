package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if len(id) != 36 || len(strings.Split(id, "-")) != 5 {
		t.Fatalf("UUIDv7: unexpected format %q", id)
	}
}

func TestDefault_PrefixedAndSortable(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	prev := ""
	for i := 0; i < 100; i++ {
		id := New()
		if !strings.HasPrefix(id, "run_") {
			t.Fatalf("missing prefix: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate at iteration %d", i)
		}
		seen[id] = struct{}{}
		if prev != "" && id < prev {
			t.Fatalf("not time-ordered: %q after %q", id, prev)
		}
		prev = id
	}
}

func TestParse(t *testing.T) {
	id := New()
	u, err := Parse(id)
	if err != nil {
		t.Fatalf("Parse(%q): %v", id, err)
	}
	if u.Version() != 7 {
		t.Errorf("version: %d", u.Version())
	}
	if _, err := Parse("run_not-a-uuid"); err == nil {
		t.Error("expected error")
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("t")
	if a, b := gen(), gen(); a != "t1" || b != "t2" {
		t.Errorf("got %s, %s", a, b)
	}
}
