// Package idgen produces the identifiers sonodraft attaches to runs.
//
// Run IDs are UUIDv7 so that event log rows sort by start time.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a deterministic Generator ("<prefix>1", "<prefix>2", ...)
// for tests and dry runs. It is not safe for concurrent use.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// Default is the generator used when none is configured.
var Default Generator = Prefixed("run_", UUIDv7())

// New produces an ID using Default.
func New() string {
	return Default()
}

// Parse validates the UUID part of a run ID, with or without the "run_"
// prefix.
func Parse(id string) (uuid.UUID, error) {
	raw := id
	if len(raw) > 4 && raw[:4] == "run_" {
		raw = raw[4:]
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("idgen: invalid run id %q: %w", id, err)
	}
	return u, nil
}
