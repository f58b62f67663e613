// Package bounded holds the I/O guards used at the edges of sonodraft:
// capped reads of remote responses and confinement of artifact paths.
package bounded

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// MaxResponseBody is the default cap for report-service responses (10 MiB).
const MaxResponseBody int64 = 10 << 20

// ErrTooLarge is returned when a read exceeds its cap.
var ErrTooLarge = errors.New("bounded: response too large")

// ErrPathTraversal is returned when a name escapes its base directory.
var ErrPathTraversal = errors.New("bounded: path traversal detected")

// ReadAll reads at most maxBytes from r.
func ReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// SafePath joins base and name, refusing any result outside base.
func SafePath(base, name string) (string, error) {
	if name == "" || strings.Contains(name, "..") {
		return "", ErrPathTraversal
	}
	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, filepath.Clean("/"+name))
	if !strings.HasPrefix(joined, cleanBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return joined, nil
}

// FileComponent turns free text (a patient name) into a file-name segment:
// whitespace becomes "_" and characters outside [A-Za-z0-9_.-] are removed.
// Repeated dots collapse to one, so the result always passes SafePath.
// Empty input yields "unknown".
func FileComponent(s string) string {
	var sb strings.Builder
	pendingSep := false
	var last rune
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			pendingSep = sb.Len() > 0
		case isNameChar(r):
			if pendingSep {
				sb.WriteByte('_')
				pendingSep = false
				last = '_'
			}
			if r == '.' && last == '.' {
				continue
			}
			sb.WriteRune(r)
			last = r
		}
	}
	out := strings.Trim(sb.String(), ".")
	if out == "" {
		return "unknown"
	}
	return out
}

func isNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}
