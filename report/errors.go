package report

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Unreachable means check connectivity; rejected
// means the service answered and refused.
var (
	ErrServiceUnreachable = errors.New("report: service unreachable")
	ErrServiceRejected    = errors.New("report: service rejected request")
)

// UnreachableError is returned when the transport fails before a complete
// response is read.
type UnreachableError struct {
	URL   string
	Cause error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("report: service unreachable at %s: %v", e.URL, e.Cause)
}

func (e *UnreachableError) Unwrap() error { return e.Cause }

func (e *UnreachableError) Is(target error) bool { return target == ErrServiceUnreachable }

// RejectedError carries the service's own message for a non-success answer.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("report: service rejected request (status %d): %s", e.Status, e.Message)
}

func (e *RejectedError) Is(target error) bool { return target == ErrServiceRejected }
