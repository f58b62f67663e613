package scrape

import (
	"errors"
	"fmt"
)

// ErrNotAStudyPage matches every *NotAStudyPageError via errors.Is.
var ErrNotAStudyPage = errors.New("scrape: not a study page")

// NotAStudyPageError is returned when none of the study view containers is
// present. It is fatal to a single scrape and skippable in a batch.
type NotAStudyPageError struct {
	URL string
}

func (e *NotAStudyPageError) Error() string {
	if e.URL == "" {
		return "scrape: not a study page"
	}
	return fmt.Sprintf("scrape: not a study page: %s", e.URL)
}

func (e *NotAStudyPageError) Is(target error) bool { return target == ErrNotAStudyPage }

var errEmptyBody = errors.New("scrape: empty response body")
