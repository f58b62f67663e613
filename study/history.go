package study

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// AnalysisType is the operator's choice for a whole longitudinal batch. It
// selects the service's prompt template and is independent of the per-page
// StudyType.
type AnalysisType string

const (
	AnalysisCarotid  AnalysisType = "carotid"
	AnalysisAorta    AnalysisType = "aorta"
	AnalysisLeftLeg  AnalysisType = "left_leg"
	AnalysisRightLeg AnalysisType = "right_leg"
)

// AnalysisTypes is the fixed menu, in prompt order.
var AnalysisTypes = []AnalysisType{AnalysisCarotid, AnalysisAorta, AnalysisLeftLeg, AnalysisRightLeg}

// Label returns the operator-facing name.
func (a AnalysisType) Label() string {
	switch a {
	case AnalysisCarotid:
		return "Carotid"
	case AnalysisAorta:
		return "Aorta"
	case AnalysisLeftLeg:
		return "Left Leg Arterial"
	case AnalysisRightLeg:
		return "Right Leg Arterial"
	}
	return string(a)
}

// Valid reports whether a is one of AnalysisTypes.
func (a AnalysisType) Valid() bool {
	for _, t := range AnalysisTypes {
		if a == t {
			return true
		}
	}
	return false
}

// ParseAnalysisType accepts a menu number ("1".."4") or a type name.
func ParseAnalysisType(s string) (AnalysisType, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(AnalysisTypes) {
		return AnalysisTypes[n-1], nil
	}
	for _, a := range AnalysisTypes {
		if s == string(a) {
			return a, nil
		}
	}
	return "", fmt.Errorf("study: unknown analysis type %q", s)
}

// PatientHistory aggregates the successfully scraped studies of one patient
// in traversal order. Failed studies are absent, never placeholders.
type PatientHistory struct {
	PatientName string        `json:"patientName"`
	StudyType   AnalysisType  `json:"studyType"`
	Studies     []StudyRecord `json:"studies"`
}

// DateRange is the earliest and latest study date.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

var dateShape = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})`)

// ParseStudyDate reads a month/day/year date (2 or 4 digit year) from s.
func ParseStudyDate(s string) (time.Time, bool) {
	m := dateShape.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
		if year > time.Now().Year() {
			year -= 100
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// DateRange returns the earliest and latest parseable study dates, keeping
// the original text of each. Unknown when no date parses.
func (h PatientHistory) DateRange() DateRange {
	var lo, hi time.Time
	var loText, hiText string
	for _, s := range h.Studies {
		text := s.EffectiveDate()
		t, ok := ParseStudyDate(text)
		if !ok {
			continue
		}
		if loText == "" || t.Before(lo) {
			lo, loText = t, text
		}
		if hiText == "" || t.After(hi) {
			hi, hiText = t, text
		}
	}
	if loText == "" {
		return DateRange{Earliest: Unknown, Latest: Unknown}
	}
	return DateRange{Earliest: loText, Latest: hiText}
}
