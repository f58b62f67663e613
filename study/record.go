// Package study holds the canonical records produced by the scraper and
// consumed by the orchestrator and the report client.
package study

import (
	"fmt"
	"strings"
)

// NotAvailable is rendered for any patient field the resolver could not find.
const NotAvailable = "N/A"

// Unknown is the hint value for study references without a date or type.
const Unknown = "Unknown"

// ConclusionSeparator joins multiple non-empty conclusion sections.
const ConclusionSeparator = "\n\n---\n\n"

// StudyType is inferred per page from the study title.
type StudyType string

const (
	Carotid       StudyType = "carotid"
	Aorta         StudyType = "aorta"
	LowerArterial StudyType = "lower_arterial"
	Venous        StudyType = "venous"
	UnknownType   StudyType = "unknown"
)

// studyTypeKeywords is in declaration order; the first match wins.
var studyTypeKeywords = []struct {
	typ      StudyType
	keywords []string
}{
	{Carotid, []string{"carotid"}},
	{Aorta, []string{"aorta"}},
	{LowerArterial, []string{"arterial lower", "lower extremity"}},
	{Venous, []string{"venous"}},
}

// InferStudyType maps a title to a StudyType by case-insensitive substring.
func InferStudyType(title string) StudyType {
	lower := strings.ToLower(title)
	for _, st := range studyTypeKeywords {
		for _, kw := range st.keywords {
			if strings.Contains(lower, kw) {
				return st.typ
			}
		}
	}
	return UnknownType
}

// PatientInfo is the header block of a study. Fields are never empty;
// missing values carry NotAvailable.
type PatientInfo struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dob"`
	StudyDate   string `json:"studyDate"`
}

// Image is one diagnostic image, base64 encoded.
type Image struct {
	Data      string `json:"data"`
	MediaType string `json:"mimeType"`
}

// StudyRecord is the normalized extraction of one study page. It is built
// fresh per page visit and not modified after Scrape returns.
type StudyRecord struct {
	StudyType    StudyType   `json:"studyType"`
	PatientInfo  PatientInfo `json:"patientInfo"`
	Measurements []string    `json:"measurements"`
	Conclusion   string      `json:"conclusion"`
	Images       []Image     `json:"imageData"`
	SourceURL    string      `json:"studyUrl"`

	// View is the layout the record was extracted from (diagnostic only).
	View string `json:"view,omitempty"`

	// ListedDate is the date hint from the study list, set on the copy the
	// orchestrator keeps in a PatientHistory.
	ListedDate string `json:"-"`
}

// EffectiveDate is the study-list date when one was listed, otherwise the
// date shown on the study page.
func (r StudyRecord) EffectiveDate() string {
	if r.ListedDate != "" && r.ListedDate != Unknown {
		return r.ListedDate
	}
	return r.PatientInfo.StudyDate
}

// Summary is a one-line description for logs and operator prompts.
func (r StudyRecord) Summary() string {
	return fmt.Sprintf("%s %s: %d measurements, %d images, conclusion %d chars",
		r.StudyType, r.EffectiveDate(), len(r.Measurements), len(r.Images), len(r.Conclusion))
}

// StudyReference points at one study on a study-list page.
type StudyReference struct {
	URL      string `json:"url"`
	DateHint string `json:"date"`
	TypeHint string `json:"type"`
}

// Clip is one entry of the image viewer's clip collection: either a remote
// URL or an already encoded payload.
type Clip struct {
	ID        string `json:"id"`
	URL       string `json:"furl,omitempty"`
	Data      string `json:"b64,omitempty"`
	MediaType string `json:"mime,omitempty"`
}

// Resource is a fetched binary.
type Resource struct {
	Body      []byte
	MediaType string
}
