// Package studylist finds the studies linked from a patient's study list.
package studylist

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/hazyhaar/sonodraft/dom"
	"github.com/hazyhaar/sonodraft/resolve"
	"github.com/hazyhaar/sonodraft/selectors"
	"github.com/hazyhaar/sonodraft/study"
)

var datePattern = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)

var typeKeywords = []string{"Carotid", "Aorta", "Arterial", "Venous"}

// Extractor scans study-list pages.
type Extractor struct {
	res *resolve.Resolver
}

// New creates an Extractor. A nil resolver uses the built-in selectors.
func New(res *resolve.Resolver) *Extractor {
	if res == nil {
		res = resolve.New(nil)
	}
	return &Extractor{res: res}
}

// Extract returns one reference per distinct study URL, in order of first
// appearance. When a URL repeats, the hints of its last row are kept.
// An empty result is not an error.
func (e *Extractor) Extract(doc *dom.Document) []study.StudyReference {
	base, _ := url.Parse(doc.URL())

	var order []string
	byURL := make(map[string]study.StudyReference)
	for _, a := range e.res.Elements(selectors.FieldStudyLink, doc.Root()) {
		href := resolveHref(base, a.Attr("href"))
		if !isStudyURL(href) {
			continue
		}
		ref := study.StudyReference{URL: href, DateHint: study.Unknown, TypeHint: study.Unknown}
		if row := e.container(a); row != nil {
			ref.DateHint, ref.TypeHint = e.hints(row)
		}
		if _, seen := byURL[href]; !seen {
			order = append(order, href)
		}
		byURL[href] = ref
	}

	refs := make([]study.StudyReference, 0, len(order))
	for _, u := range order {
		refs = append(refs, byURL[u])
	}
	return refs
}

func (e *Extractor) container(a *dom.Element) *dom.Element {
	if row := e.res.Closest(selectors.FieldStudyRow, a); row != nil {
		return row
	}
	return a.Parent()
}

// hints scans the row's cells; the last cell carrying a date or a type
// keyword wins.
func (e *Extractor) hints(row *dom.Element) (date, kind string) {
	date, kind = study.Unknown, study.Unknown
	for _, cell := range e.res.Elements(selectors.FieldStudyHintCell, row) {
		text := cell.Text()
		if text == "" {
			continue
		}
		if m := datePattern.FindString(text); m != "" {
			date = m
		}
		for _, kw := range typeKeywords {
			if strings.Contains(text, kw) {
				kind = strings.TrimSpace(text)
				break
			}
		}
	}
	return date, kind
}

func isStudyURL(href string) bool {
	return strings.Contains(href, "/study/") || strings.Contains(href, "studyid=")
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil || base.Scheme == "" {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
