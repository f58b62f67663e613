package scrape

import (
	"strings"

	"github.com/hazyhaar/sonodraft/dom"
	"github.com/hazyhaar/sonodraft/selectors"
	"github.com/hazyhaar/sonodraft/study"
)

// measurements reads the worksheet rows as "label: value[ units]". Rows with
// an empty value are skipped. Without worksheet rows the report tables are
// read verbatim, one tab-joined line per row.
func (s *Scraper) measurements(root *dom.Element) []string {
	rows := s.res.ElementsWhere(selectors.FieldWorksheetRow, root, func(tr *dom.Element) bool {
		return s.res.Present(selectors.FieldWorksheetLabelCell, tr) &&
			s.res.Present(selectors.FieldWorksheetValueInput, tr)
	})

	out := []string{}
	for _, tr := range rows {
		if line := s.worksheetLine(tr); line != "" {
			out = append(out, line)
		}
	}
	if len(rows) > 0 {
		return out
	}

	for _, tr := range s.res.Elements(selectors.FieldReportMeasurementRow, root) {
		cells := s.res.Elements(selectors.FieldReportMeasurementCell, tr)
		if len(cells) < 2 || !cells[0].HasClass("k") {
			continue
		}
		texts := make([]string, 0, len(cells))
		for _, c := range cells {
			texts = append(texts, c.Text())
		}
		if line := strings.TrimSpace(strings.Join(texts, "\t")); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (s *Scraper) worksheetLine(tr *dom.Element) string {
	labelCell := s.res.Elements(selectors.FieldWorksheetLabelCell, tr)[0]
	input := s.res.Elements(selectors.FieldWorksheetValueInput, tr)[0]

	value := input.Value()
	if value == "" {
		return ""
	}
	label := strings.TrimSpace(strings.Replace(labelCell.Text(), ":", "", 1))

	line := label + ": " + value
	if next := input.NextElement(); next != nil && s.res.Matches(selectors.FieldWorksheetUnits, next) {
		if units := next.Text(); units != "" {
			line += " " + units
		}
	}
	return line
}

// conclusion walks the free-text sources in priority order and returns the
// first non-empty result.
func (s *Scraper) conclusion(root *dom.Element) string {
	var parts []string
	for _, ta := range s.res.ElementsWhere(selectors.FieldFindingTextarea, root, hasValue) {
		parts = append(parts, ta.Value())
	}
	if len(parts) > 0 {
		return strings.Join(parts, study.ConclusionSeparator)
	}

	for _, fs := range s.res.Elements(selectors.FieldConclusionSet, root) {
		legends := s.res.Elements(selectors.FieldConclusionLegend, fs)
		if len(legends) == 0 || !isConclusionLegend(legends[0].Text()) {
			continue
		}
		for _, ta := range s.res.ElementsWhere(selectors.FieldFieldsetTextarea, fs, hasValue) {
			parts = append(parts, ta.Value())
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, study.ConclusionSeparator)
	}

	for _, p := range s.res.ElementsWhere(selectors.FieldReportConclusionPara, root, hasText) {
		parts = append(parts, p.Text())
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}

	v, _ := s.res.Resolve(selectors.FieldReportSummaryFindings, root)
	return v
}

func isConclusionLegend(text string) bool {
	t := strings.TrimSpace(text)
	return strings.EqualFold(t, "Conclusions") || strings.EqualFold(t, "Summary")
}

func hasValue(e *dom.Element) bool { return e.Value() != "" }

func hasText(e *dom.Element) bool { return e.Text() != "" }
