package selectors

// Logical field names used by the scraper and the study-list extractor.
const (
	FieldSelectedTab = "nav.selected_tab"
	FieldStudyTitle  = "study.title"
	FieldPageMarker  = "page.marker"

	FieldHeaderPatientName = "header.patient_name"
	FieldHeaderDOB         = "header.dob"
	FieldHeaderStudyDate   = "header.study_date"

	FieldReportPatientName     = "report.patient_name"
	FieldReportDOB             = "report.dob"
	FieldReportStudyDate       = "report.study_date"
	FieldReportSummaryFindings = "report.summary_findings"
	FieldReportConclusionPara  = "report.conclusion_paragraph"
	FieldReportMeasurementRow  = "report.measurement_row"
	FieldReportMeasurementCell = "report.measurement_cell"

	FieldWorksheetRow        = "worksheet.measurement_row"
	FieldWorksheetLabelCell  = "worksheet.label_cell"
	FieldWorksheetValueInput = "worksheet.value_input"
	FieldWorksheetUnits      = "worksheet.units"

	FieldFindingTextarea  = "conclusion.finding_textarea"
	FieldConclusionSet    = "conclusion.fieldset"
	FieldConclusionLegend = "conclusion.legend"
	FieldFieldsetTextarea = "conclusion.fieldset_textarea"

	FieldClipsFrame = "clips.frame"

	FieldStudyLink     = "studylist.link"
	FieldStudyRow      = "studylist.row"
	FieldStudyHintCell = "studylist.hint_cell"
)

// DefaultVersion is the revision of the built-in UltraLinq table.
const DefaultVersion = "ultralinq/2"

var defaultRegistry = MustNew(DefaultVersion, ultralinqRules()...)

// Default returns the built-in UltraLinq selector table.
func Default() *Registry { return defaultRegistry }

func one(field, element string) Rule {
	return Rule{Field: field, Strategies: []Strategy{{Element: element}}}
}

func ultralinqRules() []Rule {
	return []Rule{
		one(FieldSelectedTab, "#studytabs .yui-nav .selected"),
		{Field: FieldStudyTitle, Strategies: []Strategy{
			{Element: "#report2 .h0"},
			{Element: "#studyTypeLink"},
			{Element: ".study-title"},
		}},
		// Any of these containers means the page is a study page.
		{Field: FieldPageMarker, Strategies: []Strategy{
			{Element: "#studytabs"},
			{Element: "#studyinfo"},
			{Element: "#worksheet2content"},
			{Element: "#Echo_WorksheetSave"},
			{Element: "#report2table"},
			{Element: "#html5-embed"},
		}},

		// Info bar shown above the Worksheet and Clips & Stills views.
		{Field: FieldHeaderPatientName, Strategies: []Strategy{
			{Scope: "#studyinfo", Element: "h1"},
			{Element: ".patient-name"},
		}},
		{Field: FieldHeaderDOB, Strategies: []Strategy{
			{Scope: "#studyinfo", Element: "td.lab", Label: "DOB:"},
			{Element: ".info-label", Label: "DOB:"},
		}},
		{Field: FieldHeaderStudyDate, Strategies: []Strategy{
			{Scope: "#studyinfo", Element: "td.lab", Label: "Study Date:"},
			{Element: ".info-label", Label: "Study Date:"},
		}},

		// Report view.
		{Field: FieldReportPatientName, Strategies: []Strategy{
			{Scope: "#report2table", Element: "td.k", Label: "Patient Name:"},
		}},
		{Field: FieldReportDOB, Strategies: []Strategy{
			{Scope: "#report2table", Element: "td.k", Label: "DOB:"},
		}},
		{Field: FieldReportStudyDate, Strategies: []Strategy{
			{Scope: "#report2table", Element: "td.k", Label: "Date of Service:"},
		}},
		{Field: FieldReportSummaryFindings, Strategies: []Strategy{
			{Scope: "#report2table", Element: "td.k", Label: "Summary Findings:"},
		}},
		{Field: FieldReportConclusionPara, Strategies: []Strategy{
			{Scope: "#report2table", Element: "td.conclusionsv p.rp"},
			{Element: "td.conclusionsv p.rp"},
		}},
		{Field: FieldReportMeasurementRow, Strategies: []Strategy{
			{Scope: "#report2table", Element: "table.includeauto tr"},
		}},
		one(FieldReportMeasurementCell, "td"),

		// Worksheet view.
		{Field: FieldWorksheetRow, Strategies: []Strategy{
			{Scope: "#worksheet2content", Element: "tr"},
			{Element: "tr"},
		}},
		one(FieldWorksheetLabelCell, "td.k"),
		one(FieldWorksheetValueInput, "td.val input[type='text']"),
		one(FieldWorksheetUnits, ".units"),

		{Field: FieldFindingTextarea, Strategies: []Strategy{
			{Element: "textarea.findingta"},
			{Element: `textarea[name*="conclusion"]`},
			{Element: `textarea[name*="impression"]`},
		}},
		one(FieldConclusionSet, "fieldset"),
		one(FieldConclusionLegend, "legend"),
		{Field: FieldFieldsetTextarea, Strategies: []Strategy{
			{Element: "textarea.findingta"},
			{Element: "textarea"},
		}},

		one(FieldClipsFrame, "#html5-embed"),

		one(FieldStudyLink, `a[href*="study"], a[href*="report"]`),
		{Field: FieldStudyRow, Strategies: []Strategy{
			{Element: "tr"},
			{Element: ".row"},
			{Element: ".study-row"},
		}},
		one(FieldStudyHintCell, "td, span, div"),
	}
}
