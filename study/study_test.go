package study

import (
	"encoding/json"
	"testing"
)

func TestInferStudyType(t *testing.T) {
	cases := map[string]StudyType{
		"Carotid Duplex":                      Carotid,
		"ABDOMINAL AORTA":                     Aorta,
		"Arterial Lower Extremity Bilateral":  LowerArterial,
		"Lower Extremity Arterial Doppler":    LowerArterial,
		"Venous Duplex Left":                  Venous,
		"Renal Artery":                        UnknownType,
		"":                                    UnknownType,
		"Carotid and Venous":                  Carotid,
		"aorta / lower extremity venous scan": Aorta,
	}
	for title, want := range cases {
		if got := InferStudyType(title); got != want {
			t.Errorf("InferStudyType(%q) = %q, want %q", title, got, want)
		}
	}
}

func TestConclusionRoundTrip_SeparatorIsContent(t *testing.T) {
	in := StudyRecord{
		StudyType:   Carotid,
		PatientInfo: PatientInfo{Name: "A", DateOfBirth: NotAvailable, StudyDate: "1/2/2024"},
		Conclusion:  "Right ICA: mild." + ConclusionSeparator + "Left ICA: moderate.",
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out StudyRecord
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Conclusion != in.Conclusion {
		t.Errorf("conclusion changed: got %q, want %q", out.Conclusion, in.Conclusion)
	}
}

func TestParseAnalysisType(t *testing.T) {
	cases := map[string]AnalysisType{
		"1":         AnalysisCarotid,
		"2":         AnalysisAorta,
		" 3 ":       AnalysisLeftLeg,
		"4":         AnalysisRightLeg,
		"right_leg": AnalysisRightLeg,
		"Aorta":     AnalysisAorta,
	}
	for in, want := range cases {
		got, err := ParseAnalysisType(in)
		if err != nil || got != want {
			t.Errorf("ParseAnalysisType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "0", "5", "venous"} {
		if _, err := ParseAnalysisType(bad); err == nil {
			t.Errorf("ParseAnalysisType(%q): expected error", bad)
		}
	}
}

func TestDateRange(t *testing.T) {
	h := PatientHistory{Studies: []StudyRecord{
		{PatientInfo: PatientInfo{StudyDate: "03/15/2024"}},
		{PatientInfo: PatientInfo{StudyDate: NotAvailable}, ListedDate: "7-1-21"},
		{PatientInfo: PatientInfo{StudyDate: "11/30/2022"}},
		{PatientInfo: PatientInfo{StudyDate: NotAvailable}},
	}}
	got := h.DateRange()
	if got.Earliest != "7-1-21" || got.Latest != "03/15/2024" {
		t.Errorf("DateRange = %+v", got)
	}

	empty := PatientHistory{}.DateRange()
	if empty.Earliest != Unknown || empty.Latest != Unknown {
		t.Errorf("empty DateRange = %+v", empty)
	}
}

func TestParseStudyDate_RejectsImpossible(t *testing.T) {
	for _, s := range []string{"13/01/2024", "02/30/2024", "no date"} {
		if _, ok := ParseStudyDate(s); ok {
			t.Errorf("ParseStudyDate(%q) should fail", s)
		}
	}
}
