package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/sonodraft/study"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGenerate_SendsRecord(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate-report" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"report":"FINDINGS: normal"}`))
	}))

	rec := study.StudyRecord{
		StudyType:   study.Carotid,
		PatientInfo: study.PatientInfo{Name: "DOE, JANE", DateOfBirth: "1/2/1950", StudyDate: "3/4/2024"},
		Conclusion:  "Mild plaque.",
		SourceURL:   "https://app/study/1",
	}
	text, err := c.Generate(context.Background(), rec)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "FINDINGS: normal" {
		t.Errorf("report: %q", text)
	}

	want := map[string]any{
		"studyType":    "carotid",
		"patientInfo":  map[string]any{"name": "DOE, JANE", "dob": "1/2/1950", "studyDate": "3/4/2024"},
		"measurements": []any{},
		"conclusion":   "Mild plaque.",
		"imageData":    []any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request body (-want +got):\n%s", diff)
	}
}

func TestGenerate_QuotaExceededIsRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"quota exceeded"}`))
	}))

	_, err := c.Generate(context.Background(), study.StudyRecord{})
	if !errors.Is(err, ErrServiceRejected) {
		t.Fatalf("expected ErrServiceRejected, got %v", err)
	}
	if errors.Is(err, ErrServiceUnreachable) {
		t.Fatal("rejection must not match ErrServiceUnreachable")
	}
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Message != "quota exceeded" || rej.Status != 500 {
		t.Errorf("detail: %+v", rej)
	}
}

func TestGenerate_StatusTextWhenNoErrorField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	}))

	_, err := c.Generate(context.Background(), study.StudyRecord{})
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Message != "Bad Gateway" {
		t.Errorf("got %v", err)
	}
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Generate(context.Background(), study.StudyRecord{})
	if !errors.Is(err, ErrServiceUnreachable) {
		t.Fatalf("expected ErrServiceUnreachable, got %v", err)
	}
	if err := c.Health(context.Background()); !errors.Is(err, ErrServiceUnreachable) {
		t.Fatalf("health: expected ErrServiceUnreachable, got %v", err)
	}
}

func TestAnalyzeHistory(t *testing.T) {
	var payload study.PatientHistory
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze-patient-history-extension" {
			t.Errorf("path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&payload)
		w.Write([]byte(`{"success":true,"report":"Progression noted.","studiesAnalyzed":2,"dateRange":{"earliest":"1/5/2020","latest":"3/4/2024"}}`))
	}))

	h := study.PatientHistory{
		PatientName: "DOE, JANE",
		StudyType:   study.AnalysisCarotid,
		Studies: []study.StudyRecord{
			{StudyType: study.Carotid, PatientInfo: study.PatientInfo{StudyDate: "3/4/2024"}},
			{StudyType: study.Carotid, PatientInfo: study.PatientInfo{StudyDate: study.NotAvailable}, ListedDate: "1/5/2020"},
		},
	}
	rep, err := c.AnalyzeHistory(context.Background(), h)
	if err != nil {
		t.Fatalf("AnalyzeHistory: %v", err)
	}
	if rep.Report != "Progression noted." || rep.StudiesAnalyzed != 2 {
		t.Errorf("report: %+v", rep)
	}
	if payload.StudyType != study.AnalysisCarotid || payload.PatientName != "DOE, JANE" || len(payload.Studies) != 2 {
		t.Fatalf("payload: %+v", payload)
	}
	if payload.Studies[1].PatientInfo.StudyDate != "1/5/2020" {
		t.Errorf("list date not applied: %q", payload.Studies[1].PatientInfo.StudyDate)
	}
	if h.Studies[1].PatientInfo.StudyDate != study.NotAvailable {
		t.Error("caller's history was modified")
	}
}

func TestAnalyzeHistory_SuccessFalse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"no API key"}`))
	}))
	_, err := c.AnalyzeHistory(context.Background(), study.PatientHistory{})
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Message != "no API key" {
		t.Errorf("got %v", err)
	}
}

func TestAnalyzeHistory_CustomPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze-patient-history" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"success":true,"report":"ok"}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/api/", HistoryPath: "/analyze-patient-history"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := study.PatientHistory{Studies: []study.StudyRecord{{PatientInfo: study.PatientInfo{StudyDate: "2/3/2021"}}}}
	rep, err := c.AnalyzeHistory(context.Background(), h)
	if err != nil {
		t.Fatalf("AnalyzeHistory: %v", err)
	}
	if rep.DateRange.Earliest != "2/3/2021" {
		t.Errorf("date range fallback: %+v", rep.DateRange)
	}
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:3000", "ftp://host"} {
		if _, err := New(Config{BaseURL: u}); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestResponseCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"report":"` + strings.Repeat("x", 100) + `"}`))
	}))
	defer srv.Close()
	c, _ := New(Config{BaseURL: srv.URL, MaxResponse: 32})
	if _, err := c.Generate(context.Background(), study.StudyRecord{}); !errors.Is(err, ErrServiceUnreachable) {
		t.Errorf("expected capped read to fail, got %v", err)
	}
}

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	path, err := WriteArtifact(dir, Artifact{
		PatientName:     "DOE, JANE",
		StudyType:       study.AnalysisLeftLeg,
		AnalyzedAt:      at,
		StudiesAnalyzed: 3,
		DateRange:       study.DateRange{Earliest: "1/5/2020", Latest: "3/4/2024"},
		Report:          "Stable disease.",
	})
	if err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if filepath.Base(path) != "report_DOE_JANE_left_leg_1709546400000.txt" {
		t.Errorf("name: %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Patient: DOE, JANE\n",
		"Study Type: left_leg\n",
		"Analysis Date: 2024-03-04T10:00:00Z\n",
		"Studies Analyzed: 3\n",
		"Date Range: 1/5/2020 to 3/4/2024\n",
		"\nStable disease.\n",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("artifact missing %q:\n%s", want, data)
		}
	}

	path, err = WriteArtifact(dir, Artifact{PatientName: "DOE, J.. A", StudyType: study.AnalysisCarotid, AnalyzedAt: at})
	if err != nil {
		t.Fatalf("WriteArtifact with dotted name: %v", err)
	}
	if filepath.Base(path) != "report_DOE_J._A_carotid_1709546400000.txt" {
		t.Errorf("dotted name: %s", filepath.Base(path))
	}
}
